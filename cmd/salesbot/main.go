package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "salesbot",
		Usage: "Post Solana NFT marketplace sales to Discord",
		Description: `salesbot watches a Solana project address, recognizes NFT sales on
supported marketplaces and posts each one to a Discord webhook.

Configuration is read from the environment (and a .env file if present).`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			runCommand(),
			{
				Name:  "nats",
				Usage: "NATS sale streaming commands",
				Subcommands: []*cli.Command{
					watchCommand(),
				},
			},
			{
				Name:  "db",
				Usage: "Sale archive commands",
				Subcommands: []*cli.Command{
					listSalesCommand(),
				},
			},
			versionCommand(),
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "salesbot %s\ncommit: %s\nbuilt:  %s\n", version, commit, date)
			return nil
		},
	}
}
