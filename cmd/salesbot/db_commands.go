package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/salesbot/service/db"
)

// listSalesCommand lists archived sales.
func listSalesCommand() *cli.Command {
	return &cli.Command{
		Name:      "sales",
		Usage:     "List archived sales, newest first",
		ArgsUsage: "[project_address]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "marketplace",
				Usage: "Only show sales on this marketplace (e.g. \"Magic Eden\")",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Maximum number of sales to show",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of sales to skip",
			},
		},
		Action: func(c *cli.Context) error {
			pool, err := db.Connect(c.Context, c.String("database-url"))
			if err != nil {
				return err
			}
			defer pool.Close()

			sales, err := db.NewStore(pool).ListSales(c.Context, db.ListSalesParams{
				ProjectAddress: c.Args().First(),
				Marketplace:    c.String("marketplace"),
				Limit:          int32(c.Int("limit")),
				Offset:         int32(c.Int("offset")),
			})
			if err != nil {
				return err
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(sales, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal sales: %w", err)
				}
				fmt.Fprintln(c.App.Writer, string(data))
				return nil
			}

			printSalesTable(c.App.Writer, sales)
			return nil
		},
	}
}

func printSalesTable(w io.Writer, sales []*db.Sale) {
	if len(sales) == 0 {
		fmt.Fprintln(w, "No sales found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BLOCK TIME\tMARKETPLACE\tPRICE (SOL)\tTITLE\tSIGNATURE")
	for _, s := range sales {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.BlockTime.UTC().Format(time.RFC3339),
			s.Marketplace,
			s.Price.String(),
			s.Title,
			s.Signature,
		)
	}
	tw.Flush()
}
