package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	natspkg "github.com/brojonat/salesbot/service/nats"
)

// watchCommand streams sale events from JetStream.
func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Stream sale events published by the bot",
		ArgsUsage: "[project_address]",
		Description: `Subscribe to sale events published to NATS JetStream.
Events are published to the subject: sales.{project_address}
Without an address every project is watched.

Example:
  salesbot nats watch --jq '.marketplace == "Magic Eden"' --jq '.lamports > 1000000000'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Aliases: []string{"jq"},
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Replay retained sales instead of only new ones",
			},
			&cli.StringFlag{
				Name:  "durable",
				Usage: "Durable consumer name (survives restarts)",
			},
		},
		Action: func(c *cli.Context) error {
			filter, err := compileFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			opts := natspkg.WatchOptions{
				ProjectAddress: c.Args().First(),
				Durable:        c.String("durable"),
				DeliverAll:     c.Bool("all"),
			}
			jsonOutput := c.Bool("json")
			out := c.App.Writer

			if !jsonOutput {
				subject := natspkg.StreamSubjects
				if opts.ProjectAddress != "" {
					subject = natspkg.Subject(opts.ProjectAddress)
				}
				fmt.Fprintf(out, "📡 Subscribing to: %s\n", subject)
				fmt.Fprintf(out, "   NATS: %s\n\nWaiting for sales... (Ctrl-C to exit)\n\n", c.String("nats-url"))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := stderrLogger(os.Stderr)
			count := 0
			err = natspkg.Watch(ctx, c.String("nats-url"), opts, logger, func(sale *natspkg.SaleMessage) error {
				if !filter.accept(sale, logger) {
					return nil
				}
				count++
				if jsonOutput {
					data, err := json.Marshal(sale)
					if err != nil {
						return fmt.Errorf("failed to marshal sale: %w", err)
					}
					fmt.Fprintln(out, string(data))
					return nil
				}
				printSale(out, count, sale)
				return nil
			})
			if err != nil {
				return err
			}

			if !jsonOutput {
				fmt.Fprintf(out, "\n✅ Received %d sales\n", count)
			}
			return nil
		},
	}
}

// saleFilter holds compiled jq programs; a sale matches when all are truthy.
type saleFilter []*gojq.Code

func compileFilters(filters []string) (saleFilter, error) {
	compiled := make(saleFilter, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return compiled, nil
}

// match runs every filter against the JSON form of sale.
func (f saleFilter) match(sale *natspkg.SaleMessage) (bool, error) {
	if len(f) == 0 {
		return true, nil
	}

	// gojq works on generic JSON values, not structs.
	data, err := json.Marshal(sale)
	if err != nil {
		return false, err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return false, err
	}

	for _, code := range f {
		iter := code.Run(input)
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := v.(error); isErr {
			return false, err
		}
		if !isTruthy(v) {
			return false, nil
		}
	}
	return true, nil
}

// accept reports whether sale passes every filter. A filter that errors at
// runtime rejects the sale and the error is logged.
func (f saleFilter) accept(sale *natspkg.SaleMessage, logger *slog.Logger) bool {
	ok, err := f.match(sale)
	if err != nil {
		logger.Error("jq filter failed",
			"signature", sale.Signature,
			"error", err,
		)
		return false
	}
	return ok
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func printSale(w io.Writer, n int, sale *natspkg.SaleMessage) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Sale #%d\n", n)
	fmt.Fprintf(w, "─────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Title:        %s\n", sale.Title)
	fmt.Fprintf(w, "Price:        %s SOL\n", sale.PriceSOL)
	fmt.Fprintf(w, "Marketplace:  %s\n", sale.Marketplace)
	fmt.Fprintf(w, "Mint:         %s\n", sale.Mint)
	fmt.Fprintf(w, "Block Time:   %s\n", sale.BlockTime.Format(time.RFC3339))
	fmt.Fprintf(w, "Explorer:     %s\n", sale.ExplorerURL)
	if sale.ImageURL != "" {
		fmt.Fprintf(w, "Image:        %s\n", sale.ImageURL)
	}
	fmt.Fprintf(w, "\n")
}
