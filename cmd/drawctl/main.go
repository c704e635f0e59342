// Command drawctl runs operational tasks against the draw backend:
// schema migrations, monthly storage cleanup, expiry purges and rescoring.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/chainguard-dev/clog"

	"draw-backend/internal/app"
	"draw-backend/internal/config"
	"draw-backend/internal/models"
)

const usage = `usage: drawctl <command> [flags]

commands:
  migrate                      apply pending schema migrations
  cleanup [-month YYYY-MM]     delete images outside the month's top leaderboard
  purge-expired                delete expired submissions and rate-limit windows
  rescore -month YYYY-MM       rescore recent submissions and print score diffs
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		clog.FatalContextf(ctx, "failed to load configuration: %v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		clog.FatalContextf(ctx, "failed to initialize: %v", err)
	}
	defer a.Close()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "migrate":
		err = a.Migrate(ctx)
	case "cleanup":
		err = runCleanup(ctx, a, args)
	case "purge-expired":
		err = runPurge(ctx, a)
	case "rescore":
		err = runRescore(ctx, a, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		clog.FatalContextf(ctx, "%s failed: %v", cmd, err)
	}
}

func runCleanup(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	month := fs.String("month", "", "target month (YYYY-MM); defaults to the previous JST month")
	if err := fs.Parse(args); err != nil {
		return err
	}
	summary, err := a.Cleanup.Run(ctx, *month)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func runPurge(ctx context.Context, a *app.App) error {
	summary, err := a.Purge.Run(ctx)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func runRescore(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("rescore", flag.ExitOnError)
	month := fs.String("month", "", "month to rescore (YYYY-MM)")
	limit := fs.Int("limit", 20, "number of most recent submissions")
	jsonOut := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *month == "" {
		return fmt.Errorf("-month is required")
	}

	results, err := a.Rescore.Run(ctx, *month, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(results)
	}
	printRescoreTable(results)
	return nil
}

func printRescoreTable(results []models.RescoreResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSUBMISSION\tCREATED\tOLD\tNEW\tDIFF\tFALLBACK\tONE-LINER")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%+d\t%t\t%s\n",
			r.Order, r.SubmissionID, r.CreatedAt, r.OldScore, r.NewScore, r.Diff, r.FallbackUsed, r.NewOneLiner)
	}
	w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
