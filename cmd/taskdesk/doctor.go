package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/taskdesk"
	"github.com/dmitrymomot/taskdesk/pkg/async"
)

var errUnhealthy = errors.New("some checks failed")

type checkResult struct {
	name    string
	elapsed time.Duration
	err     error
}

func (c *cli) doctorCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the API and session storage are reachable",
		Long: `Run every dependency check in parallel: the API (by fetching a CSRF
token) and, with the redis storage, the Redis server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *taskdesk.App) error {
				cfg := app.Config()
				fmt.Fprintf(c.out, "API:     %s\n", cfg.APIBaseURL)
				fmt.Fprintf(c.out, "Storage: %s\n", cfg.StorageDriver)
				fmt.Fprintln(c.out)

				results := runChecks(ctx, app.Checks(), timeout)

				w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CHECK\tSTATUS\tTIME\tDETAIL")
				failed := false
				for _, r := range results {
					status, detail := "ok", ""
					if r.err != nil {
						status, detail, failed = "FAIL", r.err.Error(), true
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.name, status, r.elapsed.Round(time.Millisecond), detail)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "\nCSRF token: %s\n", app.CSRF().State())

				if failed {
					return errUnhealthy
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "timeout of each check")
	return cmd
}

// runChecks runs every check concurrently and returns results sorted by name.
func runChecks(ctx context.Context, checks map[string]taskdesk.Check, timeout time.Duration) []checkResult {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	futures := make([]*async.Future[checkResult], len(names))
	for i, name := range names {
		check := checks[name]
		futures[i] = async.Go(ctx, func(ctx context.Context) (checkResult, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			start := time.Now()
			err := check(ctx)
			return checkResult{name: name, elapsed: time.Since(start), err: err}, nil
		})
	}

	// A future only fails when ctx ended before its check started.
	results, err := async.WaitAll(futures...)
	for i := range results {
		if results[i].name == "" {
			results[i] = checkResult{name: names[i], err: err}
		}
	}
	return results
}
