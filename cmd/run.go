package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/dispatch"
	"github.com/sells-group/variance-cli/internal/monitoring"
	"github.com/sells-group/variance-cli/internal/pipeline"
	"github.com/sells-group/variance-cli/internal/report"
)

var (
	runFile       string
	runDay        int
	runNoDispatch bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Validate the latest export and build the variance reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := pipeline.New(cfg, st, newSender(runNoDispatch), monitoring.NewAlerter(cfg.Monitoring))
		res, err := p.Run(ctx, pipeline.Options{File: runFile, Day: runDay, NoDispatch: runNoDispatch})
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		formatRunResult(os.Stdout, res)
		return nil
	},
}

// newSender returns nil when dispatch is disabled or unconfigured.
func newSender(disabled bool) pipeline.Dispatcher {
	if disabled {
		return nil
	}
	if cfg.Dispatch.WebhookURL == "" {
		zap.L().Info("dispatch disabled, no webhook configured")
		return nil
	}
	return dispatch.FromConfig(cfg.Dispatch)
}

func formatRunResult(out io.Writer, res *pipeline.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", res.Source)
	for _, r := range res.Reports {
		s := r.Summary
		_, _ = fmt.Fprintf(w, "%s:\t%s / %s\t%s\t%s\n",
			r.Metric.Title(), report.Amount(s.TotalActual), report.Amount(s.TotalTarget),
			report.Pct(s.AchievementPct), s.Status)
	}
	for _, f := range res.Files {
		_, _ = fmt.Fprintf(w, "Wrote:\t%s\n", f)
	}
	if res.Dispatch != nil {
		_, _ = fmt.Fprintf(w, "Dispatched:\t%d sent, %d failed\n", len(res.Dispatch.Sent), len(res.Dispatch.Failed))
	}
	_ = w.Flush()
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "source spreadsheet (default: newest in source.dir)")
	runCmd.Flags().IntVar(&runDay, "day", 0, "override the elapsed day of the period")
	runCmd.Flags().BoolVar(&runNoDispatch, "no-dispatch", false, "build reports without sending them")
	rootCmd.AddCommand(runCmd)
}
