package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/monitoring"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent parity audit records and run health",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		reports, err := st.ListParity(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "audit")
		}
		if len(reports) == 0 {
			fmt.Fprintln(os.Stderr, "No parity records found.")
		} else {
			formatParityList(os.Stdout, reports)
		}

		snap, err := monitoring.NewCollector(st, cfg.Monitoring.LookbackRuns).Collect(ctx)
		if err != nil {
			return eris.Wrap(err, "audit: collect run health")
		}
		_, _ = fmt.Fprintf(os.Stdout, "\nLast %d runs: %d complete, %d aborted, %d failed (failure rate %.1f%%)\n",
			snap.Total, snap.Complete, snap.Aborted, snap.Failed, snap.FailureRate*100)

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerter.SendAlerts(ctx, alerter.Evaluate(snap))
		return nil
	},
}

func formatParityList(out io.Writer, reports []model.ParityReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHECKED\tRUN\tMETRIC\tMEANINGFUL\tPROCESSED\tDIFF\tSTATUS")
	_, _ = fmt.Fprintln(w, "-------\t---\t------\t----------\t---------\t----\t------")
	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.5f\t%s\n",
			r.CheckedAt.Format("2006-01-02 15:04"),
			truncateID(r.RunID),
			r.Metric,
			r.MeaningfulTotal,
			r.ProcessedTotal,
			r.Difference,
			r.Status(),
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	auditCmd.Flags().Int("limit", 20, "maximum records to show")
	rootCmd.AddCommand(auditCmd)
}
