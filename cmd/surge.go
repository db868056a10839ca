package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/projection"
)

var surgeCmd = &cobra.Command{
	Use:   "surge",
	Short: "Manage late-period surge factors",
}

var surgeBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Derive surge factors from last period's daily trend exports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		inputs := map[model.Metric]string{}
		if f, _ := cmd.Flags().GetString("value"); f != "" {
			inputs[model.MetricValue] = f
		}
		if f, _ := cmd.Flags().GetString("unit"); f != "" {
			inputs[model.MetricUnit] = f
		}
		if len(inputs) == 0 {
			return eris.New("surge build: at least one of --value or --unit is required")
		}
		skip, _ := cmd.Flags().GetInt("skip-rows")
		days, _ := cmd.Flags().GetInt("surge-days")

		opts := projection.DefaultTrendOptions()
		opts.SurgeDays = days

		for _, m := range model.Metrics {
			path, ok := inputs[m]
			if !ok {
				continue
			}
			header, rows, err := readTable(ctx, path, skip, true)
			if err != nil {
				return eris.Wrapf(err, "surge build: read %s trend", m)
			}
			factors, err := projection.ComputeSurgeFactors(header, rows, opts)
			if err != nil {
				return eris.Wrapf(err, "surge build: compute %s factors", m)
			}
			out, err := projection.SaveSurgeFactors(cfg.Reference.SurgeDir, m, factors)
			if err != nil {
				return err
			}

			zap.L().Info("surge factors saved",
				zap.String("metric", string(m)),
				zap.String("path", out),
				zap.Int("teams", len(factors[model.CategoryTeam.FactorKey()])),
				zap.Int("brands", len(factors[model.CategoryBrand.FactorKey()])),
			)
			fmt.Fprintf(os.Stdout, "%s: %s\n", m, out)
		}
		return nil
	},
}

func init() {
	surgeBuildCmd.Flags().String("value", "", "daily sale-value trend export")
	surgeBuildCmd.Flags().String("unit", "", "daily sale-units trend export")
	surgeBuildCmd.Flags().Int("skip-rows", 0, "rows above the header row")
	surgeBuildCmd.Flags().Int("surge-days", projection.DefaultTrendOptions().SurgeDays, "trailing days forming the surge window")
	surgeCmd.AddCommand(surgeBuildCmd)
	rootCmd.AddCommand(surgeCmd)
}
