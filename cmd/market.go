package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/market"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Manage the market baseline cache",
}

var marketBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build market baselines from the monthly audit workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		force, _ := cmd.Flags().GetBool("force")
		skip, _ := cmd.Flags().GetInt("skip-rows")
		marker, _ := cmd.Flags().GetString("company-marker")
		out := cfg.Reference.MarketPath

		if _, err := os.Stat(out); err == nil && !force {
			fmt.Fprintf(os.Stdout, "Baselines already cached at %s (use --force to rebuild)\n", out)
			return nil
		}

		_, rows, err := readTable(ctx, file, skip, false)
		if err != nil {
			return eris.Wrap(err, "market build: read audit")
		}

		opts := market.DefaultBuildOptions()
		if marker != "" {
			opts.CompanyMarker = marker
		}
		b := market.BuildBaselines(rows, opts)
		if len(b) == 0 {
			return eris.Errorf("market build: no %s brands found in %s", opts.CompanyMarker, file)
		}
		if err := market.Save(out, b); err != nil {
			return err
		}

		zap.L().Info("market baselines saved", zap.String("path", out), zap.Int("brands", len(b)))
		fmt.Fprintf(os.Stdout, "Cached %d brand baselines at %s\n", len(b), out)
		return nil
	},
}

func init() {
	marketBuildCmd.Flags().String("file", "", "market audit workbook (required)")
	marketBuildCmd.Flags().Bool("force", false, "rebuild even when a cache exists")
	marketBuildCmd.Flags().Int("skip-rows", 0, "leading rows to ignore")
	marketBuildCmd.Flags().String("company-marker", "", "manufacturer substring identifying own brands")
	_ = marketBuildCmd.MarkFlagRequired("file")
	marketCmd.AddCommand(marketBuildCmd)
	rootCmd.AddCommand(marketCmd)
}
