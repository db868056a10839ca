package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/variance-cli/internal/parity"
	"github.com/sells-group/variance-cli/internal/pipeline"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the parity check only and print both metric reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := pipeline.New(cfg, st, nil, nil).Validate(ctx, pipeline.Options{File: validateFile})
		if res != nil {
			fmt.Fprintf(os.Stdout, "Source: %s\n\n", res.Source)
			for _, rep := range res.Parity {
				fmt.Fprint(os.Stdout, parity.FormatBlock(rep))
			}
		}
		return err
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateFile, "file", "", "source spreadsheet (default: newest in source.dir)")
	rootCmd.AddCommand(validateCmd)
}
