package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/sentinel/internal/kernel"
	"github.com/bimmerbailey/sentinel/internal/output"
)

var detectorsCmd = &cobra.Command{
	Use:   "detectors",
	Short: "List the built-in detectors",
	Long: `List every built-in detector in match priority order and mark the
ones enabled by the current configuration.

Examples:
  sentinel detectors
  sentinel detectors -f table
  SENTINEL_REDACTION_DETECTORS=all sentinel detectors`,
	Args: cobra.NoArgs,
	RunE: runDetectors,
}

func init() {
	rootCmd.AddCommand(detectorsCmd)
}

func runDetectors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	set, err := cfg.Redaction.DetectorSet()
	if err != nil {
		return fmt.Errorf("invalid redaction settings: %w", err)
	}

	rows := make([]output.DetectorRow, 0, len(kernel.BuiltInDetectors))
	for _, d := range kernel.BuiltInDetectors {
		rows = append(rows, output.DetectorRow{
			Name:        d.Name,
			Enabled:     set.Has(d.Detector),
			Description: d.Description,
		})
	}
	return output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format)).WriteDetectors(rows)
}
