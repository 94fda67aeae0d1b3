package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/sentinel/internal/kernel"
	"github.com/bimmerbailey/sentinel/internal/output"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the CPU features and similarity implementation in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := output.ParseFormat(viper.GetString("format"))
		return output.New(cmd.OutOrStdout(), format).WriteFeatures(kernel.Features())
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
