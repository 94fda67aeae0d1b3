package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bimmerbailey/sentinel/internal/config"
	"github.com/bimmerbailey/sentinel/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Fast PII redaction and vector similarity",
	Long: `Sentinel masks sensitive values in logs and text streams and scores
embedding vectors, using allocation-free kernels that are safe to call
from many goroutines at once.

Redaction keeps the output the same length as the input by default, so
byte offsets into redacted logs stay valid.

Examples:
  sentinel redact /var/log/app.log > app.redacted.log
  cat dump.txt | sentinel redact --detectors all --summary
  sentinel follow --follow-rotate /var/log/app.log
  sentinel similarity --a "1,0,0" --b "0,1,0"
  sentinel detectors`,
	SilenceUsage: true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sentinel.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, table, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".sentinel")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SENTINEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig decodes the global viper state. Defaults are registered again so
// commands invoked directly from tests see a complete configuration.
func loadConfig() (*config.Config, error) {
	config.SetDefaults(viper.GetViper())
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger() *zap.Logger {
	logger, err := logging.New(viper.GetBool("verbose"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return zap.NewNop()
	}
	return logger
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
