package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bimmerbailey/sentinel/internal/follow"
	"github.com/bimmerbailey/sentinel/internal/kernel"
	"github.com/bimmerbailey/sentinel/internal/output"
)

var followCmd = &cobra.Command{
	Use:   "follow [flags] <file>",
	Short: "Live-tail a log file with redaction",
	Long: `Watch a log file in real-time, similar to 'tail -f', masking every
line before it is printed.

Changes to the config file are picked up while following, so detectors
and the mask policy can be adjusted without restarting.

Examples:
  sentinel follow /var/log/app.log
  sentinel follow --detectors all --pattern "login" /var/log/auth.log
  sentinel follow --follow-rotate /var/log/app.log`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	addRedactionFlags(followCmd)
	followCmd.Flags().StringP("pattern", "p", "", "only show redacted lines matching regex pattern")
	followCmd.Flags().IntP("lines", "n", 10, "number of initial lines to show")
	followCmd.Flags().Bool("no-follow", false, "print last N lines and exit (don't follow)")
	followCmd.Flags().Bool("follow-rotate", false, "follow through log rotations (continue when file is renamed/removed)")
	followCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(followCmd)
}

func runFollow(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	lines, _ := cmd.Flags().GetInt("lines")
	noFollow, _ := cmd.Flags().GetBool("no-follow")
	followRotate, _ := cmd.Flags().GetBool("follow-rotate")
	noColor, _ := cmd.Flags().GetBool("no-color")
	patternStr, _ := cmd.Flags().GetString("pattern")

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	var pattern *regexp.Regexp
	var err error
	if patternStr != "" {
		pattern, err = regexp.Compile(patternStr)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	buildRedactor := func() (*kernel.Redactor, error) {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		applyRedactionFlags(cmd, &cfg.Redaction)
		return cfg.Redaction.Redactor()
	}
	initial, err := buildRedactor()
	if err != nil {
		return fmt.Errorf("invalid redaction settings: %w", err)
	}

	logger := newLogger()
	defer logger.Sync()

	var current atomic.Pointer[kernel.Redactor]
	current.Store(initial)

	if !noFollow && viper.ConfigFileUsed() != "" {
		watchConfig(logger, buildRedactor, &current)
	}

	colorMode := output.ColorAuto
	if noColor {
		colorMode = output.ColorNever
	}
	w := output.New(cmd.OutOrStdout(), output.FormatText)
	outputFunc := func(line []byte, r *kernel.Redactor) error {
		return w.WriteRedactedLine(line, r.Policy().Token, colorMode)
	}

	follower := follow.New(follow.Options{
		FilePath:     filePath,
		Lines:        lines,
		Follow:       !noFollow,
		FollowRotate: followRotate,
		Pattern:      pattern,
		Redactor:     current.Load,
		OutputFunc:   outputFunc,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- follower.Run(ctx)
	}()

	select {
	case <-sigChan:
		cancel()
		<-errChan
		return nil
	case err := <-errChan:
		if err != nil && !errors.Is(err, follow.ErrRotated) {
			return err
		}
		return nil
	}
}

// watchConfig rebuilds the redactor whenever the config file changes. An
// invalid edit keeps the previous redactor.
func watchConfig(logger *zap.Logger, build func() (*kernel.Redactor, error), current *atomic.Pointer[kernel.Redactor]) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		r, err := build()
		if err != nil {
			logger.Warn("config reload rejected, keeping previous redaction settings",
				zap.String("file", e.Name), zap.Error(err))
			return
		}
		current.Store(r)
		logger.Info("config reloaded",
			zap.String("file", e.Name),
			zap.Strings("detectors", r.Detectors().Names()),
			zap.String("mode", r.Policy().Mode.String()))
	})
	viper.WatchConfig()
}
