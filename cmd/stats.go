package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/sentinel/internal/analyzer"
	"github.com/bimmerbailey/sentinel/internal/bulk"
	"github.com/bimmerbailey/sentinel/internal/config"
	"github.com/bimmerbailey/sentinel/internal/output"
)

// ErrSensitiveFound is returned by stats --fail when any input holds a match.
var ErrSensitiveFound = errors.New("sensitive values found")

var statsCmd = &cobra.Command{
	Use:   "stats [flags] [file...]",
	Short: "Report how much sensitive data an input contains",
	Long: `Scan files or standard input with the configured detectors and report
line counts, the share of lines holding sensitive values and the matches per
detector. Matched values are never printed.

Examples:
  sentinel stats /var/log/app.log
  sentinel stats --findings "logs/*.log"
  sentinel stats --fail --detectors all build.log
  sentinel stats -f json app.log`,
	RunE: runStats,
}

func init() {
	addRedactionFlags(statsCmd)
	statsCmd.Flags().Bool("findings", false, "list the location of every match instead of totals")
	statsCmd.Flags().Bool("fail", false, "exit with an error when any match is found")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	showFindings, _ := cmd.Flags().GetBool("findings")
	failOnMatch, _ := cmd.Flags().GetBool("fail")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRedactionFlags(cmd, &cfg.Redaction)
	redactor, err := cfg.Redaction.Redactor()
	if err != nil {
		return fmt.Errorf("invalid redaction settings: %w", err)
	}

	sources := []string{config.Stdin}
	if len(args) > 0 {
		sources, err = config.ExpandGlobs(args)
		if err != nil {
			return err
		}
	}

	logger := newLogger()
	defer logger.Sync()

	a := analyzer.New(bulk.New(bulk.Options{
		ChunkSize: cfg.Bulk.ChunkSize,
		Redactor:  redactor,
		Logger:    logger,
	}))

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		all      []analyzer.Stats
		findings []analyzer.Finding
	)
	collect := func(f analyzer.Finding) error {
		findings = append(findings, f)
		return nil
	}
	if !showFindings {
		collect = nil
	}

	for _, source := range sources {
		stats, err := scanSource(ctx, a, source, cmd.InOrStdin(), collect)
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		all = append(all, stats)
	}

	w := output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format))
	if showFindings {
		err = w.WriteFindings(findings)
	} else {
		if len(all) > 1 {
			all = append(all, analyzer.Merge("total", all))
		}
		err = w.WriteStats(all)
	}
	if err != nil {
		return err
	}

	if failOnMatch {
		for _, s := range all {
			if s.Matches > 0 {
				return ErrSensitiveFound
			}
		}
	}
	return nil
}

func scanSource(ctx context.Context, a *analyzer.Analyzer, source string, stdin io.Reader, fn func(analyzer.Finding) error) (analyzer.Stats, error) {
	if source == config.Stdin {
		return a.Scan(ctx, source, stdin, fn)
	}
	f, err := os.Open(source)
	if err != nil {
		return analyzer.Stats{}, err
	}
	defer f.Close()
	return a.Scan(ctx, source, f, fn)
}
