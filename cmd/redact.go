package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimmerbailey/sentinel/internal/bulk"
	"github.com/bimmerbailey/sentinel/internal/config"
	"github.com/bimmerbailey/sentinel/internal/output"
)

var redactCmd = &cobra.Command{
	Use:   "redact [flags] [file...]",
	Short: "Mask sensitive values in files or standard input",
	Long: `Redact PII and secrets from files (paths, directories or globs) or
standard input and write the result to standard output.

Large inputs are split into chunks at safe line boundaries and masked in
parallel; the output is identical to redacting the whole input at once.

Examples:
  sentinel redact /var/log/app.log
  sentinel redact --detectors ipv4,email "logs/*.log"
  cat dump.txt | sentinel redact --mode collapse
  sentinel redact --summary -f json app.log > /dev/null`,
	RunE: runRedact,
}

func init() {
	addRedactionFlags(redactCmd)
	redactCmd.Flags().Int("chunk-size", 0, "bytes per chunk (default from config, 4 MiB)")
	redactCmd.Flags().Int("workers", 0, "chunks redacted in parallel (default GOMAXPROCS)")
	redactCmd.Flags().Bool("summary", false, "print a summary per input to stderr")

	rootCmd.AddCommand(redactCmd)
}

// addRedactionFlags registers the flags that override the redaction section
// of the configuration.
func addRedactionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("detectors", nil, "detectors to enable, or 'all' (see 'sentinel detectors')")
	cmd.Flags().String("mask-token", "", "token written over each match")
	cmd.Flags().String("fill", "", "single punctuation byte used for padding")
	cmd.Flags().String("mode", "", "mask mode (same_length, collapse)")
}

// applyRedactionFlags copies explicitly set redaction flags over rc.
func applyRedactionFlags(cmd *cobra.Command, rc *config.RedactionConfig) {
	if cmd.Flags().Changed("detectors") {
		rc.Detectors, _ = cmd.Flags().GetStringSlice("detectors")
	}
	if cmd.Flags().Changed("mask-token") {
		rc.MaskToken, _ = cmd.Flags().GetString("mask-token")
	}
	if cmd.Flags().Changed("fill") {
		rc.Fill, _ = cmd.Flags().GetString("fill")
	}
	if cmd.Flags().Changed("mode") {
		rc.Mode, _ = cmd.Flags().GetString("mode")
	}
}

func runRedact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRedactionFlags(cmd, &cfg.Redaction)
	if cmd.Flags().Changed("chunk-size") {
		cfg.Bulk.ChunkSize, _ = cmd.Flags().GetInt("chunk-size")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Bulk.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if err := cfg.Bulk.Validate(); err != nil {
		return err
	}
	showSummary, _ := cmd.Flags().GetBool("summary")

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

	proc := bulk.New(bulk.Options{
		ChunkSize: cfg.Bulk.ChunkSize,
		Workers:   cfg.Bulk.Workers,
		Redactor:  redactor,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("redacting",
		zap.Strings("sources", sources),
		zap.Strings("detectors", redactor.Detectors().Names()),
		zap.String("mode", redactor.Policy().Mode.String()))

	summaries := make([]output.RedactionSummary, 0, len(sources))
	for _, source := range sources {
		stats, err := redactSource(ctx, proc, source, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		summaries = append(summaries, output.RedactionSummary{
			Source:  source,
			Bytes:   stats.Bytes,
			Written: stats.Written,
			Chunks:  stats.Chunks,
			Matches: stats.Matches,
			Forced:  stats.Forced,
		})
	}

	if !showSummary {
		return nil
	}
	return output.New(cmd.ErrOrStderr(), output.ParseFormat(cfg.Format)).WriteSummaries(summaries)
}

func redactSource(ctx context.Context, proc *bulk.Processor, source string, stdin io.Reader, w io.Writer) (bulk.Stats, error) {
	if source == config.Stdin {
		return proc.Redact(ctx, stdin, w)
	}
	f, err := os.Open(source)
	if err != nil {
		return bulk.Stats{}, err
	}
	defer f.Close()
	return proc.Redact(ctx, f, w)
}
