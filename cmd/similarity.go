package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/sentinel/internal/kernel"
	"github.com/bimmerbailey/sentinel/internal/output"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity [flags]",
	Short: "Score the similarity of vector pairs",
	Long: `Compute the similarity of two float32 vectors, or of every pair in a
JSON file of the form [{"a": [...], "b": [...]}, ...].

Cosine similarity is clamped to [-1, 1] and a zero vector scores 0.

Examples:
  sentinel similarity --a "1,0,0" --b "0,1,0"
  sentinel similarity --metric euclidean --a "3,4" --b "0,0"
  sentinel similarity --file pairs.json -f table`,
	Args: cobra.NoArgs,
	RunE: runSimilarity,
}

func init() {
	similarityCmd.Flags().String("a", "", "first vector, comma separated")
	similarityCmd.Flags().String("b", "", "second vector, comma separated")
	similarityCmd.Flags().String("file", "", "JSON file of vector pairs")
	similarityCmd.Flags().StringP("metric", "m", "", "similarity metric (cosine, dot, euclidean)")

	rootCmd.AddCommand(similarityCmd)
}

// vectorPair is one entry of a --file input.
type vectorPair struct {
	A []float32 `json:"a"`
	B []float32 `json:"b"`
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	aStr, _ := cmd.Flags().GetString("a")
	bStr, _ := cmd.Flags().GetString("b")
	file, _ := cmd.Flags().GetString("file")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("metric") {
		cfg.Similarity.Metric, _ = cmd.Flags().GetString("metric")
	}
	scorer, err := cfg.Similarity.Scorer()
	if err != nil {
		return fmt.Errorf("invalid similarity settings: %w", err)
	}

	var pairs []vectorPair
	switch {
	case file != "" && (aStr != "" || bStr != ""):
		return fmt.Errorf("--file cannot be combined with --a/--b")
	case file != "":
		pairs, err = readVectorPairs(file)
		if err != nil {
			return err
		}
	case aStr != "" && bStr != "":
		a, err := parseVector(aStr)
		if err != nil {
			return fmt.Errorf("invalid --a: %w", err)
		}
		b, err := parseVector(bStr)
		if err != nil {
			return fmt.Errorf("invalid --b: %w", err)
		}
		pairs = []vectorPair{{A: a, B: b}}
	default:
		return fmt.Errorf("provide --a and --b, or --file")
	}

	results := make([]output.SimilarityResult, len(pairs))
	statuses := make([]kernel.Status, len(pairs))
	for i, p := range pairs {
		score, st := scorer.Score(p.A, p.B)
		statuses[i] = st
		results[i] = output.SimilarityResult{
			Index:  i,
			Metric: scorer.Metric().String(),
			Dim:    len(p.A),
			Score:  score,
			Status: st.String(),
		}
	}

	w := output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format))
	if err := w.WriteSimilarities(results); err != nil {
		return err
	}

	// Flag input is a single question, so a failed score is an error.
	if file == "" {
		if err := statuses[0].Err(); err != nil {
			return fmt.Errorf("similarity: %w", err)
		}
	}
	return nil
}

func parseVector(s string) ([]float32, error) {
	fields := strings.Split(s, ",")
	v := make([]float32, 0, len(fields))
	for _, field := range fields {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
		if err != nil {
			return nil, err
		}
		v = append(v, float32(f))
	}
	return v, nil
}

func readVectorPairs(path string) ([]vectorPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pairs []vectorPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%s contains no vector pairs", path)
	}
	return pairs, nil
}
