package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/sentinel/internal/output"
)

func newRedactTestCmd(stdin string, out, errOut *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{Use: "redact"}
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	addRedactionFlags(cmd)
	cmd.Flags().Int("chunk-size", 0, "bytes per chunk")
	cmd.Flags().Int("workers", 0, "chunks redacted in parallel")
	cmd.Flags().Bool("summary", false, "print a summary per input to stderr")
	return cmd
}

func writeTempFile(t *testing.T, dir string, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestRedactStdin(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")

	var out, errOut bytes.Buffer
	cmd := newRedactTestCmd("2026-05-20T10:00:00Z [ERROR] User login failed: email=test-admin@company.com ip=192.168.1.1 token=sk_live_51Msz82\n", &out, &errOut)

	if err := runRedact(cmd, nil); err != nil {
		t.Fatalf("runRedact() error = %v", err)
	}

	want := "2026-05-20T10:00:00Z [ERROR] User login failed: email=[REDACTED]************ ip=[REDACTED]* token=[REDACTED]*****\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
	if errOut.Len() != 0 {
		t.Errorf("unexpected stderr output without --summary: %q", errOut.String())
	}
}

func TestRedactFiles(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")

	dir := t.TempDir()
	writeTempFile(t, dir, "a.log", []string{"from 10.0.0.1", "plain"})
	writeTempFile(t, dir, "b.log", []string{"contact: a@b.com today"})

	var out, errOut bytes.Buffer
	cmd := newRedactTestCmd("", &out, &errOut)
	if err := cmd.Flags().Set("chunk-size", "4"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := runRedact(cmd, []string{filepath.Join(dir, "*.log")}); err != nil {
		t.Fatalf("runRedact() error = %v", err)
	}

	want := "from ********\nplain\ncontact: ******* today\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRedactFlagsOverrideConfig(t *testing.T) {
	viper.Reset()
	viper.Set("format", "text")
	viper.Set("redaction.detectors", []string{"email"})

	var out, errOut bytes.Buffer
	cmd := newRedactTestCmd("mail admin@example.com from 192.168.100.200\n", &out, &errOut)
	for flag, value := range map[string]string{
		"detectors":  "ipv4",
		"mask-token": "<ip>",
		"fill":       "#",
		"mode":       "collapse",
	} {
		if err := cmd.Flags().Set(flag, value); err != nil {
			t.Fatalf("Set(%s) error = %v", flag, err)
		}
	}

	if err := runRedact(cmd, nil); err != nil {
		t.Fatalf("runRedact() error = %v", err)
	}
	if out.String() != "mail admin@example.com from <ip>\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRedactSummary(t *testing.T) {
	viper.Reset()
	viper.Set("format", "json")

	var out, errOut bytes.Buffer
	cmd := newRedactTestCmd("ip=10.0.0.1\nuser admin@example.com\n", &out, &errOut)
	if err := cmd.Flags().Set("summary", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := runRedact(cmd, nil); err != nil {
		t.Fatalf("runRedact() error = %v", err)
	}

	var summaries []output.RedactionSummary
	if err := json.Unmarshal(errOut.Bytes(), &summaries); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, errOut.String())
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.Source != "-" || s.Matches != 2 || s.Bytes != int64(len("ip=10.0.0.1\nuser admin@example.com\n")) {
		t.Errorf("summary = %+v", s)
	}
}

func TestRedactErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(cmd *cobra.Command)
		args  []string
	}{
		{
			name: "unknown detector",
			setup: func(cmd *cobra.Command) {
				_ = cmd.Flags().Set("detectors", "ipv4,ssn")
			},
		},
		{
			name: "matchable mask token",
			setup: func(cmd *cobra.Command) {
				_ = cmd.Flags().Set("mask-token", "[10.0.0.1]")
			},
		},
		{
			name: "negative workers",
			setup: func(cmd *cobra.Command) {
				_ = cmd.Flags().Set("workers", "-1")
			},
		},
		{
			name: "missing file",
			args: []string{filepath.Join(os.TempDir(), "sentinel-does-not-exist.log")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.Set("format", "text")

			var out, errOut bytes.Buffer
			cmd := newRedactTestCmd("ip 10.0.0.1\n", &out, &errOut)
			if tt.setup != nil {
				tt.setup(cmd)
			}
			if err := runRedact(cmd, tt.args); err == nil {
				t.Error("runRedact() expected error")
			}
		})
	}
}
