package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w interface{}) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// ColorizeSummary colors a summary line yellow when something was masked and
// gray otherwise.
func ColorizeSummary(matches int, line string, colorize bool) string {
	if !colorize {
		return line
	}
	if matches > 0 {
		return colorYellow + line + colorReset
	}
	return colorGray + line + colorReset
}

// HighlightMasks renders every occurrence of the mask token in bold yellow.
func HighlightMasks(line, token string) string {
	if token == "" || !strings.Contains(line, token) {
		return line
	}
	return strings.ReplaceAll(line, token, colorBold+colorYellow+token+colorReset)
}

// WriteRedactedLine writes one redacted line, highlighting mask tokens when
// mode allows color.
func (wr *Writer) WriteRedactedLine(line []byte, token string, mode ColorMode) error {
	s := string(line)
	if shouldColorize(mode, wr.w) {
		s = HighlightMasks(s, token)
	}
	_, err := fmt.Fprintln(wr.w, s)
	return err
}
