package kernel

import (
	"fmt"
	"strings"
)

// MaskMode selects how a matched span is rewritten.
type MaskMode int

const (
	// MaskSameLength replaces a match of length m with exactly m bytes: the
	// token followed by fill bytes when the token fits, otherwise m fill bytes.
	MaskSameLength MaskMode = iota
	// MaskCollapse replaces a match with the token alone when the token fits,
	// otherwise with m fill bytes. Output never grows.
	MaskCollapse
)

// String returns the configuration name of the mode.
func (m MaskMode) String() string {
	switch m {
	case MaskSameLength:
		return "same_length"
	case MaskCollapse:
		return "collapse"
	default:
		return "unknown"
	}
}

// ParseMaskMode converts a configuration name into a MaskMode.
func ParseMaskMode(s string) (MaskMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "same_length", "same-length", "samelength":
		return MaskSameLength, nil
	case "collapse":
		return MaskCollapse, nil
	default:
		return 0, fmt.Errorf("unknown mask mode %q (must be 'same_length' or 'collapse')", s)
	}
}

const (
	DefaultMaskToken = "[REDACTED]"
	DefaultMaskFill  = '*'

	maxMaskToken = 64
)

// MaskPolicy controls the bytes written over each match.
type MaskPolicy struct {
	Token string
	Fill  byte
	Mode  MaskMode
}

// DefaultMaskPolicy returns the same-length "[REDACTED]" policy padded with '*'.
func DefaultMaskPolicy() MaskPolicy {
	return MaskPolicy{Token: DefaultMaskToken, Fill: DefaultMaskFill, Mode: MaskSameLength}
}

// isInert reports whether c is printable punctuation that no detector can
// consume as part of a match.
func isInert(c byte) bool {
	if c < 0x21 || c > 0x7e || isAlnum(c) {
		return false
	}
	switch c {
	case '.', '_', '%', '+', '-', '@', ':', '=':
		return false
	}
	return true
}

// Validate checks that masked output cannot itself be matched again, which is
// what makes redaction idempotent.
func (p MaskPolicy) Validate() error {
	if p.Mode != MaskSameLength && p.Mode != MaskCollapse {
		return fmt.Errorf("unknown mask mode %d", p.Mode)
	}
	if !isInert(p.Fill) {
		return fmt.Errorf("mask fill %q must be a punctuation byte such as '*' or '#'", p.Fill)
	}
	if p.Token == "" {
		return fmt.Errorf("mask token must not be empty")
	}
	if len(p.Token) > maxMaskToken {
		return fmt.Errorf("mask token longer than %d bytes", maxMaskToken)
	}
	for i := 0; i < len(p.Token); i++ {
		if c := p.Token[i]; c < 0x20 || c > 0x7e {
			return fmt.Errorf("mask token %q must be printable ASCII", p.Token)
		}
	}
	if !isInert(p.Token[0]) || !isInert(p.Token[len(p.Token)-1]) {
		return fmt.Errorf("mask token %q must start and end with punctuation such as '[' and ']'", p.Token)
	}
	if _, _, d, ok := nextMatch(AllDetectors(), []byte(p.Token), 0); ok {
		return fmt.Errorf("mask token %q is itself matched by the %s detector", p.Token, detectorName(d))
	}
	return nil
}

// MaskedLen returns the number of bytes written for a match of length m.
func (p MaskPolicy) MaskedLen(m int) int {
	if p.Mode == MaskCollapse && m >= len(p.Token) {
		return len(p.Token)
	}
	return m
}

// mask writes the replacement for a match of length m into dst and returns
// the number of bytes written. dst must hold at least m bytes.
func (p MaskPolicy) mask(dst []byte, m int) int {
	if m < len(p.Token) {
		for k := 0; k < m; k++ {
			dst[k] = p.Fill
		}
		return m
	}
	n := copy(dst, p.Token)
	if p.Mode == MaskCollapse {
		return n
	}
	for k := n; k < m; k++ {
		dst[k] = p.Fill
	}
	return m
}

func detectorName(d Detector) string {
	for _, info := range BuiltInDetectors {
		if info.Detector == d {
			return info.Name
		}
	}
	return "unknown"
}
