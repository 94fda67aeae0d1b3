package kernel

import (
	"fmt"
	"strings"
)

// Detector identifies one built-in class of sensitive data.
type Detector uint16

const (
	DetectPrivateKey Detector = 1 << iota
	DetectJWT
	DetectAWSKey
	DetectKeyValue
	DetectEmail
	DetectUUID
	DetectMAC
	DetectIPv6
	DetectIPv4
	DetectCreditCard
)

// DetectorSet is a bit set of enabled detectors. The zero value detects nothing.
type DetectorSet uint16

// Has reports whether d is enabled in the set.
func (s DetectorSet) Has(d Detector) bool {
	return s&DetectorSet(d) != 0
}

// With returns a copy of the set with d enabled.
func (s DetectorSet) With(d Detector) DetectorSet {
	return s | DetectorSet(d)
}

// Names returns the configuration names of the enabled detectors in
// matching priority order.
func (s DetectorSet) Names() []string {
	names := make([]string, 0, len(BuiltInDetectors))
	for _, info := range BuiltInDetectors {
		if s.Has(info.Detector) {
			names = append(names, info.Name)
		}
	}
	return names
}

// DetectorInfo describes a built-in detector.
type DetectorInfo struct {
	Detector    Detector
	Name        string
	Description string
}

// BuiltInDetectors lists every detector in the order they are tried at each
// scan position. The first detector that matches wins.
var BuiltInDetectors = []DetectorInfo{
	{DetectPrivateKey, "private_key", "PEM private key blocks"},
	{DetectJWT, "jwt", "JWT tokens"},
	{DetectAWSKey, "aws_key", "AWS Access Key IDs"},
	{DetectKeyValue, "key_value", "Values of credential-like keys (password=, token:, ...)"},
	{DetectEmail, "email", "Email addresses"},
	{DetectUUID, "uuid", "UUIDs"},
	{DetectMAC, "mac_address", "MAC addresses"},
	{DetectIPv6, "ipv6", "IPv6 addresses"},
	{DetectIPv4, "ipv4", "IPv4 addresses"},
	{DetectCreditCard, "credit_card", "Luhn-valid 16 digit card numbers"},
}

// DefaultDetectorNames returns the detectors enabled when no rule set is
// configured. uuid, mac_address and credit_card are opt-in.
func DefaultDetectorNames() []string {
	return []string{
		"private_key",
		"jwt",
		"aws_key",
		"key_value",
		"email",
		"ipv6",
		"ipv4",
	}
}

// DefaultDetectors returns DefaultDetectorNames as a set.
func DefaultDetectors() DetectorSet {
	set, _ := ParseDetectors(DefaultDetectorNames())
	return set
}

// AllDetectors returns a set with every built-in detector enabled.
func AllDetectors() DetectorSet {
	var set DetectorSet
	for _, info := range BuiltInDetectors {
		set = set.With(info.Detector)
	}
	return set
}

// ParseDetectors converts configuration names into a DetectorSet. Names are
// case-insensitive and "all" enables every detector. An unknown name is an
// error.
func ParseDetectors(names []string) (DetectorSet, error) {
	var set DetectorSet
	for _, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" {
			continue
		}
		if n == "all" {
			set |= AllDetectors()
			continue
		}
		d, ok := lookupDetector(n)
		if !ok {
			return 0, fmt.Errorf("unknown detector %q", name)
		}
		set = set.With(d)
	}
	return set, nil
}

func lookupDetector(name string) (Detector, bool) {
	for _, info := range BuiltInDetectors {
		if info.Name == name {
			return info.Detector, true
		}
	}
	return 0, false
}
