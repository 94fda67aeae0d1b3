package kernel

import "fmt"

// Redactor masks sensitive substrings in byte buffers.
//
// A Redactor is immutable once built, so a single value may be shared by any
// number of goroutines. Each call is a single left-to-right pass over the
// input: at every position the enabled detectors are tried in
// BuiltInDetectors order, the first match is masked and scanning resumes
// after it. Nothing is remembered between calls.
type Redactor struct {
	detectors DetectorSet
	policy    MaskPolicy
}

// NewRedactor builds a Redactor for the given detectors and mask policy.
func NewRedactor(detectors DetectorSet, policy MaskPolicy) (*Redactor, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mask policy: %w", err)
	}
	return &Redactor{detectors: detectors, policy: policy}, nil
}

var defaultRedactor = &Redactor{detectors: DefaultDetectors(), policy: DefaultMaskPolicy()}

// DefaultRedactor returns the Redactor used by the package-level Redact:
// DefaultDetectors with DefaultMaskPolicy.
func DefaultRedactor() *Redactor {
	return defaultRedactor
}

// Redact masks in with the default detectors and policy. See (*Redactor).Redact.
func Redact(in, out []byte) (int, Status) {
	return defaultRedactor.Redact(in, out)
}

// Detectors returns the enabled detector set.
func (r *Redactor) Detectors() DetectorSet {
	return r.detectors
}

// Policy returns the mask policy.
func (r *Redactor) Policy() MaskPolicy {
	return r.policy
}

// Redact writes the redacted form of in into out and returns the number of
// bytes written.
//
// It returns InvalidArgument when in or out is nil or in is empty, and
// OutputTooSmall when len(out) < len(in). On any non-Ok status out is left
// untouched. in and out must not overlap. With MaskSameLength the result is
// always len(in) bytes; with MaskCollapse it may be shorter.
func (r *Redactor) Redact(in, out []byte) (int, Status) {
	n, _, st := r.RedactCount(in, out)
	return n, st
}

// RedactCount is Redact that also reports how many spans were masked.
func (r *Redactor) RedactCount(in, out []byte) (written, matches int, st Status) {
	if len(in) == 0 || out == nil {
		return 0, 0, InvalidArgument
	}
	if len(out) < len(in) {
		return 0, 0, OutputTooSmall
	}

	copied := 0
	for i := 0; i < len(in); {
		start, end, _, ok := nextMatch(r.detectors, in, i)
		if !ok {
			break
		}
		written += copy(out[written:], in[copied:start])
		written += r.policy.mask(out[written:], end-start)
		matches++
		copied = end
		i = end
	}
	written += copy(out[written:], in[copied:])
	return written, matches, Ok
}

// Match is one masked span reported by Find.
type Match struct {
	Detector Detector
	Start    int
	End      int
}

// Name returns the configuration name of the detector that produced the match.
func (m Match) Name() string {
	return detectorName(m.Detector)
}

// Find calls fn for every span Redact would mask, in input order.
func (r *Redactor) Find(in []byte, fn func(Match)) {
	for i := 0; i < len(in); {
		start, end, d, ok := nextMatch(r.detectors, in, i)
		if !ok {
			return
		}
		fn(Match{Detector: d, Start: start, End: end})
		i = end
	}
}

// Count returns the number of spans Redact would mask.
func (r *Redactor) Count(in []byte) int {
	count := 0
	r.Find(in, func(Match) { count++ })
	return count
}

// Contains reports whether in holds at least one sensitive span.
func (r *Redactor) Contains(in []byte) bool {
	_, _, _, ok := nextMatch(r.detectors, in, 0)
	return ok
}
