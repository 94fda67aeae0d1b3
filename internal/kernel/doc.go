// Package kernel provides the two computational primitives sentinel is built
// around: bulk masking of sensitive substrings in a byte buffer, and
// similarity scoring between two dense float32 vectors.
//
// Both operations work on caller-owned memory, keep no state between calls,
// and report failures through a Status code rather than panics or sentinel
// values:
//
//	out := make([]byte, len(in))
//	n, st := kernel.Redact(in, out)
//	if st != kernel.Ok {
//	    return st.Err()
//	}
//	redacted := out[:n]
//
//	score, st := kernel.Similarity(a, b) // cosine, clamped to [-1, 1]
//
// The hot paths do not allocate, log, or perform I/O, so they are safe to call
// from many goroutines at once as long as each call's buffers are not being
// mutated concurrently.
//
// Redaction rules are selected by the caller as a DetectorSet and a
// MaskPolicy. The default policy replaces every match with a same-length mask,
// so the output always has the same length as the input:
//
//	"mail admin@example.com now" -> "mail [REDACTED]******* now"
//	"contact: a@b.com today"     -> "contact: ******* today"
//
// The only process-wide state is the CPU feature probe used to select the
// vectorised dot product; it runs once at package initialisation.
package kernel
