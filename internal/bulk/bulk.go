// Package bulk redacts large inputs by splitting them into chunks that are
// masked concurrently and written back in input order.
//
// Chunks are only cut where the redaction kernel cannot see a match crossing
// the cut, so the output is byte-identical to a single whole-buffer call.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/sourcegraph/conc/stream"
	"go.uber.org/zap"

	"github.com/bimmerbailey/sentinel/internal/kernel"
	"github.com/bimmerbailey/sentinel/internal/logging"
)

// DefaultChunkSize is the number of bytes read per chunk when Options.ChunkSize is unset.
const DefaultChunkSize = 4 << 20

// Options configures a Processor.
type Options struct {
	ChunkSize int              // Bytes read per chunk (default 4 MiB)
	Workers   int              // Concurrent chunks (default GOMAXPROCS)
	Redactor  *kernel.Redactor // Defaults to kernel.DefaultRedactor()
	Logger    *zap.Logger      // Optional
}

// Stats summarises one Redact call.
type Stats struct {
	Bytes   int64 `json:"bytes" yaml:"bytes"`     // Bytes read
	Written int64 `json:"written" yaml:"written"` // Bytes written
	Chunks  int   `json:"chunks" yaml:"chunks"`
	Matches int   `json:"matches" yaml:"matches"` // Spans masked
	Forced  int   `json:"forced" yaml:"forced"`   // Chunks cut without a safe split point
}

// Processor runs chunked redaction. It is safe for concurrent use.
type Processor struct {
	chunkSize int
	workers   int
	redactor  *kernel.Redactor
	logger    *zap.Logger
}

// New creates a Processor, filling unset options with defaults.
func New(opts Options) *Processor {
	p := &Processor{
		chunkSize: opts.ChunkSize,
		workers:   opts.Workers,
		redactor:  opts.Redactor,
		logger:    logging.OrNop(opts.Logger),
	}
	if p.chunkSize <= 0 {
		p.chunkSize = DefaultChunkSize
	}
	if p.workers <= 0 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	if p.redactor == nil {
		p.redactor = kernel.DefaultRedactor()
	}
	return p
}

// forceLimit is how large the pending buffer may grow while waiting for a
// safe split point.
func (p *Processor) forceLimit() int {
	return 4*p.chunkSize + kernel.MaxPrivateKeyBlock
}

// Redact reads r to EOF, redacts it and writes the result to w.
//
// Cancellation of ctx is checked between chunks; chunks already submitted are
// still written before Redact returns ctx.Err().
func (p *Processor) Redact(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	var (
		stats  Stats
		werr   error
		failed atomic.Bool
	)

	s := stream.New().WithMaxGoroutines(p.workers)
	rerr := p.chunks(ctx, r, &stats, func(chunk []byte) bool {
		seq := stats.Chunks
		s.Go(func() stream.Callback {
			out := make([]byte, len(chunk))
			n, matches, st := p.redactor.RedactCount(chunk, out)
			// Callbacks run one at a time in submission order.
			return func() {
				if werr != nil {
					return
				}
				if err := st.Err(); err != nil {
					werr = fmt.Errorf("redact chunk %d: %w", seq, err)
					failed.Store(true)
					return
				}
				if _, err := w.Write(out[:n]); err != nil {
					werr = fmt.Errorf("write chunk %d: %w", seq, err)
					failed.Store(true)
					return
				}
				stats.Written += int64(n)
				stats.Matches += matches
				p.logger.Debug("chunk redacted",
					zap.Int("chunk", seq),
					zap.Int("bytes", len(chunk)),
					zap.Int("matches", matches))
			}
		})
		return !failed.Load()
	})
	s.Wait()

	if werr != nil {
		return stats, werr
	}
	return stats, rerr
}

// Each reads r to EOF and calls fn with every chunk, in order, on the calling
// goroutine. Chunks are cut exactly as Redact cuts them, so a match found in a
// chunk is a match Redact masks. The slice passed to fn is only valid for the
// duration of the call. Stats.Written and Stats.Matches are left zero.
func (p *Processor) Each(ctx context.Context, r io.Reader, fn func(chunk []byte) error) (Stats, error) {
	var (
		stats Stats
		ferr  error
	)
	rerr := p.chunks(ctx, r, &stats, func(chunk []byte) bool {
		ferr = fn(chunk)
		return ferr == nil
	})
	if ferr != nil {
		return stats, ferr
	}
	return stats, rerr
}

// chunks reads r and hands each chunk to fn until EOF, an error, cancellation
// of ctx, or fn returning false. Stats.Bytes, Stats.Chunks and Stats.Forced
// are updated as it goes; Stats.Chunks already counts the chunk passed to fn.
func (p *Processor) chunks(ctx context.Context, r io.Reader, stats *Stats, fn func([]byte) bool) error {
	readBuf := make([]byte, p.chunkSize)
	var pending []byte
	emit := func(chunk []byte) bool {
		stats.Chunks++
		return fn(chunk)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := io.ReadFull(r, readBuf)
		stats.Bytes += int64(n)
		eof := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !eof {
			return fmt.Errorf("read input: %w", err)
		}

		data := make([]byte, 0, len(pending)+n)
		data = append(data, pending...)
		data = append(data, readBuf[:n]...)
		pending = nil

		if eof {
			if len(data) > 0 {
				emit(data)
			}
			return nil
		}

		cut := SplitPoint(data)
		if cut == 0 {
			if len(data) <= p.forceLimit() {
				pending = data
				continue
			}
			cut = len(data)
			stats.Forced++
			p.logger.Warn("no safe split point, cutting chunk",
				zap.Int("chunk", stats.Chunks+1),
				zap.Int("bytes", len(data)))
		}
		if cut < len(data) {
			pending = append([]byte(nil), data[cut:]...)
		}
		if !emit(data[:cut]) {
			return nil
		}
	}
}

// RedactBuffer redacts in as a single chunk and returns a newly allocated
// result. Empty input yields an empty result.
func (p *Processor) RedactBuffer(in []byte) ([]byte, error) {
	if len(in) == 0 {
		return []byte{}, nil
	}
	out := make([]byte, len(in))
	n, st := p.redactor.Redact(in, out)
	if err := st.Err(); err != nil {
		return nil, fmt.Errorf("redact buffer: %w", err)
	}
	return out[:n], nil
}

// Redactor returns the redactor used by p.
func (p *Processor) Redactor() *kernel.Redactor {
	return p.redactor
}
