// Package follow provides "tail -f" for log files with every line passed
// through the redaction kernel before it is shown.
//
// It supports an optional regex filter, truncation handling and log rotation
// detection. The redactor is looked up for each line, so a configuration
// reload takes effect on the next line written. Lines inside an open private
// key block are held back and redacted together once the block ends.
package follow

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/bimmerbailey/sentinel/internal/kernel"
	"github.com/bimmerbailey/sentinel/internal/logging"
)

// ErrRotated is returned by Run when the file is rotated and FollowRotate is off.
var ErrRotated = errors.New("file rotated")

const (
	maxLineSize    = 1024 * 1024 // 1MB
	rotateTimeout  = 10 * time.Second
	rotateInterval = 100 * time.Millisecond
)

// Options configures the follower behavior.
type Options struct {
	FilePath     string                  // Path to the log file
	Lines        int                     // Number of initial lines to show
	Follow       bool                    // Whether to follow the file for new content
	FollowRotate bool                    // Whether to follow through log rotations
	Pattern      *regexp.Regexp          // Optional filter, matched against the redacted line
	Redactor     func() *kernel.Redactor // Current redactor; nil means kernel.DefaultRedactor
	OutputFunc   OutputFunc              // Called with each redacted line
	Logger       *zap.Logger             // Optional
}

// OutputFunc receives a redacted line and the redactor that masked it. The
// line is valid only during the call.
type OutputFunc func(line []byte, r *kernel.Redactor) error

// Follower tails a single file.
type Follower struct {
	opts    Options
	logger  *zap.Logger
	file    *os.File
	offset  int64
	watcher *fsnotify.Watcher
	out     []byte
	block   []byte // lines of an unterminated private key block, newline-joined
}

// New creates a new Follower with the given options.
func New(opts Options) *Follower {
	if opts.Redactor == nil {
		opts.Redactor = kernel.DefaultRedactor
	}
	return &Follower{
		opts:   opts,
		logger: logging.OrNop(opts.Logger),
	}
}

// Run starts following. It blocks until ctx is cancelled or an error occurs.
func (f *Follower) Run(ctx context.Context) error {
	if err := f.openFile(); err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.close()

	if f.opts.Lines > 0 {
		if err := f.readInitialLines(); err != nil {
			return fmt.Errorf("failed to read initial lines: %w", err)
		}
	}

	if !f.opts.Follow {
		return f.flush()
	}

	if err := f.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}

	return f.watch(ctx)
}

func (f *Follower) openFile() error {
	file, err := os.Open(f.opts.FilePath)
	if err != nil {
		return err
	}
	f.file = file

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	f.offset = stat.Size()
	return nil
}

// readInitialLines emits the last N non-empty lines of the file.
func (f *Follower) readInitialLines() error {
	stat, err := f.file.Stat()
	if err != nil {
		return err
	}
	fileSize := stat.Size()
	if fileSize == 0 {
		return nil
	}

	// Assume ~300 bytes per line, doubled, and skip the partial first line.
	startPos := fileSize - int64(f.opts.Lines*300*2)
	if startPos < 0 {
		startPos = 0
	}
	if _, err := f.file.Seek(startPos, io.SeekStart); err != nil {
		return err
	}

	scanner := bufio.NewScanner(f.file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	if startPos > 0 {
		scanner.Scan()
	}

	var lines [][]byte
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
		if len(lines) > f.opts.Lines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for _, line := range lines {
		if err := f.emit(line); err != nil {
			return err
		}
	}

	f.offset = fileSize
	return nil
}

func (f *Follower) setupWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	f.watcher = watcher
	return watcher.Add(f.opts.FilePath)
}

// watch monitors the file for changes and emits new lines.
func (f *Follower) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-f.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed unexpectedly")
			}
			if err := f.handleEvent(ctx, event); err != nil {
				return err
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (f *Follower) handleEvent(ctx context.Context, event fsnotify.Event) error {
	switch {
	case event.Has(fsnotify.Write):
		return f.readNewContent()
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		return f.handleRotation(ctx)
	}
	return nil
}

// readNewContent emits every complete line written since the last read. A
// trailing line without its newline stays unread until it is finished.
func (f *Follower) readNewContent() error {
	stat, err := f.file.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < f.offset {
		f.logger.Info("file truncated, reading from start",
			zap.String("path", f.opts.FilePath),
			zap.Int64("size", stat.Size()),
			zap.Int64("offset", f.offset))
		f.offset = 0
		if err := f.flush(); err != nil {
			return err
		}
	}
	if stat.Size() == f.offset {
		return nil
	}

	if _, err := f.file.Seek(f.offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(f.file, stat.Size()-f.offset))
	if err != nil {
		return err
	}

	consumed := 0
	for {
		nl := bytes.IndexByte(data[consumed:], '\n')
		if nl < 0 {
			break
		}
		line := data[consumed : consumed+nl]
		consumed += nl + 1
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := f.emit(line); err != nil {
			f.offset += int64(consumed)
			return err
		}
	}
	// Emit an overlong unterminated line rather than waiting forever.
	if len(data)-consumed >= maxLineSize {
		if err := f.emit(data[consumed:]); err != nil {
			return err
		}
		consumed = len(data)
	}
	f.offset += int64(consumed)
	return nil
}

// emit passes one complete line on. A line that opens a private key block
// starts a hold; held lines are redacted as one text when the block closes
// or grows past kernel.MaxPrivateKeyBlock.
func (f *Follower) emit(line []byte) error {
	if len(f.block) == 0 && kernel.UnterminatedBlock(line) < 0 {
		return f.write(line)
	}
	f.block = append(f.block, line...)
	f.block = append(f.block, '\n')
	if kernel.UnterminatedBlock(f.block) >= 0 {
		return nil
	}
	return f.flush()
}

// flush writes out any held block.
func (f *Follower) flush() error {
	if len(f.block) == 0 {
		return nil
	}
	err := f.write(f.block[:len(f.block)-1])
	f.block = f.block[:0]
	return err
}

// write redacts text and hands each resulting line that passes the filter to
// OutputFunc.
func (f *Follower) write(text []byte) error {
	r := f.opts.Redactor()
	if cap(f.out) < len(text) {
		f.out = make([]byte, len(text))
	}
	out := f.out[:len(text)]
	n, st := r.Redact(text, out)
	if err := st.Err(); err != nil {
		return fmt.Errorf("redact line: %w", err)
	}

	for rest := out[:n]; len(rest) > 0; {
		line := rest
		if nl := bytes.IndexByte(rest, '\n'); nl >= 0 {
			line, rest = rest[:nl], rest[nl+1:]
		} else {
			rest = nil
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if f.opts.Pattern != nil && !f.opts.Pattern.Match(line) {
			continue
		}
		if err := f.opts.OutputFunc(line, r); err != nil {
			return err
		}
	}
	return nil
}

// handleRotation waits for a rotated file to reappear and reopens it.
func (f *Follower) handleRotation(ctx context.Context) error {
	if !f.opts.FollowRotate {
		f.logger.Warn("file rotated, exiting; use --follow-rotate to follow through rotations",
			zap.String("path", f.opts.FilePath))
		return ErrRotated
	}

	if err := f.flush(); err != nil {
		return err
	}
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}

	timeout := time.After(rotateTimeout)
	ticker := time.NewTicker(rotateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for rotated file to reappear")
		case <-ticker.C:
			file, err := os.Open(f.opts.FilePath)
			if err != nil {
				continue
			}
			f.file = file
			f.offset = 0

			if err := f.watcher.Add(f.opts.FilePath); err != nil {
				return fmt.Errorf("failed to watch rotated file: %w", err)
			}
			f.logger.Info("file rotated, following new file", zap.String("path", f.opts.FilePath))
			// Lines written before the watch was re-added.
			return f.readNewContent()
		}
	}
}

func (f *Follower) close() {
	if f.file != nil {
		f.file.Close()
	}
	if f.watcher != nil {
		f.watcher.Close()
	}
}
