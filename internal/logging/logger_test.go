package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Run("verbose returns development logger", func(t *testing.T) {
		logger, err := New(true)
		if err != nil {
			t.Fatalf("New(true) error: %v", err)
		}
		if logger == nil {
			t.Fatal("New(true) returned nil logger")
		}
		if !logger.Core().Enabled(zap.DebugLevel) {
			t.Error("New(true) logger does not log at debug level")
		}
		_ = logger.Sync()
	})

	t.Run("quiet returns production logger", func(t *testing.T) {
		logger, err := New(false)
		if err != nil {
			t.Fatalf("New(false) error: %v", err)
		}
		if logger == nil {
			t.Fatal("New(false) returned nil logger")
		}
		if logger.Core().Enabled(zap.DebugLevel) {
			t.Error("New(false) logger logs at debug level")
		}
		_ = logger.Sync()
	})
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Error("OrNop() replaced a non-nil logger")
	}
}
