package kernel

import "errors"

// Status is the result code returned by every kernel operation.
type Status int

const (
	Ok Status = iota
	InvalidArgument
	OutputTooSmall
)

// Sentinel errors matching the non-Ok status codes, for callers that prefer
// errors.Is over comparing codes.
var (
	ErrInvalidArgument = errors.New("kernel: invalid argument")
	ErrOutputTooSmall  = errors.New("kernel: output buffer too small")
)

// String returns the name of the status code.
func (s Status) String() string {
	switch s {
	case Ok:
		return "Ok"
	case InvalidArgument:
		return "InvalidArgument"
	case OutputTooSmall:
		return "OutputTooSmall"
	default:
		return "Unknown"
	}
}

// Err converts the status into an error. It returns nil for Ok.
func (s Status) Err() error {
	switch s {
	case Ok:
		return nil
	case InvalidArgument:
		return ErrInvalidArgument
	case OutputTooSmall:
		return ErrOutputTooSmall
	default:
		return errors.New("kernel: unknown status")
	}
}
