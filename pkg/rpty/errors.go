//go:build linux || darwin

package rpty

import "errors"

// Error kinds. Every error returned by this package is an *OpError whose
// Kind is one of these, so callers can branch with errors.Is.
var (
	// ErrAllocation means no pseudo-terminal could be provided.
	ErrAllocation = errors.New("pty allocation failed")
	// ErrLaunch means the child process could not be started.
	ErrLaunch = errors.New("process launch failed")
	// ErrIO means a descriptor was invalid or closed, or the OS rejected
	// a terminal control call.
	ErrIO = errors.New("terminal i/o failed")
	// ErrSignal means the pid was invalid or the signal was not permitted.
	ErrSignal = errors.New("signal delivery failed")
	// ErrInvalidSize means window dimensions were out of range.
	ErrInvalidSize = errors.New("invalid window size")
	// ErrExecFailed is wrapped by ErrLaunch errors when the child was
	// created but could not execute the command.
	ErrExecFailed = errors.New("exec failed")
)

// OpError records the failed operation, its kind and the OS cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

// Is reports whether target is the kind of e.
func (e *OpError) Is(target error) bool {
	return target == e.Kind
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func allocError(op string, err error) error {
	return &OpError{Op: op, Kind: ErrAllocation, Err: err}
}

func ioError(op string, err error) error {
	return &OpError{Op: op, Kind: ErrIO, Err: err}
}
