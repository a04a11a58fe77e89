//go:build linux || darwin

// Package rpty starts processes attached to a freshly allocated
// pseudo-terminal and exposes the raw control plane of the pair:
// window geometry, signal delivery, reaping and descriptor teardown.
//
// Everything here works on plain descriptors and pids. The package keeps
// no state between calls: the master descriptor and the pid returned by
// Launch belong to the caller, and each must be released exactly once
// (Close for the descriptor, WaitFor for the process).
//
// A master descriptor and a pid must not be used for mutating operations
// (SetSize, Close, Signal, WaitFor) from two goroutines at once without
// external synchronization. Concurrent GetSize calls are safe.
package rpty

import (
	"fmt"
	"math"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// MaxDimension is the largest row or column count a terminal can carry.
const MaxDimension = math.MaxUint16

// WindowSize is the geometry of a terminal in character cells.
type WindowSize struct {
	Rows uint16 `json:"rows" yaml:"rows"`
	Cols uint16 `json:"cols" yaml:"cols"`
}

// NewWindowSize validates caller supplied dimensions. Negative values and
// values above MaxDimension are rejected with ErrInvalidSize.
func NewWindowSize(rows, cols int) (WindowSize, error) {
	if rows < 0 || cols < 0 || rows > MaxDimension || cols > MaxDimension {
		return WindowSize{}, &OpError{
			Op:   "window size",
			Kind: ErrInvalidSize,
			Err:  fmt.Errorf("%d rows, %d cols out of range [0, %d]", rows, cols, MaxDimension),
		}
	}
	return WindowSize{Rows: uint16(rows), Cols: uint16(cols)}, nil
}

func (w WindowSize) String() string {
	return fmt.Sprintf("%dx%d", w.Cols, w.Rows)
}

// Pair is an allocated master/slave terminal pair.
type Pair struct {
	Master    int
	Slave     int
	SlavePath string
}

// Close releases both sides of the pair. It is meant for pairs that never
// reached Launch.
func (p *Pair) Close() error {
	err := Close(p.Master)
	if serr := Close(p.Slave); err == nil {
		err = serr
	}
	return err
}

// LaunchRequest describes the process Launch starts.
type LaunchRequest struct {
	// Command is a path or a bare name. Bare names are resolved through
	// the PATH of Env when it sets one, the PATH of the current process
	// otherwise.
	Command string
	// Argv defaults to [Command] when empty.
	Argv []string
	// Env replaces the environment of the child. A nil map inherits the
	// environment of the current process; an empty one starts the child
	// with no variables at all.
	Env map[string]string
	// Dir is the working directory of the child. Empty means the current one.
	Dir string
	// Size is applied before the child starts.
	Size WindowSize
	// Termios overrides DefaultTermios when set.
	Termios *unix.Termios
	// Stdin replaces the slave as the standard input of the child when
	// set. The slave stays the controlling terminal and the standard
	// output and error. Launch does not close it.
	Stdin *os.File
}

// Session is a launched process and the master side of its terminal.
// Size always holds the launch size or the last size applied through
// Resize.
type Session struct {
	Pid    int
	Master int
	Size   WindowSize
}

// Resize applies size to the terminal and records it on success.
func (s *Session) Resize(size WindowSize) error {
	if err := SetSize(s.Master, size); err != nil {
		return err
	}
	s.Size = size
	return nil
}

// Signal delivers sig to the session process.
func (s *Session) Signal(sig syscall.Signal) error {
	return Signal(s.Pid, sig)
}

// Wait blocks until the session process terminates. See WaitFor.
func (s *Session) Wait() ExitStatus {
	return WaitFor(s.Pid)
}

// Close releases the master descriptor. It does not signal the process.
func (s *Session) Close() error {
	return Close(s.Master)
}

// File returns a byte stream over the master. See Stream.
func (s *Session) File() (*os.File, error) {
	return Stream(s.Master)
}
