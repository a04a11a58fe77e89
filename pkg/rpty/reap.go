//go:build linux || darwin

package rpty

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	// StatusUnknown is returned when no status could be collected, for
	// instance because the pid was already reaped or is not a child.
	StatusUnknown ExitStatus = -1

	// ExecFailedStatus is the conventional status for a command that
	// could not be executed.
	ExecFailedStatus = 127

	signalBase = 256
)

// ExitStatus encodes how a process terminated: 0-255 is a normal exit
// code, 256+N means termination by signal N, StatusUnknown means the
// status was not available.
type ExitStatus int

// Exited reports a normal exit.
func (s ExitStatus) Exited() bool {
	return s >= 0 && s < signalBase
}

// Signaled reports termination by a signal.
func (s ExitStatus) Signaled() bool {
	return s >= signalBase
}

// Unknown reports that no status was collected.
func (s ExitStatus) Unknown() bool {
	return s < 0
}

// Code is the exit code, or -1 if the process did not exit normally.
func (s ExitStatus) Code() int {
	if !s.Exited() {
		return -1
	}
	return int(s)
}

// Signal is the terminating signal, or 0 if the process was not signalled.
func (s ExitStatus) Signal() syscall.Signal {
	if !s.Signaled() {
		return 0
	}
	return syscall.Signal(s - signalBase)
}

// ShellCode folds the status into the shell convention: the exit code, or
// 128+N for a process killed by signal N.
func (s ExitStatus) ShellCode() int {
	switch {
	case s.Exited():
		return int(s)
	case s.Signaled():
		return 128 + int(s.Signal())
	}
	return 255
}

func (s ExitStatus) String() string {
	switch {
	case s.Exited():
		return fmt.Sprintf("exit status %d", int(s))
	case s.Signaled():
		return "signal: " + unix.SignalName(s.Signal())
	}
	return "unknown status"
}

func decodeStatus(ws unix.WaitStatus) ExitStatus {
	switch {
	case ws.Exited():
		return ExitStatus(ws.ExitStatus())
	case ws.Signaled():
		return ExitStatus(signalBase + int(ws.Signal()))
	}
	return StatusUnknown
}

// WaitFor blocks until pid terminates and returns its status. It consumes
// the status: a second call for the same pid returns StatusUnknown. There
// is no way to cancel the wait other than making the process exit, for
// example with Signal.
func WaitFor(pid int) ExitStatus {
	if pid <= 0 {
		return StatusUnknown
	}
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return StatusUnknown
		}
		return decodeStatus(ws)
	}
}
