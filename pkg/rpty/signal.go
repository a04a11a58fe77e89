//go:build linux || darwin

package rpty

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signal delivers sig to pid. Only pids returned by Launch and not yet
// reaped may be signalled: once reaped a pid can be reused by an unrelated
// process. Non positive pids are rejected so a signal never reaches a
// whole process group by accident.
func Signal(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return &OpError{Op: "kill", Kind: ErrSignal, Err: fmt.Errorf("invalid pid %d", pid)}
	}
	if err := unix.Kill(pid, sig); err != nil {
		return &OpError{Op: "kill " + strconv.Itoa(pid), Kind: ErrSignal, Err: err}
	}
	return nil
}

// ParseSignal accepts a signal number ("15") or name ("TERM", "SIGTERM",
// case insensitive).
func ParseSignal(s string) (syscall.Signal, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 || unix.SignalName(syscall.Signal(n)) == "" {
			return 0, &OpError{Op: "parse signal", Kind: ErrSignal, Err: fmt.Errorf("unknown signal %d", n)}
		}
		return syscall.Signal(n), nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, &OpError{Op: "parse signal", Kind: ErrSignal, Err: fmt.Errorf("unknown signal %q", s)}
	}
	return sig, nil
}

// SignalName returns the name of sig without the SIG prefix, as used on
// the SSH wire ("TERM", "KILL").
func SignalName(sig syscall.Signal) string {
	return strings.TrimPrefix(unix.SignalName(sig), "SIG")
}
