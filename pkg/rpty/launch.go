//go:build linux || darwin

package rpty

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Launch allocates a pair, applies the initial geometry and terminal
// attributes and starts the command with the slave as its controlling
// terminal and standard streams.
//
// The child runs in a new session. The slave is closed in the parent on
// every path; the master is close-on-exec, so only the caller holds it.
// A command that cannot be executed is reported synchronously as an
// ErrLaunch error wrapping ErrExecFailed; the runtime has already reaped
// the child in that case.
func Launch(req *LaunchRequest) (*Session, error) {
	if req == nil || req.Command == "" {
		return nil, &OpError{Op: "launch", Kind: ErrLaunch, Err: errors.New("empty command")}
	}
	path, err := lookPath(req.Command, req.Env)
	if err != nil {
		return nil, execFailure(req.Command, err)
	}

	pair, err := Allocate()
	if err != nil {
		return nil, err
	}
	defer unix.Close(pair.Slave)

	// the geometry must be in place before the child can query it
	if err := SetSize(pair.Master, req.Size); err != nil {
		unix.Close(pair.Master)
		return nil, err
	}
	termios := req.Termios
	if termios == nil {
		termios = DefaultTermios()
	}
	if err := SetAttr(pair.Slave, termios); err != nil {
		unix.Close(pair.Master)
		return nil, err
	}

	argv := req.Argv
	if len(argv) == 0 {
		argv = []string{req.Command}
	}
	slave := uintptr(pair.Slave)
	stdin := slave
	if req.Stdin != nil {
		stdin = req.Stdin.Fd()
	}
	attr := &syscall.ProcAttr{
		Dir:   req.Dir,
		Env:   environ(req.Env),
		Files: []uintptr{stdin, slave, slave},
		Sys: &syscall.SysProcAttr{
			Setsid:  true,
			Setctty: true,
			// descriptor number in the child, stdout is always the slave
			Ctty: 1,
		},
	}
	pid, err := syscall.ForkExec(path, argv, attr)
	runtime.KeepAlive(req.Stdin)
	if err != nil {
		unix.Close(pair.Master)
		if err == syscall.EAGAIN || err == syscall.ENOMEM {
			return nil, &OpError{Op: "fork", Kind: ErrLaunch, Err: err}
		}
		return nil, execFailure(req.Command, err)
	}
	return &Session{Pid: pid, Master: pair.Master, Size: req.Size}, nil
}

func execFailure(command string, err error) error {
	return &OpError{
		Op:   "launch",
		Kind: ErrLaunch,
		Err:  &OpError{Op: "exec " + command, Kind: ErrExecFailed, Err: err},
	}
}

func lookPath(command string, env map[string]string) (string, error) {
	if strings.Contains(command, "/") {
		return command, nil
	}
	path, ok := env["PATH"]
	if !ok {
		return exec.LookPath(command)
	}
	for _, dir := range filepath.SplitList(path) {
		candidate := filepath.Join(dir, command)
		if !strings.Contains(candidate, "/") {
			// empty or "." entries mean the working directory
			candidate = "./" + candidate
		}
		// a name with a slash is only checked for being executable
		if found, err := exec.LookPath(candidate); err == nil {
			return found, nil
		}
	}
	return "", &exec.Error{Name: command, Err: exec.ErrNotFound}
}

func environ(env map[string]string) []string {
	if env == nil {
		return os.Environ()
	}
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	sort.Strings(list)
	return list
}
