//go:build linux || darwin

package rpty

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func requirePty(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skipf("no pty support: %s", err)
	}
}

func launch(t *testing.T, size WindowSize, argv ...string) *Session {
	t.Helper()
	s, err := Launch(&LaunchRequest{
		Command: argv[0],
		Argv:    argv,
		Size:    size,
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// waitTimeout reaps s on its own goroutine so a stuck child fails the test
// instead of hanging it.
func waitTimeout(t *testing.T, s *Session, d time.Duration) ExitStatus {
	t.Helper()
	ch := make(chan ExitStatus, 1)
	go func() {
		ch <- s.Wait()
	}()
	select {
	case status := <-ch:
		return status
	case <-time.After(d):
		s.Signal(syscall.SIGKILL)
		t.Fatalf("pid %d did not exit within %s", s.Pid, d)
	}
	return StatusUnknown
}

func readUntil(t *testing.T, f *os.File, want string, d time.Duration) string {
	t.Helper()
	f.SetReadDeadline(time.Now().Add(d))
	var out bytes.Buffer
	buf := make([]byte, 1024)
	for !strings.Contains(out.String(), want) {
		n, err := f.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return out.String()
}

func TestAllocate(t *testing.T) {
	requirePty(t)

	pair, err := Allocate()
	if err != nil {
		t.Fatal(err)
	}
	if pair.Master < 0 || pair.Slave < 0 || pair.Master == pair.Slave {
		t.Fatalf("bad descriptors %d %d", pair.Master, pair.Slave)
	}
	if pair.SlavePath == "" {
		t.Fatal("empty slave path")
	}
	if !strings.HasPrefix(pair.SlavePath, "/dev/") {
		t.Fatalf("unexpected slave path %s", pair.SlavePath)
	}
	if err := pair.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWindowSizeRoundTrip(t *testing.T) {
	requirePty(t)

	pair, err := Allocate()
	if err != nil {
		t.Fatal(err)
	}
	defer pair.Close()

	sizes := []WindowSize{
		{Rows: 0, Cols: 0},
		{Rows: 24, Cols: 80},
		{Rows: 300, Cols: 500},
		{Rows: MaxDimension, Cols: MaxDimension},
	}
	for _, size := range sizes {
		if err := SetSize(pair.Master, size); err != nil {
			t.Fatal(err)
		}
		got, err := GetSize(pair.Master)
		if err != nil {
			t.Fatal(err)
		}
		if got != size {
			t.Fatalf("got %s, want %s", got, size)
		}
		// both sides see the same terminal
		got, err = GetSize(pair.Slave)
		if err != nil {
			t.Fatal(err)
		}
		if got != size {
			t.Fatalf("slave got %s, want %s", got, size)
		}
	}
}

func TestNewWindowSize(t *testing.T) {
	ws, err := NewWindowSize(25, 30)
	if err != nil {
		t.Fatal(err)
	}
	if ws.Rows != 25 || ws.Cols != 30 {
		t.Fatalf("rows=%d,cols=%d", ws.Rows, ws.Cols)
	}
	if ws.String() != "30x25" {
		t.Fatalf("unexpected string %s", ws)
	}

	bad := [][2]int{{-1, 10}, {10, -1}, {MaxDimension + 1, 10}, {10, MaxDimension + 1}}
	for _, b := range bad {
		if _, err := NewWindowSize(b[0], b[1]); !errors.Is(err, ErrInvalidSize) {
			t.Fatalf("%v: expected ErrInvalidSize, got %v", b, err)
		}
	}
}

func TestGetSizeBadDescriptor(t *testing.T) {
	if _, err := GetSize(-1); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if err := SetSize(-1, WindowSize{Rows: 1, Cols: 1}); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestLaunchInitialSize(t *testing.T) {
	requirePty(t)

	s := launch(t, WindowSize{Rows: 25, Cols: 30}, "sleep", "30")
	defer s.Close()

	ws, err := GetSize(s.Master)
	if err != nil {
		t.Fatal(err)
	}
	if ws.Rows != 25 || ws.Cols != 30 {
		t.Fatalf("rows=%d,cols=%d", ws.Rows, ws.Cols)
	}

	if err := s.Resize(WindowSize{Rows: 300, Cols: 500}); err != nil {
		t.Fatal(err)
	}
	ws, err = GetSize(s.Master)
	if err != nil {
		t.Fatal(err)
	}
	if ws != s.Size || ws.Rows != 300 || ws.Cols != 500 {
		t.Fatalf("got %s, session holds %s", ws, s.Size)
	}

	if err := s.Signal(syscall.SIGKILL); err != nil {
		t.Fatal(err)
	}
	waitTimeout(t, s, 5*time.Second)
}

func TestChildSeesGeometry(t *testing.T) {
	requirePty(t)

	s := launch(t, WindowSize{Rows: 25, Cols: 30}, "stty", "size")
	defer s.Close()

	f, err := s.File()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	out := readUntil(t, f, "25 30", 5*time.Second)
	if !strings.Contains(out, "25 30") {
		t.Fatalf("stty reported %q", out)
	}
	if status := waitTimeout(t, s, 5*time.Second); status != 0 {
		t.Fatalf("unexpected status %s", status)
	}
}

func TestLaunchExitCode(t *testing.T) {
	requirePty(t)

	s := launch(t, WindowSize{Rows: 24, Cols: 80}, "true")
	defer s.Close()
	status := waitTimeout(t, s, 5*time.Second)
	if !status.Exited() || status.Code() != 0 {
		t.Fatalf("unexpected status %s", status)
	}

	s = launch(t, WindowSize{Rows: 24, Cols: 80}, "/bin/sh", "-c", "exit 3")
	defer s.Close()
	status = waitTimeout(t, s, 5*time.Second)
	if status.Code() != 3 || status.ShellCode() != 3 {
		t.Fatalf("unexpected status %s", status)
	}
}

func TestLaunchMissingCommand(t *testing.T) {
	requirePty(t)

	_, err := Launch(&LaunchRequest{Command: "/nonexistent/ptyctl-test"})
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("expected ErrLaunch, got %v", err)
	}
	if !errors.Is(err, ErrExecFailed) {
		t.Fatalf("expected ErrExecFailed, got %v", err)
	}
	if !errors.Is(err, unix.ENOENT) {
		t.Fatalf("expected ENOENT, got %v", err)
	}

	_, err = Launch(&LaunchRequest{Command: "ptyctl-no-such-command"})
	if !errors.Is(err, ErrExecFailed) {
		t.Fatalf("expected ErrExecFailed, got %v", err)
	}

	if _, err := Launch(&LaunchRequest{}); !errors.Is(err, ErrLaunch) {
		t.Fatalf("expected ErrLaunch, got %v", err)
	}
}

func TestLaunchEnvAndDir(t *testing.T) {
	requirePty(t)

	dir := t.TempDir()
	s, err := Launch(&LaunchRequest{
		Command: "/bin/sh",
		Argv:    []string{"sh", "-c", `echo "$PTYCTL_TEST:$(pwd)"`},
		Env:     map[string]string{"PTYCTL_TEST": "marker"},
		Dir:     dir,
		Size:    WindowSize{Rows: 24, Cols: 80},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	f, err := s.File()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	// ONLCR turns the trailing newline into CRLF
	out := readUntil(t, f, "\r\n", 5*time.Second)
	if !strings.HasPrefix(out, "marker:") {
		t.Fatalf("unexpected output %q", out)
	}
	waitTimeout(t, s, 5*time.Second)
}

func TestLaunchResolvesEnvPath(t *testing.T) {
	requirePty(t)

	dir := t.TempDir()
	script := "#!/bin/sh\necho found-in-env-path\n"
	if err := os.WriteFile(dir+"/ptyctl-env-tool", []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	s, err := Launch(&LaunchRequest{
		Command: "ptyctl-env-tool",
		Env:     map[string]string{"PATH": dir},
		Size:    WindowSize{Rows: 24, Cols: 80},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	f, err := s.File()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if out := readUntil(t, f, "found-in-env-path", 5*time.Second); !strings.Contains(out, "found-in-env-path") {
		t.Fatalf("unexpected output %q", out)
	}
	waitTimeout(t, s, 5*time.Second)

	// the PATH of the request wins over the one of this process
	_, err = Launch(&LaunchRequest{
		Command: "sh",
		Env:     map[string]string{"PATH": t.TempDir()},
	})
	if !errors.Is(err, ErrExecFailed) {
		t.Fatalf("expected ErrExecFailed, got %v", err)
	}
}

func TestLaunchStdinOverride(t *testing.T) {
	requirePty(t)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	// control characters must reach the child untouched
	w.Write([]byte("abc\x03def\rghi\n"))
	w.Close()

	s, err := Launch(&LaunchRequest{
		Command: "/bin/sh",
		Argv:    []string{"sh", "-c", "cat; test -t 1 && : </dev/tty && echo tty-ok"},
		Size:    WindowSize{Rows: 24, Cols: 80},
		Stdin:   r,
	})
	r.Close()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	f, err := s.File()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	out := readUntil(t, f, "tty-ok", 5*time.Second)
	if !strings.Contains(out, "abc\x03def\rghi") || !strings.Contains(out, "tty-ok") {
		t.Fatalf("unexpected output %q", out)
	}
	if status := waitTimeout(t, s, 5*time.Second); status != 0 {
		t.Fatalf("unexpected status %s", status)
	}
}

func TestCloseTwice(t *testing.T) {
	requirePty(t)

	s := launch(t, WindowSize{Rows: 24, Cols: 80}, "sleep", "30")

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	err := s.Close()
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if !errors.Is(err, unix.EBADF) {
		t.Fatalf("expected EBADF, got %v", err)
	}

	// closing the master does not reap or signal the child
	if err := s.Signal(syscall.SIGKILL); err != nil {
		t.Fatal(err)
	}
	waitTimeout(t, s, 5*time.Second)
}

func TestSignalTerminates(t *testing.T) {
	requirePty(t)

	s := launch(t, WindowSize{Rows: 24, Cols: 80}, "sleep", "30")
	defer s.Close()

	if err := s.Signal(syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	status := waitTimeout(t, s, 5*time.Second)
	if !status.Signaled() || status.Signal() != syscall.SIGTERM {
		t.Fatalf("unexpected status %s", status)
	}
	if status.ShellCode() != 128+int(syscall.SIGTERM) {
		t.Fatalf("unexpected shell code %d", status.ShellCode())
	}

	// the status is consumed
	if again := WaitFor(s.Pid); !again.Unknown() {
		t.Fatalf("second wait returned %s", again)
	}
}

func TestSignalInvalidPid(t *testing.T) {
	if err := Signal(0, syscall.SIGTERM); !errors.Is(err, ErrSignal) {
		t.Fatalf("expected ErrSignal, got %v", err)
	}
	if err := Signal(-1, syscall.SIGTERM); !errors.Is(err, ErrSignal) {
		t.Fatalf("expected ErrSignal, got %v", err)
	}
	if status := WaitFor(0); !status.Unknown() {
		t.Fatalf("unexpected status %s", status)
	}
}

func TestConcurrentSessions(t *testing.T) {
	requirePty(t)

	s1 := launch(t, WindowSize{Rows: 10, Cols: 20}, "sleep", "30")
	defer s1.Close()
	s2 := launch(t, WindowSize{Rows: 30, Cols: 40}, "/bin/sh", "-c", "exit 7")
	defer s2.Close()

	if s1.Pid == s2.Pid || s1.Master == s2.Master {
		t.Fatalf("sessions share pid or master: %+v %+v", s1, s2)
	}

	if err := s2.Resize(WindowSize{Rows: 50, Cols: 60}); err != nil {
		t.Fatal(err)
	}
	ws, err := GetSize(s1.Master)
	if err != nil {
		t.Fatal(err)
	}
	if ws.Rows != 10 || ws.Cols != 20 {
		t.Fatalf("resize leaked into the other session: %s", ws)
	}

	if status := waitTimeout(t, s2, 5*time.Second); status.Code() != 7 {
		t.Fatalf("unexpected status %s", status)
	}

	s1.Signal(syscall.SIGKILL)
	if status := waitTimeout(t, s1, 5*time.Second); status.Signal() != syscall.SIGKILL {
		t.Fatalf("unexpected status %s", status)
	}
}

func TestDefaultTermiosApplied(t *testing.T) {
	requirePty(t)

	pair, err := Allocate()
	if err != nil {
		t.Fatal(err)
	}
	defer pair.Close()

	if err := SetAttr(pair.Slave, DefaultTermios()); err != nil {
		t.Fatal(err)
	}
	attr, err := GetAttr(pair.Slave)
	if err != nil {
		t.Fatal(err)
	}
	if attr.Lflag&unix.ECHO == 0 || attr.Lflag&unix.ICANON == 0 {
		t.Fatalf("echo or canonical mode not set: %#x", attr.Lflag)
	}
	if attr.Cc[unix.VINTR] != 3 {
		t.Fatalf("VINTR is %#x", attr.Cc[unix.VINTR])
	}
}
