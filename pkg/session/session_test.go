package session

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/ferama/ptyctl/pkg/registry"
	"github.com/ferama/ptyctl/pkg/rpty"
)

func requirePty(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no pseudo terminal support")
	}
}

func start(t *testing.T, m *Manager, argv ...string) *Session {
	t.Helper()
	req := &rpty.LaunchRequest{
		Command: argv[0],
		Argv:    argv,
		Size:    rpty.WindowSize{Rows: 24, Cols: 80},
	}
	s, err := m.Start(req, Meta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func wait(t *testing.T, s *Session) rpty.ExitStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := s.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return status
}

func TestStartAndWait(t *testing.T) {
	requirePty(t)
	m := NewManager(2)

	s := start(t, m, "/bin/sh", "-c", "exit 7")
	if s.ID != 1 {
		t.Fatalf("first id is %d", s.ID)
	}
	if s.Meta.Command != "/bin/sh" || s.Meta.StartedAt.IsZero() {
		t.Fatalf("meta not filled: %+v", s.Meta)
	}
	if status := wait(t, s); status.Code() != 7 {
		t.Fatalf("status %s", status)
	}
	// the status is recorded, waiting again returns it
	if status := wait(t, s); status.Code() != 7 {
		t.Fatalf("second wait %s", status)
	}
	if status, ok := s.Status(); !ok || status.Code() != 7 {
		t.Fatalf("status %s %v", status, ok)
	}

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatal("session not registered")
	}
}

func TestWaitTimeout(t *testing.T) {
	requirePty(t)
	m := NewManager(1)
	s := start(t, m, "/bin/sleep", "30")
	defer m.Shutdown(context.Background(), syscall.SIGKILL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if s.Exited() {
		t.Fatal("should be running")
	}
}

func TestKill(t *testing.T) {
	requirePty(t)
	m := NewManager(1)
	s := start(t, m, "/bin/sleep", "30")

	if err := m.Kill(s.ID, syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	status := wait(t, s)
	if !status.Signaled() || status.Signal() != syscall.SIGTERM {
		t.Fatalf("status %s", status)
	}
	if err := m.Kill(s.ID, syscall.SIGTERM); !errors.Is(err, ErrExited) {
		t.Fatalf("expected ErrExited, got %v", err)
	}
	if err := m.Kill(99, syscall.SIGTERM); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResizeAndSize(t *testing.T) {
	requirePty(t)
	m := NewManager(1)
	s := start(t, m, "/bin/sleep", "30")
	defer m.Shutdown(context.Background(), syscall.SIGKILL)

	want := rpty.WindowSize{Rows: 50, Cols: 132}
	if err := s.Resize(want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Size()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("size is %s", got)
	}
}

func TestCloseOnce(t *testing.T) {
	requirePty(t)
	m := NewManager(1)
	s := start(t, m, "/bin/sleep", "30")
	defer m.Shutdown(context.Background(), syscall.SIGKILL)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Size(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Resize(rpty.WindowSize{Rows: 1, Cols: 1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := s.Stream(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	// closing never signals, the process is still there
	if s.Exited() {
		t.Fatal("close must not terminate the process")
	}
	if err := s.Signal(syscall.SIGKILL); err != nil {
		t.Fatal(err)
	}
	wait(t, s)
}

func TestStream(t *testing.T) {
	requirePty(t)
	m := NewManager(1)
	s := start(t, m, "/bin/sh", "-c", "read line; echo got:$line")

	f, err := s.Stream()
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("hello\n")); err != nil {
		t.Fatal(err)
	}
	f.SetReadDeadline(time.Now().Add(5 * time.Second))
	var out strings.Builder
	buf := make([]byte, 256)
	for !strings.Contains(out.String(), "got:hello") {
		n, err := f.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			if err == io.EOF || errors.Is(err, syscall.EIO) {
				break
			}
			t.Fatalf("%v after %q", err, out.String())
		}
	}
	if !strings.Contains(out.String(), "got:hello") {
		t.Fatalf("unexpected output %q", out.String())
	}
	wait(t, s)
}

func TestAttachExclusive(t *testing.T) {
	s := &Session{}
	if err := s.TryAttach(); err != nil {
		t.Fatal(err)
	}
	if err := s.TryAttach(); !errors.Is(err, ErrAttached) {
		t.Fatalf("expected ErrAttached, got %v", err)
	}
	s.Detach()
	if err := s.TryAttach(); err != nil {
		t.Fatal(err)
	}
}

func TestRemove(t *testing.T) {
	requirePty(t)
	m := NewManager(1)
	s := start(t, m, "/bin/sh", "-c", "exit 0")
	wait(t, s)

	if err := m.Remove(s.ID); err != nil {
		t.Fatal(err)
	}
	if !s.Closed() {
		t.Fatal("remove must close the session")
	}
	if _, err := m.Get(s.ID); !errors.Is(err, registry.ErrNotFound) {
		t.Fatal("session still registered")
	}
	if err := m.Remove(s.ID); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestShutdown(t *testing.T) {
	requirePty(t)
	m := NewManager(2)
	var sessions []*Session
	for range 3 {
		sessions = append(sessions, start(t, m, "/bin/sleep", "30"))
	}
	// ignores the polite signal
	stubborn := start(t, m, "/bin/sh", "-c", "trap '' TERM; sleep 30")
	time.Sleep(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Shutdown(ctx, syscall.SIGTERM)

	if m.Len() != 0 {
		t.Fatalf("%d sessions left", m.Len())
	}
	for _, s := range sessions {
		status, ok := s.Status()
		if !ok || status.Signal() != syscall.SIGTERM {
			t.Fatalf("session %d: %s", s.ID, status)
		}
	}
	status, ok := stubborn.Status()
	if !ok || status.Signal() != syscall.SIGKILL {
		t.Fatalf("stubborn session: %s", status)
	}
}

func TestList(t *testing.T) {
	requirePty(t)
	m := NewManager(1)
	for range 3 {
		start(t, m, "/bin/sh", "-c", "exit 0")
	}
	list := m.List()
	if len(list) != 3 {
		t.Fatalf("listed %d", len(list))
	}
	for i, s := range list {
		if s.ID != i+1 {
			t.Fatalf("not ordered: %d at %d", s.ID, i)
		}
		wait(t, s)
	}
}
