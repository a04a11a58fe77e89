package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ferama/ptyctl/pkg/rpty"
)

var (
	// ErrClosed is returned by operations on a session whose master was
	// already released
	ErrClosed = errors.New("session closed")
	// ErrExited is returned when signalling a process that was reaped
	ErrExited = errors.New("session process exited")
	// ErrAttached is returned by TryAttach while another client holds the
	// session
	ErrAttached = errors.New("session already attached")
)

// Meta describes where a session comes from
type Meta struct {
	Command   string    `json:"command"`
	Args      []string  `json:"args"`
	Origin    string    `json:"origin"`
	StartedAt time.Time `json:"started_at"`
}

// Session is a process running on a pseudo terminal, tracked by the
// Manager. Its reaper runs on a dedicated goroutine, so Wait never
// consumes the exit status itself.
type Session struct {
	ID   int
	Pid  int
	Meta Meta

	// mu guards the master descriptor against a concurrent Close
	mu     sync.Mutex
	rs     *rpty.Session
	closed bool

	closeOnce sync.Once

	done   chan struct{}
	status rpty.ExitStatus

	attached atomic.Bool
}

func newSession(id int, rs *rpty.Session, meta Meta) *Session {
	return &Session{
		ID:   id,
		Pid:  rs.Pid,
		Meta: meta,
		rs:   rs,
		done: make(chan struct{}),
	}
}

func (s *Session) reap() rpty.ExitStatus {
	s.status = s.rs.Wait()
	close(s.done)
	return s.status
}

// Size reads the current geometry from the terminal
func (s *Session) Size() (rpty.WindowSize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return rpty.WindowSize{}, ErrClosed
	}
	return rpty.GetSize(s.rs.Master)
}

// Resize applies a new geometry. The child receives SIGWINCH from the
// kernel when the size actually changes
func (s *Session) Resize(size rpty.WindowSize) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.rs.Resize(size)
}

// Signal delivers sig to the session process. Closing the session does
// not prevent signalling, a reaped process does.
func (s *Session) Signal(sig syscall.Signal) error {
	if s.Exited() {
		return ErrExited
	}
	return s.rs.Signal(sig)
}

// Done is closed once the process has been reaped
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Exited reports whether the process has been reaped
func (s *Session) Exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Status returns the exit status and whether it is available yet
func (s *Session) Status() (rpty.ExitStatus, bool) {
	if !s.Exited() {
		return rpty.StatusUnknown, false
	}
	return s.status, true
}

// Wait blocks until the process exits or ctx is done
func (s *Session) Wait(ctx context.Context) (rpty.ExitStatus, error) {
	select {
	case <-s.done:
		return s.status, nil
	case <-ctx.Done():
		return rpty.StatusUnknown, ctx.Err()
	}
}

// Stream returns a new byte stream over the master. Each call returns an
// independent descriptor the caller must close. Streams survive Close.
func (s *Session) Stream() (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.rs.File()
}

// Close releases the master descriptor. Only the first call does any work,
// the following ones return ErrClosed.
func (s *Session) Close() error {
	err := ErrClosed
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		err = s.rs.Close()
	})
	return err
}

// Closed reports whether Close was called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// TryAttach marks the session as attached to a client. Only one client
// can be attached at a time
func (s *Session) TryAttach() error {
	if !s.attached.CompareAndSwap(false, true) {
		return ErrAttached
	}
	return nil
}

// Detach releases the attach slot
func (s *Session) Detach() {
	s.attached.Store(false)
}

// Attached reports whether a client is attached
func (s *Session) Attached() bool {
	return s.attached.Load()
}
