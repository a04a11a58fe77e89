package session

import (
	"context"
	"fmt"
	"sort"
	"syscall"
	"time"

	"github.com/ferama/ptyctl/pkg/logger"
	"github.com/ferama/ptyctl/pkg/registry"
	"github.com/ferama/ptyctl/pkg/rpty"
	"github.com/ferama/ptyctl/pkg/worker"
)

var log = logger.NewLogger("[SESS] ", logger.Cyan)

// killGrace is how long Shutdown waits for a SIGKILLed process
const killGrace = 2 * time.Second

// Manager keeps track of the live sessions
type Manager struct {
	sessions *registry.Registry[*Session]
	workers  int
}

// NewManager builds a manager. workers bounds the parallelism of Shutdown
func NewManager(workers int) *Manager {
	return &Manager{
		sessions: registry.NewRegistry[*Session](),
		workers:  workers,
	}
}

// Start launches req and registers the resulting session. The process is
// reaped on a dedicated goroutine.
func (m *Manager) Start(req *rpty.LaunchRequest, meta Meta) (*Session, error) {
	rs, err := rpty.Launch(req)
	if err != nil {
		return nil, fmt.Errorf("cannot start %q: %w", req.Command, err)
	}
	if meta.Command == "" {
		meta.Command = req.Command
	}
	if meta.StartedAt.IsZero() {
		meta.StartedAt = time.Now()
	}

	var s *Session
	m.sessions.AddFunc(func(id int) *Session {
		s = newSession(id, rs, meta)
		return s
	})
	log.Printf("session %d started: pid %d, %s, size %s", s.ID, s.Pid, meta.Command, rs.Size)

	go func() {
		status := s.reap()
		log.Printf("session %d exited: %s", s.ID, status)
	}()

	return s, nil
}

// Get returns a session by id
func (m *Manager) Get(id int) (*Session, error) {
	return m.sessions.GetByID(id)
}

// List returns the registered sessions ordered by id
func (m *Manager) List() []*Session {
	all := m.sessions.GetAll()
	list := make([]*Session, 0, len(all))
	for _, s := range all {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// Len returns the number of registered sessions
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Kill delivers sig to the session process
func (m *Manager) Kill(id int, sig syscall.Signal) error {
	s, err := m.sessions.GetByID(id)
	if err != nil {
		return err
	}
	return s.Signal(sig)
}

// Remove closes the session master and forgets the session. The process
// is not signalled: it sees a hangup on its terminal and is still reaped
// when it exits.
func (m *Manager) Remove(id int) error {
	s, err := m.sessions.GetByID(id)
	if err != nil {
		return err
	}
	if err := m.sessions.Delete(id); err != nil {
		return err
	}
	if err := s.Close(); err != nil && err != ErrClosed {
		return err
	}
	log.Printf("session %d removed", id)
	return nil
}

// Shutdown sends sig to every live session and waits for the processes to
// exit. Processes still running when ctx is done get SIGKILL. Every
// session is closed and removed on return.
func (m *Manager) Shutdown(ctx context.Context, sig syscall.Signal) {
	pool := worker.NewPool(m.workers)
	defer pool.Stop()

	for _, s := range m.List() {
		s := s
		pool.Enqueue(func() {
			m.stop(ctx, s, sig)
		})
	}
	pool.Wait()
}

func (m *Manager) stop(ctx context.Context, s *Session, sig syscall.Signal) {
	if err := s.Signal(sig); err != nil && err != ErrExited {
		log.Printf("session %d: %s", s.ID, err)
	}
	select {
	case <-s.Done():
	case <-ctx.Done():
		log.Printf("session %d did not exit, killing", s.ID)
		s.Signal(syscall.SIGKILL)
		select {
		case <-s.Done():
		case <-time.After(killGrace):
			log.Printf("session %d: pid %d still running", s.ID, s.Pid)
		}
	}
	m.Remove(s.ID)
}
