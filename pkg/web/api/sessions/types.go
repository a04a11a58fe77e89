package sessionsapi

import (
	"time"

	"github.com/ferama/ptyctl/pkg/rpty"
	"github.com/ferama/ptyctl/pkg/session"
)

// launchRequest is the body of a launch. An empty command runs the
// configured shell, missing dimensions take the configured ones
type launchRequest struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	Dir     string            `json:"dir"`
	Rows    *int              `json:"rows"`
	Cols    *int              `json:"cols"`
}

type sizeRequest struct {
	Rows *int `json:"rows" binding:"required"`
	Cols *int `json:"cols" binding:"required"`
}

// signalRequest carries a signal name ("TERM", "SIGTERM") or number
type signalRequest struct {
	Signal any `json:"signal" binding:"required"`
}

type responseItem struct {
	ID        int       `json:"id"`
	Pid       int       `json:"pid"`
	Command   string    `json:"command"`
	Args      []string  `json:"args"`
	Origin    string    `json:"origin"`
	StartedAt time.Time `json:"started_at"`
	Rows      uint16    `json:"rows"`
	Cols      uint16    `json:"cols"`
	Running   bool      `json:"running"`
	Closed    bool      `json:"closed"`
	Attached  bool      `json:"attached"`

	Exit *exitResponse `json:"exit,omitempty"`
}

type exitResponse struct {
	// ExitStatus follows the shell convention: 128+N for signal N
	ExitStatus int    `json:"exit_status"`
	Signaled   bool   `json:"signaled"`
	Signal     string `json:"signal,omitempty"`
	Status     string `json:"status"`
}

// controlMessage is a text frame on the attach websocket
type controlMessage struct {
	Type string `json:"type"`

	Rows   int    `json:"rows,omitempty"`
	Cols   int    `json:"cols,omitempty"`
	Signal string `json:"signal,omitempty"`

	Exit  *exitResponse `json:"exit,omitempty"`
	Error string        `json:"error,omitempty"`
}

func newExitResponse(status rpty.ExitStatus) *exitResponse {
	res := &exitResponse{
		ExitStatus: status.ShellCode(),
		Signaled:   status.Signaled(),
		Status:     status.String(),
	}
	if status.Signaled() {
		res.Signal = rpty.SignalName(status.Signal())
	}
	return res
}

func newResponseItem(s *session.Session) responseItem {
	item := responseItem{
		ID:        s.ID,
		Pid:       s.Pid,
		Command:   s.Meta.Command,
		Args:      s.Meta.Args,
		Origin:    s.Meta.Origin,
		StartedAt: s.Meta.StartedAt,
		Running:   !s.Exited(),
		Closed:    s.Closed(),
		Attached:  s.Attached(),
	}
	if size, err := s.Size(); err == nil {
		item.Rows = size.Rows
		item.Cols = size.Cols
	}
	if status, ok := s.Status(); ok {
		item.Exit = newExitResponse(status)
	}
	return item
}
