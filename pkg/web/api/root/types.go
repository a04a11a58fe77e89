package rootapi

import "time"

// Info holds useful information to display on the ui
type Info struct {
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	Shell     string    `json:"shell"`
}

type infoResponse struct {
	*Info
	CountSessions int `json:"sessions"`
}

type statsResponse struct {
	CountSessions         int `json:"sessions"`
	CountRunningSessions  int `json:"running_sessions"`
	CountAttachedSessions int `json:"attached_sessions"`

	// runtime stats
	NumGoroutine int    `json:"goroutines"`
	MemTotal     uint64 `json:"mem_total"`
}
