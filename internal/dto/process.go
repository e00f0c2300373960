package dto

import "time"

// ProcessStatus describes the scanner child process.
type ProcessStatus struct {
	Running   bool      `json:"running"`
	Stopping  bool      `json:"stopping,omitempty"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	Command   string    `json:"command"`
}

// ProcessLine is one line of scanner output, as broadcast to event subscribers.
type ProcessLine struct {
	Stream string    `json:"stream"`
	Line   string    `json:"line"`
	Time   time.Time `json:"time"`
}
