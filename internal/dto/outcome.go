package dto

import "time"

// CycleStatus is the terminal state of one sampling cycle.
type CycleStatus string

const (
	StatusNoDetection  CycleStatus = "no_detection"
	StatusUnrecognized CycleStatus = "unrecognized"
	StatusReported     CycleStatus = "reported"
	StatusFailed       CycleStatus = "inference_failed"
)

// Receipt describes what the inventory backend answered to a report.
type Receipt struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body,omitempty"`
	Err        string `json:"error,omitempty"`
	Success    bool   `json:"success"`
	NeedsPrice bool   `json:"needsPrice"`
}

// Delivered reports whether the backend answered with a 2xx status.
func (r Receipt) Delivered() bool {
	return r.Err == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// Outcome is the result of one sampling cycle, from accepted frame to report.
type Outcome struct {
	RunID     string           `json:"runId"`
	CycleID   string           `json:"cycleId"`
	Time      time.Time        `json:"time"`
	Status    CycleStatus      `json:"status"`
	Detection *DetectionResult `json:"detection,omitempty"`
	Product   string           `json:"product,omitempty"`
	Receipt   *Receipt         `json:"receipt,omitempty"`
}
