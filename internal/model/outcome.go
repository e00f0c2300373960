package model

import (
	"time"

	"github.com/Mikhail1201/FAYES/internal/dto"
)

// Outcome is one persisted sampling cycle.
type Outcome struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"runId"`
	CycleID      string    `json:"cycleId"`
	Status       string    `json:"status"`
	Label        string    `json:"label,omitempty"`
	Confidence   float64   `json:"confidence,omitempty"`
	ClassID      int       `json:"classId,omitempty"`
	Product      string    `json:"product,omitempty"`
	StatusCode   int       `json:"statusCode,omitempty"`
	Delivered    bool      `json:"delivered"`
	NeedsPrice   bool      `json:"needsPrice"`
	Message      string    `json:"message,omitempty"`
	SnapshotPath string    `json:"snapshotPath,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProductCount aggregates reports per product.
type ProductCount struct {
	Product   string `json:"product"`
	Reported  int    `json:"reported"`
	Delivered int    `json:"delivered"`
}

// NewOutcome flattens a cycle outcome into a record.
func NewOutcome(o dto.Outcome) *Outcome {
	rec := &Outcome{
		RunID:     o.RunID,
		CycleID:   o.CycleID,
		Status:    string(o.Status),
		Product:   o.Product,
		CreatedAt: o.Time,
	}
	if o.Detection != nil {
		rec.Label = o.Detection.Label
		rec.Confidence = o.Detection.Confidence
		rec.ClassID = o.Detection.ClassID
	}
	if o.Receipt != nil {
		rec.StatusCode = o.Receipt.StatusCode
		rec.Delivered = o.Receipt.Delivered()
		rec.NeedsPrice = o.Receipt.NeedsPrice
		rec.Message = o.Receipt.Err
	}
	return rec
}
