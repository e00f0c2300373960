package repository

import (
	"time"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/model"
)

// OutcomeRepository defines the interface for cycle history operations.
type OutcomeRepository interface {
	// Create operations
	Insert(o *model.Outcome) (int64, error)
	AttachSnapshot(cycleID, path string) error

	// Read operations
	GetByCycleID(cycleID string) (*model.Outcome, error)
	Recent(filter *dto.OutcomeFilter) ([]model.Outcome, error)
	CountsByProduct() ([]model.ProductCount, error)

	// Delete operations
	DeleteBefore(t time.Time) (int64, error)
}
