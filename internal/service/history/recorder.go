package history

import (
	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/model"
	"github.com/Mikhail1201/FAYES/internal/repository"
	"github.com/Mikhail1201/FAYES/internal/service/scanner"
)

// Recorder persists every cycle outcome.
type Recorder struct {
	repo   repository.OutcomeRepository
	logger *logger.Logger
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo repository.OutcomeRepository, logger *logger.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Observe implements scanner.Observer. Failures are logged and never stop the pipeline.
func (r *Recorder) Observe(_ scanner.Image, outcome dto.Outcome) {
	if _, err := r.repo.Insert(model.NewOutcome(outcome)); err != nil {
		r.logger.Error("Error saving cycle %s to history: %v", outcome.CycleID, err)
	}
}
