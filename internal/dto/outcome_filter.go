package dto

// OutcomeFilter narrows a history query. Zero values match everything.
type OutcomeFilter struct {
	RunID   string
	Status  CycleStatus
	Product string
	Limit   int
}
