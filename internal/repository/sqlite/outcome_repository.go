package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/model"
)

// DefaultHistoryLimit caps Recent when the filter sets no limit.
const DefaultHistoryLimit = 50

const outcomeColumns = `id, run_id, cycle_id, status, label, confidence, class_id, product,
	status_code, delivered, needs_price, message, snapshot_path, created_at`

// OutcomeRepository implements repository.OutcomeRepository for SQLite.
type OutcomeRepository struct {
	db *DB
}

// NewOutcomeRepository creates a new SQLite outcome repository.
func NewOutcomeRepository(db *DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Insert adds a new cycle record to the database.
func (r *OutcomeRepository) Insert(o *model.Outcome) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO outcomes (run_id, cycle_id, status, label, confidence, class_id, product,
			status_code, delivered, needs_price, message, snapshot_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.RunID, o.CycleID, o.Status, o.Label, o.Confidence, o.ClassID, o.Product,
		o.StatusCode, o.Delivered, o.NeedsPrice, o.Message, o.SnapshotPath, o.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert outcome: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	o.ID = id
	return id, nil
}

// AttachSnapshot records where the annotated frame of a cycle was written.
func (r *OutcomeRepository) AttachSnapshot(cycleID, path string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`UPDATE outcomes SET snapshot_path = ? WHERE cycle_id = ?`, path, cycleID)
	if err != nil {
		return fmt.Errorf("failed to attach snapshot: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("no outcome with cycle id %s", cycleID)
	}
	return nil
}

// GetByCycleID retrieves a cycle by its id, or nil when it does not exist.
func (r *OutcomeRepository) GetByCycleID(cycleID string) (*model.Outcome, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+outcomeColumns+` FROM outcomes WHERE cycle_id = ?`, cycleID)
	o, err := scanOutcome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	return o, nil
}

// Recent returns the newest cycles matching filter, newest first.
func (r *OutcomeRepository) Recent(filter *dto.OutcomeFilter) ([]model.Outcome, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if filter == nil {
		filter = &dto.OutcomeFilter{}
	}

	query := `SELECT ` + outcomeColumns + ` FROM outcomes WHERE 1=1`
	args := []interface{}{}

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Product != "" {
		query += " AND product = ?"
		args = append(args, filter.Product)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []model.Outcome{}
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, *o)
	}
	return outcomes, rows.Err()
}

// CountsByProduct returns how often each product was reported and delivered.
func (r *OutcomeRepository) CountsByProduct() ([]model.ProductCount, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT product, COUNT(*), COALESCE(SUM(delivered), 0)
		FROM outcomes
		WHERE status = ?
		GROUP BY product
		ORDER BY product
	`, string(dto.StatusReported))
	if err != nil {
		return nil, fmt.Errorf("failed to query product counts: %w", err)
	}
	defer rows.Close()

	counts := []model.ProductCount{}
	for rows.Next() {
		var c model.ProductCount
		if err := rows.Scan(&c.Product, &c.Reported, &c.Delivered); err != nil {
			return nil, fmt.Errorf("failed to scan product count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// DeleteBefore removes cycles older than t and returns how many were deleted.
func (r *OutcomeRepository) DeleteBefore(t time.Time) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM outcomes WHERE created_at < ?`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete outcomes: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOutcome(s scanner) (*model.Outcome, error) {
	var o model.Outcome
	err := s.Scan(&o.ID, &o.RunID, &o.CycleID, &o.Status, &o.Label, &o.Confidence, &o.ClassID, &o.Product,
		&o.StatusCode, &o.Delivered, &o.NeedsPrice, &o.Message, &o.SnapshotPath, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
