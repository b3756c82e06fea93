package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ticketero-io/ticketero/internal/database"
	"github.com/ticketero-io/ticketero/internal/models"
)

// AdvisorRepository defines persistence for advisors. SetStatusIf is the
// conditional update the assignment engine relies on to reserve an advisor
// atomically.
type AdvisorRepository interface {
	Create(ctx context.Context, advisor *models.Advisor) error
	GetByID(ctx context.Context, id int64) (*models.Advisor, error)
	List(ctx context.Context) ([]*models.Advisor, error)
	CountByStatusAndQueueType(ctx context.Context, status models.AdvisorStatus, queueType models.QueueType) (int, error)
	SetStatus(ctx context.Context, id int64, status models.AdvisorStatus, now time.Time) error
	SetStatusIf(ctx context.Context, id int64, from, to models.AdvisorStatus, now time.Time) (bool, error)
}

// AdvisorSQLRepository implements AdvisorRepository over database/sql.
type AdvisorSQLRepository struct {
	db *sql.DB
}

// NewAdvisorRepository creates a new advisor repository.
func NewAdvisorRepository(db *sql.DB) *AdvisorSQLRepository {
	return &AdvisorSQLRepository{db: db}
}

const advisorColumns = `id, name, module_number, queue_type, status, created_at, updated_at`

// Create inserts the advisor and backfills its generated id.
func (r *AdvisorSQLRepository) Create(ctx context.Context, advisor *models.Advisor) error {
	query, useLastInsert := database.ConvertReturning(database.ConvertPlaceholders(`
		INSERT INTO advisors (name, module_number, queue_type, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`))

	args := []interface{}{advisor.Name, advisor.ModuleNumber, string(advisor.QueueType), string(advisor.Status), advisor.CreatedAt}

	if useLastInsert {
		result, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert advisor: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("advisor insert id: %w", err)
		}
		advisor.ID = id
		return nil
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&advisor.ID); err != nil {
		return fmt.Errorf("insert advisor: %w", err)
	}
	return nil
}

// GetByID fetches one advisor.
func (r *AdvisorSQLRepository) GetByID(ctx context.Context, id int64) (*models.Advisor, error) {
	query := database.ConvertPlaceholders(`SELECT ` + advisorColumns + ` FROM advisors WHERE id = ?`)

	advisor, err := scanAdvisor(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdvisorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query advisor: %w", err)
	}
	return advisor, nil
}

// List returns all advisors ordered by module number.
func (r *AdvisorSQLRepository) List(ctx context.Context) ([]*models.Advisor, error) {
	query := `SELECT ` + advisorColumns + ` FROM advisors ORDER BY module_number ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query advisors: %w", err)
	}
	defer rows.Close()

	var advisors []*models.Advisor
	for rows.Next() {
		advisor, err := scanAdvisor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan advisor row: %w", err)
		}
		advisors = append(advisors, advisor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("advisor row iteration: %w", err)
	}
	return advisors, nil
}

// CountByStatusAndQueueType counts advisors in one status for one queue type.
func (r *AdvisorSQLRepository) CountByStatusAndQueueType(ctx context.Context, status models.AdvisorStatus, queueType models.QueueType) (int, error) {
	query := database.ConvertPlaceholders(`
		SELECT COUNT(*) FROM advisors WHERE status = ? AND queue_type = ?`)

	var count int
	if err := r.db.QueryRowContext(ctx, query, string(status), string(queueType)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count advisors: %w", err)
	}
	return count, nil
}

// SetStatus updates an advisor's status unconditionally.
func (r *AdvisorSQLRepository) SetStatus(ctx context.Context, id int64, status models.AdvisorStatus, now time.Time) error {
	query := database.ConvertPlaceholders(`
		UPDATE advisors SET status = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, string(status), now, id)
	if err != nil {
		return fmt.Errorf("update advisor %d status: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update advisor %d rows: %w", id, err)
	}
	if affected == 0 {
		return ErrAdvisorNotFound
	}
	return nil
}

// SetStatusIf updates an advisor's status only when the current status
// matches. Returns false on a lost race or unknown id.
func (r *AdvisorSQLRepository) SetStatusIf(ctx context.Context, id int64, from, to models.AdvisorStatus, now time.Time) (bool, error) {
	query := database.ConvertPlaceholders(`
		UPDATE advisors SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)

	result, err := r.db.ExecContext(ctx, query, string(to), now, id, string(from))
	if err != nil {
		return false, fmt.Errorf("conditional advisor %d status update: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("conditional advisor %d rows: %w", id, err)
	}
	return affected == 1, nil
}

func scanAdvisor(row rowScanner) (*models.Advisor, error) {
	var (
		a         models.Advisor
		queueType string
		status    string
		updatedAt sql.NullTime
	)

	if err := row.Scan(&a.ID, &a.Name, &a.ModuleNumber, &queueType, &status, &a.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}

	a.QueueType = models.QueueType(queueType)
	a.Status = models.AdvisorStatus(status)
	if updatedAt.Valid {
		a.UpdatedAt = &updatedAt.Time
	}
	return &a, nil
}
