// internal/scholarship/award/award.go
package award

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scholarship-workers/internal/common/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrAwardPersistFailed = errors.New("AWARD_PERSIST_FAILED")

// uniqueViolation is the Postgres error code raised by the UNIQUE
// constraint on award_records.application_id.
const uniqueViolation = "23505"

// Manager idempotently creates at most one award record per application.
type Manager struct {
	db     *sql.DB
	logger logger.Logger
}

func NewManager(db *sql.DB, log logger.Logger) *Manager {
	return &Manager{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "award-manager"}),
	}
}

// Ensure returns the award record identity for the application, creating
// it on first call. created reports whether this call inserted the row.
// Callers must not retry a failed Ensure blindly; re-invoking Ensure
// itself is safe because it always re-checks existence first.
func (m *Manager) Ensure(ctx context.Context, applicationID string, amount int64, recipientName string) (id string, created bool, err error) {
	existing, err := m.lookup(ctx, applicationID)
	if err != nil {
		return "", false, err
	}
	if existing != "" {
		return existing, false, nil
	}

	id = uuid.New().String()
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO award_records (id, application_id, amount, recipient_name, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, applicationID, amount, recipientName, time.Now().UTC())
	if err != nil {
		// Lost the insert race: the unique constraint on application_id
		// guarantees a winner exists, so read it back.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			winner, lookupErr := m.lookup(ctx, applicationID)
			if lookupErr != nil {
				return "", false, lookupErr
			}
			if winner != "" {
				return winner, false, nil
			}
		}
		return "", false, fmt.Errorf("%w: insert for application %s: %v", ErrAwardPersistFailed, applicationID, err)
	}

	m.logger.Info("award record created", map[string]interface{}{
		"awardId":       id,
		"applicationId": applicationID,
		"amount":        amount,
	})
	return id, true, nil
}

func (m *Manager) lookup(ctx context.Context, applicationID string) (string, error) {
	var id string
	err := m.db.QueryRowContext(ctx,
		`SELECT id FROM award_records WHERE application_id = $1`, applicationID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("%w: lookup for application %s: %v", ErrAwardPersistFailed, applicationID, err)
	}
	return id, nil
}
