// internal/scholarship/ledger/ledger.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/metrics"
	"scholarship-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCycleNotFound     = errors.New("CYCLE_NOT_FOUND")
	ErrBudgetNotFound    = errors.New("BUDGET_NOT_FOUND")
	ErrLedgerUnavailable = errors.New("LEDGER_UNAVAILABLE")
)

const (
	cycleCacheKeyPrefix = "cycle:"
	cycleCacheTTL       = 5 * time.Minute
	// noBudgetMarker caches a cycle with no linked budget; the empty
	// string cannot be used because it is indistinguishable from a miss.
	noBudgetMarker = "none"
)

// Ledger applies signed budget adjustments for grant transitions.
// Funding cycles are read-only here; only budget rows are mutated.
type Ledger struct {
	db     *sql.DB
	cache  *redis.Client
	logger logger.Logger
}

// New creates a budget ledger. cache may be nil; the cycle→budget link
// is then resolved from the database on every call.
func New(db *sql.DB, cache *redis.Client, log logger.Logger) *Ledger {
	return &Ledger{
		db:     db,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"component": "budget-ledger"}),
	}
}

// Adjust applies at most one budget adjustment for a status transition.
// Callers must not invoke it twice for the same transition. When the
// granted-state does not change, or the cycle has no linked budget, the
// call is a successful no-op.
func (l *Ledger) Adjust(ctx context.Context, cycleID string, previous, next models.Status, amount int64) error {
	previouslyGranted := previous == models.StatusGranted
	newlyGranted := next == models.StatusGranted
	if previouslyGranted == newlyGranted {
		return nil
	}

	budgetID, err := l.resolveBudgetID(ctx, cycleID)
	if err != nil {
		return err
	}
	if budgetID == "" {
		// Absence of a budget link does not block the transition.
		l.logger.Debug("cycle has no linked budget, skipping adjustment", map[string]interface{}{
			"cycleId": cycleID,
		})
		return nil
	}

	var remaining int64
	err = l.db.QueryRowContext(ctx,
		`SELECT remaining_amount FROM budgets WHERE id = $1`, budgetID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: budget %s for cycle %s", ErrBudgetNotFound, budgetID, cycleID)
		}
		return fmt.Errorf("%w: load budget %s: %v", ErrLedgerUnavailable, budgetID, err)
	}

	updated := NextRemaining(remaining, amount, newlyGranted)

	result, err := l.db.ExecContext(ctx,
		`UPDATE budgets SET remaining_amount = $1 WHERE id = $2`, updated, budgetID)
	if err != nil {
		return fmt.Errorf("%w: persist budget %s: %v", ErrLedgerUnavailable, budgetID, err)
	}
	if rows, rowsErr := result.RowsAffected(); rowsErr == nil && rows == 0 {
		return fmt.Errorf("%w: budget %s disappeared during adjustment", ErrLedgerUnavailable, budgetID)
	}

	metrics.BudgetRemaining.WithLabelValues(cycleID).Set(float64(updated))

	l.logger.Info("budget adjusted", map[string]interface{}{
		"cycleId":   cycleID,
		"budgetId":  budgetID,
		"amount":    amount,
		"debit":     newlyGranted,
		"remaining": updated,
	})
	return nil
}

// NextRemaining computes the remaining amount after one adjustment.
// The non-negativity floor applies only on debit; a credit restores the
// exact amount that was debited.
func NextRemaining(remaining, amount int64, debit bool) int64 {
	if debit {
		next := remaining - amount
		if next < 0 {
			return 0
		}
		return next
	}
	return remaining + amount
}

// resolveBudgetID returns the budget linked to the cycle, "" when the
// cycle has none, or an error when the cycle itself cannot be resolved.
func (l *Ledger) resolveBudgetID(ctx context.Context, cycleID string) (string, error) {
	if cached, ok := l.cachedBudgetID(ctx, cycleID); ok {
		return cached, nil
	}

	var budgetID sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT budget_id FROM funding_cycles WHERE id = $1`, cycleID).Scan(&budgetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrCycleNotFound, cycleID)
		}
		return "", fmt.Errorf("%w: resolve cycle %s: %v", ErrLedgerUnavailable, cycleID, err)
	}

	resolved := ""
	if budgetID.Valid {
		resolved = budgetID.String
	}
	l.storeCachedBudgetID(ctx, cycleID, resolved)
	return resolved, nil
}

func (l *Ledger) cachedBudgetID(ctx context.Context, cycleID string) (string, bool) {
	if l.cache == nil {
		return "", false
	}
	val, err := l.cache.Get(ctx, cycleCacheKeyPrefix+cycleID).Result()
	if err != nil {
		return "", false
	}
	if val == noBudgetMarker {
		return "", true
	}
	return val, true
}

func (l *Ledger) storeCachedBudgetID(ctx context.Context, cycleID, budgetID string) {
	if l.cache == nil {
		return
	}
	val := budgetID
	if val == "" {
		val = noBudgetMarker
	}
	if err := l.cache.Set(ctx, cycleCacheKeyPrefix+cycleID, val, cycleCacheTTL).Err(); err != nil {
		l.logger.Warn("cycle cache write failed", map[string]interface{}{
			"cycleId": cycleID,
			"error":   err.Error(),
		})
	}
}
