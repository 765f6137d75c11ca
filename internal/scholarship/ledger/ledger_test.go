// internal/scholarship/ledger/ledger_test.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, db *sql.DB) *Ledger {
	return New(db, nil, logger.NewNoOpLogger())
}

func TestAdjust_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-1").
		WillReturnRows(sqlmock.NewRows([]string{"budget_id"}).AddRow("budget-1"))
	mock.ExpectQuery(`SELECT remaining_amount FROM budgets`).
		WithArgs("budget-1").
		WillReturnRows(sqlmock.NewRows([]string{"remaining_amount"}).AddRow(int64(10000)))
	mock.ExpectExec(`UPDATE budgets SET remaining_amount`).
		WithArgs(int64(9500), "budget-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := newLedger(t, db)
	err = l.Adjust(context.Background(), "cycle-1", models.StatusApproved, models.StatusGranted, 500)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_CreditOnUngrant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-1").
		WillReturnRows(sqlmock.NewRows([]string{"budget_id"}).AddRow("budget-1"))
	mock.ExpectQuery(`SELECT remaining_amount FROM budgets`).
		WithArgs("budget-1").
		WillReturnRows(sqlmock.NewRows([]string{"remaining_amount"}).AddRow(int64(9500)))
	mock.ExpectExec(`UPDATE budgets SET remaining_amount`).
		WithArgs(int64(10000), "budget-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := newLedger(t, db)
	err = l.Adjust(context.Background(), "cycle-1", models.StatusGranted, models.StatusApproved, 500)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_NoOpWhenGrantedStateUnchanged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := newLedger(t, db)
	// granted -> granted: no queries at all.
	err = l.Adjust(context.Background(), "cycle-1", models.StatusGranted, models.StatusGranted, 500)
	assert.NoError(t, err)

	// pending -> approved: likewise.
	err = l.Adjust(context.Background(), "cycle-1", models.StatusPending, models.StatusApproved, 500)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_NoBudgetLinkIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-1").
		WillReturnRows(sqlmock.NewRows([]string{"budget_id"}).AddRow(nil))

	l := newLedger(t, db)
	err = l.Adjust(context.Background(), "cycle-1", models.StatusApproved, models.StatusGranted, 500)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_CycleNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-missing").
		WillReturnError(sql.ErrNoRows)

	l := newLedger(t, db)
	err = l.Adjust(context.Background(), "cycle-missing", models.StatusApproved, models.StatusGranted, 500)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCycleNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_BudgetLoadFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-1").
		WillReturnRows(sqlmock.NewRows([]string{"budget_id"}).AddRow("budget-1"))
	mock.ExpectQuery(`SELECT remaining_amount FROM budgets`).
		WithArgs("budget-1").
		WillReturnError(errors.New("connection reset"))

	l := newLedger(t, db)
	err = l.Adjust(context.Background(), "cycle-1", models.StatusApproved, models.StatusGranted, 500)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrLedgerUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_PersistFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-1").
		WillReturnRows(sqlmock.NewRows([]string{"budget_id"}).AddRow("budget-1"))
	mock.ExpectQuery(`SELECT remaining_amount FROM budgets`).
		WithArgs("budget-1").
		WillReturnRows(sqlmock.NewRows([]string{"remaining_amount"}).AddRow(int64(10000)))
	mock.ExpectExec(`UPDATE budgets SET remaining_amount`).
		WithArgs(int64(9500), "budget-1").
		WillReturnError(errors.New("write timeout"))

	l := newLedger(t, db)
	err = l.Adjust(context.Background(), "cycle-1", models.StatusApproved, models.StatusGranted, 500)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrLedgerUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_DebitFloorsAtZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-1").
		WillReturnRows(sqlmock.NewRows([]string{"budget_id"}).AddRow("budget-1"))
	mock.ExpectQuery(`SELECT remaining_amount FROM budgets`).
		WithArgs("budget-1").
		WillReturnRows(sqlmock.NewRows([]string{"remaining_amount"}).AddRow(int64(300)))
	mock.ExpectExec(`UPDATE budgets SET remaining_amount`).
		WithArgs(int64(0), "budget-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := newLedger(t, db)
	err = l.Adjust(context.Background(), "cycle-1", models.StatusApproved, models.StatusGranted, 500)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextRemaining(t *testing.T) {
	assert.Equal(t, int64(9500), NextRemaining(10000, 500, true))
	assert.Equal(t, int64(0), NextRemaining(300, 500, true))
	assert.Equal(t, int64(10500), NextRemaining(10000, 500, false))
	// Credit has no floor applied.
	assert.Equal(t, int64(500), NextRemaining(0, 500, false))
}

func TestAdjust_CycleLinkServedFromCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	srv := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer cache.Close()

	require.NoError(t, srv.Set("cycle:cycle-1", "budget-1"))

	// No funding_cycles query expected; link comes from the cache.
	mock.ExpectQuery(`SELECT remaining_amount FROM budgets`).
		WithArgs("budget-1").
		WillReturnRows(sqlmock.NewRows([]string{"remaining_amount"}).AddRow(int64(1000)))
	mock.ExpectExec(`UPDATE budgets SET remaining_amount`).
		WithArgs(int64(500), "budget-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := New(db, cache, logger.NewNoOpLogger())
	err = l.Adjust(context.Background(), "cycle-1", models.StatusApproved, models.StatusGranted, 500)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_CachesNoBudgetMarker(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	srv := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer cache.Close()

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-2").
		WillReturnRows(sqlmock.NewRows([]string{"budget_id"}).AddRow(nil))

	l := New(db, cache, logger.NewNoOpLogger())
	err = l.Adjust(context.Background(), "cycle-2", models.StatusApproved, models.StatusGranted, 500)
	assert.NoError(t, err)

	val, err := srv.Get("cycle:cycle-2")
	assert.NoError(t, err)
	assert.Equal(t, "none", val)

	// Second call resolves entirely from the cache.
	err = l.Adjust(context.Background(), "cycle-2", models.StatusApproved, models.StatusGranted, 500)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjust_CacheErrorFallsBackToDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cache, cacheMock := redismock.NewClientMock()
	defer cache.Close()

	// Both cache round trips fail; the adjustment must still go through.
	cacheMock.ExpectGet("cycle:cycle-1").SetErr(errors.New("connection refused"))
	cacheMock.Regexp().ExpectSet("cycle:cycle-1", "budget-1", cycleCacheTTL).
		SetErr(errors.New("connection refused"))

	mock.ExpectQuery(`SELECT budget_id FROM funding_cycles`).
		WithArgs("cycle-1").
		WillReturnRows(sqlmock.NewRows([]string{"budget_id"}).AddRow("budget-1"))
	mock.ExpectQuery(`SELECT remaining_amount FROM budgets`).
		WithArgs("budget-1").
		WillReturnRows(sqlmock.NewRows([]string{"remaining_amount"}).AddRow(int64(10000)))
	mock.ExpectExec(`UPDATE budgets SET remaining_amount`).
		WithArgs(int64(9500), "budget-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	l := New(db, cache, logger.NewNoOpLogger())
	err = l.Adjust(context.Background(), "cycle-1", models.StatusApproved, models.StatusGranted, 500)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, cacheMock.ExpectationsWereMet())
}
