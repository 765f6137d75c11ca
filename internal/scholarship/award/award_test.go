// internal/scholarship/award/award_test.go
package award

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"scholarship-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure_CreatesFirstAward(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM award_records`).
		WithArgs("app-001").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO award_records`).
		WithArgs(sqlmock.AnyArg(), "app-001", int64(500), "Juana Dela Cruz", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	m := NewManager(db, logger.NewNoOpLogger())
	id, created, err := m.Ensure(context.Background(), "app-001", 500, "Juana Dela Cruz")

	assert.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsure_ReturnsExistingAward(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM award_records`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("award-existing"))

	m := NewManager(db, logger.NewNoOpLogger())
	id, created, err := m.Ensure(context.Background(), "app-001", 500, "Juana Dela Cruz")

	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "award-existing", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsure_LostInsertRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM award_records`).
		WithArgs("app-001").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO award_records`).
		WithArgs(sqlmock.AnyArg(), "app-001", int64(500), "Juana Dela Cruz", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(`SELECT id FROM award_records`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("award-winner"))

	m := NewManager(db, logger.NewNoOpLogger())
	id, created, err := m.Ensure(context.Background(), "app-001", 500, "Juana Dela Cruz")

	assert.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "award-winner", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsure_LookupFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM award_records`).
		WithArgs("app-001").
		WillReturnError(errors.New("connection reset"))

	m := NewManager(db, logger.NewNoOpLogger())
	_, _, err = m.Ensure(context.Background(), "app-001", 500, "Juana Dela Cruz")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrAwardPersistFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsure_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM award_records`).
		WithArgs("app-001").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO award_records`).
		WithArgs(sqlmock.AnyArg(), "app-001", int64(500), "Juana Dela Cruz", sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	m := NewManager(db, logger.NewNoOpLogger())
	_, _, err = m.Ensure(context.Background(), "app-001", 500, "Juana Dela Cruz")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrAwardPersistFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}
