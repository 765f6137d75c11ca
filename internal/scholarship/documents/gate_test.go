// internal/scholarship/documents/gate_test.go
package documents

import (
	"context"
	"errors"
	"testing"

	"scholarship-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_BothOnRecord(t *testing.T) {
	err := Evaluate(GateInput{
		Grades:       KindStatus{OnRecord: true},
		Registration: KindStatus{OnRecord: true},
	})
	assert.NoError(t, err)
}

func TestEvaluate_BothSupplied(t *testing.T) {
	err := Evaluate(GateInput{
		Grades:       KindStatus{Supplied: true, HasDetails: true},
		Registration: KindStatus{Supplied: true, HasDetails: true},
	})
	assert.NoError(t, err)
}

func TestEvaluate_MixedSuppliedAndOnRecord(t *testing.T) {
	err := Evaluate(GateInput{
		Grades:       KindStatus{Supplied: true, HasDetails: true},
		Registration: KindStatus{OnRecord: true},
	})
	assert.NoError(t, err)
}

func TestEvaluate_MissingRegistration(t *testing.T) {
	err := Evaluate(GateInput{
		Grades:       KindStatus{OnRecord: true},
		Registration: KindStatus{},
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCertificateMissing))
	assert.Contains(t, err.Error(), "registration")
}

func TestEvaluate_SuppliedWithoutDetails(t *testing.T) {
	// Malformed even though the document is already on record.
	err := Evaluate(GateInput{
		Grades:       KindStatus{Supplied: true, HasDetails: false, OnRecord: true},
		Registration: KindStatus{OnRecord: true},
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedSupply))
}

func TestStore_Exists(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("app-001", "grades").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewStore(db)
	exists, err := store.Exists(context.Background(), "app-001", models.CertificateGrades)

	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Exists_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("app-001", "registration").
		WillReturnError(errors.New("connection reset"))

	store := NewStore(db)
	_, err = store.Exists(context.Background(), "app-001", models.CertificateRegistration)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
