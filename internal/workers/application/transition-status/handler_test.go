// internal/workers/application/transition-status/handler_test.go
package transitionstatus

import (
	"context"
	"fmt"
	"testing"

	commonerrors "scholarship-workers/internal/common/errors"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/scholarship/award"
	"scholarship-workers/internal/scholarship/transition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	fn func(ctx context.Context, req transition.Request) (*transition.Result, error)
}

func (s *stubService) Transition(ctx context.Context, req transition.Request) (*transition.Result, error) {
	return s.fn(ctx, req)
}

func newTestHandler(fn func(ctx context.Context, req transition.Request) (*transition.Result, error)) *Handler {
	return NewHandler(LoadConfig(), &stubService{fn: fn}, logger.NewNoOpLogger())
}

func TestExecute_Grant(t *testing.T) {
	var captured transition.Request
	h := newTestHandler(func(_ context.Context, req transition.Request) (*transition.Result, error) {
		captured = req
		return &transition.Result{
			Application: models.Application{ID: "app-001", Status: models.StatusGranted},
			AwardID:     "award-1",
			Amount:      500,
			Reference:   "0xabc",
		}, nil
	})

	output, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-001",
		TargetStatus:  "GRANTED",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusGranted, captured.Target)
	assert.Equal(t, "granted", output.Status)
	assert.Equal(t, "award-1", output.AwardID)
	assert.Equal(t, int64(500), output.AwardAmount)
	assert.Equal(t, "0xabc", output.AuditReference)
}

func TestExecute_ApproveWithSupplies(t *testing.T) {
	var captured transition.Request
	h := newTestHandler(func(_ context.Context, req transition.Request) (*transition.Result, error) {
		captured = req
		return &transition.Result{
			Application: models.Application{ID: "app-001", Status: models.StatusApproved},
		}, nil
	})

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID:  "app-001",
		TargetStatus:   "approved",
		SuppliesGrades: true,
		GradesDetails: map[string]interface{}{
			"schoolYear":     "2025-2026",
			"generalAverage": 91.2,
		},
		SuppliesRegistration: true,
		RegistrationDetails: map[string]interface{}{
			"schoolName":    "Central High",
			"studentNumber": "2026-00123",
		},
	})

	require.NoError(t, err)
	assert.True(t, captured.Grades.Supplied)
	assert.True(t, captured.Grades.HasDetails)
	assert.True(t, captured.Registration.Supplied)
	assert.True(t, captured.Registration.HasDetails)
}

func TestExecute_SuppliedWithoutDetailsReachesGate(t *testing.T) {
	// No payload at all is not a schema problem; the document gate
	// decides what it means.
	var captured transition.Request
	h := newTestHandler(func(_ context.Context, req transition.Request) (*transition.Result, error) {
		captured = req
		return &transition.Result{
			Application: models.Application{ID: "app-001", Status: models.StatusApproved},
		}, nil
	})

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID:        "app-001",
		TargetStatus:         "approved",
		SuppliesGrades:       true,
		SuppliesRegistration: true,
		RegistrationDetails: map[string]interface{}{
			"schoolName":    "Central High",
			"studentNumber": "2026-00123",
		},
	})

	require.NoError(t, err)
	assert.True(t, captured.Grades.Supplied)
	assert.False(t, captured.Grades.HasDetails)
}

func TestExecute_MissingApplicationID(t *testing.T) {
	h := newTestHandler(func(_ context.Context, _ transition.Request) (*transition.Result, error) {
		t.Fatal("service must not be called for invalid input")
		return nil, nil
	})

	_, err := h.Execute(context.Background(), &Input{TargetStatus: "approved"})

	var stdErr *commonerrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrCodeValidationFailed, stdErr.Code)
}

func TestExecute_UnknownTargetStatus(t *testing.T) {
	h := newTestHandler(func(_ context.Context, _ transition.Request) (*transition.Result, error) {
		t.Fatal("service must not be called for invalid input")
		return nil, nil
	})

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-001",
		TargetStatus:  "archived",
	})

	var stdErr *commonerrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrCodeValidationFailed, stdErr.Code)
}

func TestExecute_MalformedGradesDetails(t *testing.T) {
	h := newTestHandler(func(_ context.Context, _ transition.Request) (*transition.Result, error) {
		t.Fatal("service must not be called for malformed details")
		return nil, nil
	})

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID:  "app-001",
		TargetStatus:   "approved",
		SuppliesGrades: true,
		GradesDetails: map[string]interface{}{
			"schoolYear": "2025-2026",
			// generalAverage missing
		},
	})

	var stdErr *commonerrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrCodeValidationFailed, stdErr.Code)
}

func TestExecute_InvalidTransitionMapping(t *testing.T) {
	h := newTestHandler(func(_ context.Context, _ transition.Request) (*transition.Result, error) {
		return nil, transition.ErrInvalidTransition
	})

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-001",
		TargetStatus:  "granted",
	})

	var stdErr *commonerrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrCodeInvalidTransition, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.False(t, stdErr.PartiallyApplied)
}

func TestExecute_AwardFailureIsPartiallyApplied(t *testing.T) {
	h := newTestHandler(func(_ context.Context, _ transition.Request) (*transition.Result, error) {
		return nil, fmt.Errorf("%w: insert for application app-001", award.ErrAwardPersistFailed)
	})

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-001",
		TargetStatus:  "granted",
	})

	var stdErr *commonerrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrCodeAwardPersistFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.True(t, stdErr.PartiallyApplied)
}
