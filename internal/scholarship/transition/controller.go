// internal/scholarship/transition/controller.go
package transition

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/metrics"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/scholarship/award"
	"scholarship-workers/internal/scholarship/documents"
	"scholarship-workers/internal/scholarship/ledger"
	"scholarship-workers/internal/scholarship/notary"
	"scholarship-workers/internal/scholarship/tier"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrInvalidTransition   = errors.New("INVALID_TRANSITION")
)

// CertificateSupply describes one certificate kind carried by the
// incoming request. Persistence of the document itself is the upload
// collaborator's job and happens before the controller runs.
type CertificateSupply struct {
	Supplied   bool
	HasDetails bool
}

// Request is the single exposed transition operation.
type Request struct {
	ApplicationID string
	Target        models.Status
	Grades        CertificateSupply
	Registration  CertificateSupply
}

// Result is returned on a successful transition. Award fields are set
// only on the granted path.
type Result struct {
	Application models.Application
	AwardID     string
	Amount      int64
	Reference   string
}

// Controller executes application status transitions, gating approval on
// document completeness and orchestrating budget debit, award creation
// and notarization for grants.
type Controller struct {
	db     *sql.DB
	docs   *documents.Store
	ledger *ledger.Ledger
	awards *award.Manager
	notary *notary.Adapter
	logger logger.Logger
	tracer trace.Tracer
}

func NewController(
	db *sql.DB,
	docs *documents.Store,
	ldg *ledger.Ledger,
	awards *award.Manager,
	ntr *notary.Adapter,
	log logger.Logger,
) *Controller {
	return &Controller{
		db:     db,
		docs:   docs,
		ledger: ldg,
		awards: awards,
		notary: ntr,
		logger: log.WithFields(map[string]interface{}{"component": "transition-controller"}),
		tracer: otel.Tracer("transition-controller"),
	}
}

// Transition moves an application along one lifecycle edge. NotFound and
// invalid-edge requests are rejected with no side effects. On the
// granted path a budget failure is compensated by reverting the status;
// award and notarization failures surface without compensation and
// leave a partially applied state for operator reconciliation.
func (c *Controller) Transition(ctx context.Context, req Request) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "application.transition", trace.WithAttributes(
		attribute.String("application.id", req.ApplicationID),
		attribute.String("application.target_status", req.Target.String()),
	))
	defer span.End()

	start := time.Now()
	result, err := c.transition(ctx, req)
	elapsed := time.Since(start)

	metrics.TransitionDuration.WithLabelValues(req.Target.String()).Observe(elapsed.Seconds())
	if err != nil {
		span.RecordError(err)
		metrics.TransitionsFailed.WithLabelValues(req.Target.String(), errorCode(err)).Inc()
		return nil, err
	}
	metrics.TransitionsCompleted.WithLabelValues(req.Target.String()).Inc()
	return result, nil
}

func (c *Controller) transition(ctx context.Context, req Request) (*Result, error) {
	app, err := c.loadApplication(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}

	switch req.Target {
	case models.StatusApproved:
		if app.Status != models.StatusPending {
			return nil, c.invalidEdge(app, req.Target)
		}
		return c.approve(ctx, app, req)

	case models.StatusRejected:
		if app.Status != models.StatusPending && app.Status != models.StatusApproved {
			return nil, c.invalidEdge(app, req.Target)
		}
		return c.reject(ctx, app)

	case models.StatusGranted:
		if app.Status != models.StatusApproved && app.Status != models.StatusGranted {
			return nil, c.invalidEdge(app, req.Target)
		}
		return c.grant(ctx, app)

	default:
		return nil, c.invalidEdge(app, req.Target)
	}
}

func (c *Controller) approve(ctx context.Context, app *models.Application, req Request) (*Result, error) {
	input := documents.GateInput{
		Grades: documents.KindStatus{
			Supplied:   req.Grades.Supplied,
			HasDetails: req.Grades.HasDetails,
		},
		Registration: documents.KindStatus{
			Supplied:   req.Registration.Supplied,
			HasDetails: req.Registration.HasDetails,
		},
	}

	// Existence checks run only for kinds the request does not supply;
	// a supplied document satisfies its kind on its own.
	if !input.Grades.Supplied {
		onRecord, err := c.docs.Exists(ctx, app.ID, models.CertificateGrades)
		if err != nil {
			return nil, err
		}
		input.Grades.OnRecord = onRecord
	}
	if !input.Registration.Supplied {
		onRecord, err := c.docs.Exists(ctx, app.ID, models.CertificateRegistration)
		if err != nil {
			return nil, err
		}
		input.Registration.OnRecord = onRecord
	}

	if err := documents.Evaluate(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	if err := c.updateStatus(ctx, app, models.StatusApproved); err != nil {
		return nil, err
	}

	c.logger.Info("application approved", map[string]interface{}{
		"applicationId": app.ID,
	})
	return &Result{Application: *app}, nil
}

func (c *Controller) reject(ctx context.Context, app *models.Application) (*Result, error) {
	if err := c.updateStatus(ctx, app, models.StatusRejected); err != nil {
		return nil, err
	}

	c.logger.Info("application rejected", map[string]interface{}{
		"applicationId": app.ID,
	})
	return &Result{Application: *app}, nil
}

func (c *Controller) grant(ctx context.Context, app *models.Application) (*Result, error) {
	previous := app.Status
	amount := tier.Amount(app.AcademicLevel())

	if err := c.updateStatus(ctx, app, models.StatusGranted); err != nil {
		return nil, err
	}

	if err := c.ledger.Adjust(ctx, app.CycleID, previous, models.StatusGranted, amount); err != nil {
		// Compensate: the debit never happened, so the status write is
		// reverted before the error surfaces.
		c.revertStatus(ctx, app.ID, previous)
		return nil, err
	}

	awardID, created, err := c.awards.Ensure(ctx, app.ID, amount, app.RecipientName())
	if err != nil {
		// Budget debit stands; see operator runbook for reconciliation.
		return nil, err
	}

	reference, err := c.ensureNotarized(ctx, app.ID, awardID, amount)
	if err != nil {
		return nil, err
	}

	c.logger.Info("application granted", map[string]interface{}{
		"applicationId": app.ID,
		"awardId":       awardID,
		"amount":        amount,
		"newAward":      created,
		"reference":     reference,
	})

	return &Result{
		Application: *app,
		AwardID:     awardID,
		Amount:      amount,
		Reference:   reference,
	}, nil
}

// ensureNotarized appends the AWARD audit record once per application.
// Re-granting an already-notarized application reuses the recorded
// reference instead of appending a duplicate event.
func (c *Controller) ensureNotarized(ctx context.Context, applicationID, awardID string, amount int64) (string, error) {
	existing, found, err := c.notary.ExistingReference(ctx, models.AuditAward, applicationID)
	if err != nil {
		// The audit log is append-only; a rare duplicate beats losing
		// the event over a failed lookup.
		c.logger.Warn("audit lookup failed, notarizing anyway", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
	} else if found {
		return existing, nil
	}

	return c.notary.Notarize(ctx, models.AuditAward, notary.SubjectIDs{
		ApplicationID: applicationID,
		AwardID:       awardID,
	}, amount)
}

func (c *Controller) loadApplication(ctx context.Context, id string) (*models.Application, error) {
	var (
		app        models.Application
		detailsRaw []byte
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT id, applicant_id, cycle_id, details, status, created_at, updated_at
		FROM applications WHERE id = $1`, id).Scan(
		&app.ID, &app.ApplicantID, &app.CycleID, &detailsRaw, &app.Status,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, id)
		}
		return nil, fmt.Errorf("load application %s: %w", id, err)
	}

	if len(detailsRaw) > 0 {
		if err := json.Unmarshal(detailsRaw, &app.Details); err != nil {
			c.logger.Warn("application details unreadable", map[string]interface{}{
				"applicationId": id,
				"error":         err.Error(),
			})
		}
	}
	return &app, nil
}

// updateStatus persists the new status conditionally on the status the
// controller loaded. Zero rows affected means a concurrent transition
// won the race; nothing is changed in that case.
func (c *Controller) updateStatus(ctx context.Context, app *models.Application, next models.Status) error {
	now := time.Now().UTC()
	result, err := c.db.ExecContext(ctx, `
		UPDATE applications SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(next), now, app.ID, string(app.Status))
	if err != nil {
		return fmt.Errorf("persist status %s for %s: %w", next, app.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("persist status %s for %s: %w", next, app.ID, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: application %s changed concurrently", ErrInvalidTransition, app.ID)
	}

	app.Status = next
	app.UpdatedAt = now
	return nil
}

// revertStatus is the compensating write for a failed budget step. It is
// unconditional: the controller owns the row until the transition call
// returns.
func (c *Controller) revertStatus(ctx context.Context, id string, previous models.Status) {
	_, err := c.db.ExecContext(ctx, `
		UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`,
		string(previous), time.Now().UTC(), id)
	if err != nil {
		c.logger.Error("status revert failed, manual reconciliation required", map[string]interface{}{
			"applicationId": id,
			"revertTo":      string(previous),
			"error":         err.Error(),
		})
	}
}

func (c *Controller) invalidEdge(app *models.Application, target models.Status) error {
	return fmt.Errorf("%w: %s -> %s for application %s",
		ErrInvalidTransition, app.Status, target, app.ID)
}

// errorCode resolves an engine error to its stable metric/BPMN code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrApplicationNotFound),
		errors.Is(err, ledger.ErrCycleNotFound),
		errors.Is(err, ledger.ErrBudgetNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ledger.ErrLedgerUnavailable):
		return "LEDGER_UNAVAILABLE"
	case errors.Is(err, award.ErrAwardPersistFailed):
		return "AWARD_PERSIST_FAILED"
	case errors.Is(err, notary.ErrNotarizationFailed):
		return "NOTARIZATION_FAILED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// PartiallyApplied reports whether a failed transition left committed
// side effects (budget debit, possibly an award record) behind. Callers
// surface this to operators; nothing is rolled back automatically.
func PartiallyApplied(err error) bool {
	return errors.Is(err, award.ErrAwardPersistFailed) ||
		errors.Is(err, notary.ErrNotarizationFailed)
}

// ErrorCode exposes the stable code for a transition error.
func ErrorCode(err error) string {
	return errorCode(err)
}
