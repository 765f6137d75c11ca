// internal/workers/application/transition-status/handler.go
package transitionstatus

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	commonerrors "scholarship-workers/internal/common/errors"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/metrics"
	"scholarship-workers/internal/common/validation"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/scholarship/award"
	"scholarship-workers/internal/scholarship/ledger"
	"scholarship-workers/internal/scholarship/notary"
	"scholarship-workers/internal/scholarship/transition"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "transition-application-status"
)

// TransitionService is the engine surface this worker drives.
type TransitionService interface {
	Transition(ctx context.Context, req transition.Request) (*transition.Result, error)
}

type Handler struct {
	config       *Config
	service      TransitionService
	errorHandler *commonerrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, service TransitionService, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		service:      service,
		errorHandler: commonerrors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job,
			commonerrors.NewValidationFailedError("parse input: "+err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute runs the transition without a live Zeebe job. Used by tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := input.Validate(); err != nil {
		return nil, commonerrors.NewValidationFailedError(err.Error())
	}

	target, err := models.ParseStatus(input.TargetStatus)
	if err != nil {
		return nil, commonerrors.NewValidationFailedError(err.Error())
	}

	grades, err := certificateSupply(models.CertificateGrades, input.SuppliesGrades, input.GradesDetails)
	if err != nil {
		return nil, err
	}
	registration, err := certificateSupply(models.CertificateRegistration, input.SuppliesRegistration, input.RegistrationDetails)
	if err != nil {
		return nil, err
	}

	result, err := h.service.Transition(ctx, transition.Request{
		ApplicationID: input.ApplicationID,
		Target:        target,
		Grades:        grades,
		Registration:  registration,
	})
	if err != nil {
		return nil, h.mapError(input, err)
	}

	return &Output{
		ApplicationID:  result.Application.ID,
		Status:         result.Application.Status.String(),
		AwardID:        result.AwardID,
		AwardAmount:    result.Amount,
		AuditReference: result.Reference,
	}, nil
}

// certificateSupply turns the per-kind job variables into the
// controller's supply flags. A supplied payload is schema-checked here;
// supplied-without-payload is left for the document gate to reject.
func certificateSupply(kind models.CertificateKind, supplied bool, details map[string]interface{}) (transition.CertificateSupply, error) {
	supply := transition.CertificateSupply{Supplied: supplied}
	if !supplied || len(details) == 0 {
		return supply, nil
	}

	if err := validation.ValidateCertificateDetails(kind, details); err != nil {
		return supply, commonerrors.NewValidationFailedError(err.Error())
	}
	supply.HasDetails = true
	return supply, nil
}

// mapError translates engine sentinels into the standardized error
// model the Camunda error handler understands.
func (h *Handler) mapError(input *Input, err error) *commonerrors.StandardError {
	switch {
	case stderrors.Is(err, transition.ErrApplicationNotFound):
		return commonerrors.NewNotFoundError("application", input.ApplicationID)
	case stderrors.Is(err, ledger.ErrCycleNotFound),
		stderrors.Is(err, ledger.ErrBudgetNotFound):
		return commonerrors.NewNotFoundError("funding cycle budget", input.ApplicationID)
	case stderrors.Is(err, transition.ErrInvalidTransition):
		return commonerrors.NewInvalidTransitionError(err.Error())
	case stderrors.Is(err, ledger.ErrLedgerUnavailable):
		return commonerrors.NewLedgerUnavailableError(err)
	case stderrors.Is(err, award.ErrAwardPersistFailed):
		return commonerrors.NewAwardPersistFailedError(err)
	case stderrors.Is(err, notary.ErrNotarizationFailed):
		return commonerrors.NewNotarizationFailedError(err)
	default:
		return commonerrors.NewInternalError(err)
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
