// internal/scholarship/notary/notary.go
package notary

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "scholarship-workers/internal/common/http"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/metrics"
	"scholarship-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

var ErrNotarizationFailed = errors.New("NOTARIZATION_FAILED")

const (
	localReferencePrefix = "local:"
	auditIndex           = "audit-records"
)

// SubjectIDs identifies the records a notarized event refers to.
type SubjectIDs struct {
	ApplicationID string
	AwardID       string
}

// Adapter records immutable event references on an external append-only
// ledger, synthesizing a local reference when the ledger is unreachable.
type Adapter struct {
	db         *sql.DB
	es         *elasticsearch.Client
	httpClient *commonhttp.Client
	endpoint   string
	timeout    time.Duration
	logger     logger.Logger
}

// New creates a notary adapter. endpoint may be empty (ledger
// unconfigured) and es may be nil (no search mirror); both degrade
// gracefully.
func New(db *sql.DB, es *elasticsearch.Client, endpoint string, timeout time.Duration, log logger.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		db:         db,
		es:         es,
		httpClient: commonhttp.NewClient(timeout),
		endpoint:   endpoint,
		timeout:    timeout,
		logger:     log.WithFields(map[string]interface{}{"component": "audit-notary"}),
	}
}

// Notarize submits the event to the external ledger and persists an
// audit record with the obtained reference. An unreachable or
// unconfigured ledger falls back to a synthesized local reference; only
// a failure to persist the audit record itself is an error.
func (a *Adapter) Notarize(ctx context.Context, kind models.AuditKind, subjects SubjectIDs, amount int64) (string, error) {
	reference := a.submitExternal(ctx, kind, subjects, amount)
	if reference == "" {
		reference = fallbackReference(kind, subjects)
		metrics.NotaryFallbacks.Inc()
		a.logger.Warn("external ledger unavailable, using local reference", map[string]interface{}{
			"kind":          string(kind),
			"applicationId": subjects.ApplicationID,
			"reference":     reference,
		})
	}

	record := models.AuditRecord{
		ID:            uuid.New().String(),
		Kind:          kind,
		Reference:     reference,
		ApplicationID: subjects.ApplicationID,
		CreatedAt:     time.Now().UTC(),
	}
	if subjects.AwardID != "" {
		record.AwardID = &subjects.AwardID
	}

	var awardID interface{}
	if record.AwardID != nil {
		awardID = *record.AwardID
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO audit_records (id, kind, reference, application_id, award_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, string(record.Kind), record.Reference, record.ApplicationID, awardID, record.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("%w: persist audit record: %v", ErrNotarizationFailed, err)
	}

	a.mirrorToSearch(ctx, record)

	a.logger.Info("event notarized", map[string]interface{}{
		"auditId":       record.ID,
		"kind":          string(kind),
		"applicationId": subjects.ApplicationID,
		"reference":     reference,
	})
	return reference, nil
}

// ExistingReference returns the reference of an already-notarized event
// of the given kind for the application, if one exists.
func (a *Adapter) ExistingReference(ctx context.Context, kind models.AuditKind, applicationID string) (string, bool, error) {
	var reference string
	err := a.db.QueryRowContext(ctx, `
		SELECT reference FROM audit_records
		WHERE application_id = $1 AND kind = $2
		ORDER BY created_at LIMIT 1`,
		applicationID, string(kind)).Scan(&reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("audit record lookup for %s: %w", applicationID, err)
	}
	return reference, true, nil
}

// submitExternal returns the ledger transaction reference, or "" when
// the ledger is unconfigured, unreachable, or answers without one.
func (a *Adapter) submitExternal(ctx context.Context, kind models.AuditKind, subjects SubjectIDs, amount int64) string {
	if a.endpoint == "" {
		return ""
	}

	payload, err := json.Marshal(map[string]interface{}{
		"kind":          string(kind),
		"applicationId": subjects.ApplicationID,
		"awardId":       subjects.AwardID,
		"amount":        amount,
	})
	if err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequest(http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.DoWithContext(ctx, req)
	if err != nil {
		a.logger.Warn("ledger submission failed", map[string]interface{}{
			"kind":  string(kind),
			"error": err.Error(),
		})
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.logger.Warn("ledger rejected submission", map[string]interface{}{
			"kind":   string(kind),
			"status": resp.StatusCode,
		})
		return ""
	}

	var result struct {
		Reference string `json:"reference"`
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return ""
	}
	return strings.TrimSpace(result.Reference)
}

// fallbackReference synthesizes a reference deterministic in the event
// inputs plus a monotonically distinguishing nanosecond component.
func fallbackReference(kind models.AuditKind, subjects SubjectIDs) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d", kind, subjects.ApplicationID, subjects.AwardID, time.Now().UnixNano())
	return localReferencePrefix + hex.EncodeToString(h.Sum(nil))[:32]
}

// mirrorToSearch indexes the audit record for operator search.
// Best-effort: a mirror failure never fails notarization.
func (a *Adapter) mirrorToSearch(ctx context.Context, record models.AuditRecord) {
	if a.es == nil {
		return
	}

	body, err := json.Marshal(record)
	if err != nil {
		a.logger.Warn("audit record mirror marshal failed", map[string]interface{}{
			"auditId": record.ID,
			"error":   err.Error(),
		})
		return
	}

	res, err := a.es.Index(
		auditIndex,
		bytes.NewReader(body),
		a.es.Index.WithContext(ctx),
		a.es.Index.WithDocumentID(record.ID),
	)
	if err != nil {
		a.logger.Warn("audit record mirror failed", map[string]interface{}{
			"auditId": record.ID,
			"error":   err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		a.logger.Warn("audit record mirror rejected", map[string]interface{}{
			"auditId": record.ID,
			"status":  res.Status(),
		})
	}
}
