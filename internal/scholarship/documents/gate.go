// internal/scholarship/documents/gate.go
package documents

import (
	"errors"
	"fmt"

	"scholarship-workers/internal/models"
)

var (
	// ErrCertificateMissing means a required kind is neither on record
	// nor supplied by the request.
	ErrCertificateMissing = errors.New("CERTIFICATE_MISSING")
	// ErrMalformedSupply means the request supplies a document without
	// its extracted-detail payload.
	ErrMalformedSupply = errors.New("CERTIFICATE_DETAILS_MISSING")
)

// KindStatus describes one certificate kind at the transition instant.
type KindStatus struct {
	// Supplied is true when this request carries a new document of the kind.
	Supplied bool
	// HasDetails is true when the supplied document came with its
	// extracted-detail payload.
	HasDetails bool
	// OnRecord is true when a certificate of the kind already exists.
	OnRecord bool
}

// GateInput carries the per-kind flags the gate decides on.
type GateInput struct {
	Grades       KindStatus
	Registration KindStatus
}

// Evaluate decides whether an application may move from pending to
// approved. Pure predicate: document persistence is the upload
// collaborator's job and must happen before the controller re-checks.
func Evaluate(in GateInput) error {
	kinds := []struct {
		kind   models.CertificateKind
		status KindStatus
	}{
		{models.CertificateGrades, in.Grades},
		{models.CertificateRegistration, in.Registration},
	}

	for _, k := range kinds {
		// A supplied document without its payload is malformed input,
		// independent of what is already on record.
		if k.status.Supplied && !k.status.HasDetails {
			return fmt.Errorf("%w: %s", ErrMalformedSupply, k.kind)
		}
		if !k.status.Supplied && !k.status.OnRecord {
			return fmt.Errorf("%w: %s", ErrCertificateMissing, k.kind)
		}
	}
	return nil
}
