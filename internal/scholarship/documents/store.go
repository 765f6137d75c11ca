// internal/scholarship/documents/store.go
package documents

import (
	"context"
	"database/sql"
	"fmt"

	"scholarship-workers/internal/models"
)

// Store reads certificate records from the document store. The engine
// never writes certificates; uploads belong to an external collaborator.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Exists reports whether a certificate of the given kind is on record
// for the application.
func (s *Store) Exists(ctx context.Context, applicationID string, kind models.CertificateKind) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM certificates
			WHERE application_id = $1 AND kind = $2
		)`, applicationID, string(kind)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("certificate lookup failed for %s/%s: %w", applicationID, kind, err)
	}
	return exists, nil
}
