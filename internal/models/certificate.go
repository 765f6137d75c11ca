// internal/models/certificate.go
package models

import "time"

// CertificateKind distinguishes the two required supporting documents.
type CertificateKind string

const (
	CertificateGrades       CertificateKind = "grades"
	CertificateRegistration CertificateKind = "registration"
)

// CertificateKinds lists every kind required for approval.
var CertificateKinds = []CertificateKind{CertificateGrades, CertificateRegistration}

// CertificateRecord is a supporting document on file for an application.
// Created by the document-upload collaborator; read-only to this engine.
type CertificateRecord struct {
	ID            string                 `json:"id"`
	ApplicationID string                 `json:"applicationId"`
	Kind          CertificateKind        `json:"kind"`
	Details       map[string]interface{} `json:"details"`
	CreatedAt     time.Time              `json:"createdAt"`
}
