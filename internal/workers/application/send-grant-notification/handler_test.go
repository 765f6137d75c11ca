// internal/workers/application/send-grant-notification/handler_test.go
package sendgrantnotification

import (
	"context"
	"errors"
	"testing"

	"scholarship-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	calls int
	err   error
}

func (m *mockSES) SendEmail(_ context.Context, _ *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls++
	return &ses.SendEmailOutput{}, m.err
}

type mockSNS struct {
	calls int
	err   error
}

func (m *mockSNS) Publish(_ context.Context, _ *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls++
	return &sns.PublishOutput{}, m.err
}

func newTestHandler(t *testing.T, cfg *Config, sesMock SESService, snsMock SNSService) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Handler{
		config:    cfg,
		db:        db,
		logger:    logger.NewNoOpLogger(),
		sesClient: sesMock,
		snsClient: snsMock,
	}, mock
}

func expectContact(mock sqlmock.Sqlmock, email, phone string) {
	mock.ExpectQuery(`SELECT ap.full_name, ap.email, ap.phone`).
		WithArgs("app-001").
		WillReturnRows(sqlmock.NewRows([]string{"full_name", "email", "phone"}).
			AddRow("Juana Dela Cruz", email, phone))
}

func TestExecute_SendsEmailAndSMS(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	h, mock := newTestHandler(t, &Config{EmailEnabled: true, SMSEnabled: true, FromEmail: "grants@example.org"}, sesMock, snsMock)
	expectContact(mock, "juana@example.org", "+15550001111")

	output := h.Execute(context.Background(), &Input{
		ApplicationID:  "app-001",
		AwardID:        "award-1",
		AwardAmount:    500,
		AuditReference: "0xabc",
	})

	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, 1, sesMock.calls)
	assert.Equal(t, 1, snsMock.calls)
}

func TestExecute_EmailFailureReportsFailedStatus(t *testing.T) {
	sesMock := &mockSES{err: errors.New("ses throttled")}
	h, mock := newTestHandler(t, &Config{EmailEnabled: true, FromEmail: "grants@example.org"}, sesMock, &mockSNS{})
	expectContact(mock, "juana@example.org", "")

	output := h.Execute(context.Background(), &Input{ApplicationID: "app-001"})

	assert.Equal(t, StatusFailed, output.Status)
}

func TestExecute_AllChannelsDisabled(t *testing.T) {
	h, mock := newTestHandler(t, &Config{}, &mockSES{}, &mockSNS{})
	expectContact(mock, "juana@example.org", "+15550001111")

	output := h.Execute(context.Background(), &Input{ApplicationID: "app-001"})

	assert.Equal(t, StatusDisabled, output.Status)
}

func TestExecute_RecipientNotFound(t *testing.T) {
	sesMock := &mockSES{}
	h, mock := newTestHandler(t, &Config{EmailEnabled: true}, sesMock, &mockSNS{})
	mock.ExpectQuery(`SELECT ap.full_name, ap.email, ap.phone`).
		WithArgs("app-404").
		WillReturnError(errors.New("sql: no rows in result set"))

	output := h.Execute(context.Background(), &Input{ApplicationID: "app-404"})

	assert.Equal(t, StatusDisabled, output.Status)
	assert.Equal(t, 0, sesMock.calls)
}
