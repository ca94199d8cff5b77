package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants keep queue producers and consumers aligned.
const (
	TypePDFExport    = "pdf:export"
	TypeDraftSweep   = "draft:sweep"
	TypeAccountPurge = "account:purge"
	TypeEmailSend    = "email:send"
)

// PDFExportPayload carries what the worker needs to render one CV to PDF.
type PDFExportPayload struct {
	CVID          uint   `json:"cv_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPDFExportTask builds a PDF export task for a CV.
func NewPDFExportTask(cvID, userID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PDFExportPayload{
		CVID:          cvID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePDFExport, payload), nil
}

// NewDraftSweepTask builds the periodic expired-draft sweep. It carries no
// payload; the worker derives everything from the database.
func NewDraftSweepTask() *asynq.Task {
	return asynq.NewTask(TypeDraftSweep, nil)
}

// AccountPurgePayload identifies a soft-deleted account whose grace period
// ended.
type AccountPurgePayload struct {
	DeletedUserID uint `json:"deleted_user_id"`
}

// NewAccountPurgeTask builds a purge task for one retired account.
func NewAccountPurgeTask(deletedUserID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(AccountPurgePayload{DeletedUserID: deletedUserID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAccountPurge, payload), nil
}

// NewAccountPurgeScanTask builds the periodic scan that enqueues purge tasks
// for accounts past their grace period.
func NewAccountPurgeScanTask() *asynq.Task {
	return asynq.NewTask(TypeAccountPurge, nil)
}

// EmailSendPayload is a transactional email handed off to the worker so SMTP
// latency never blocks a request.
type EmailSendPayload struct {
	To            string `json:"to"`
	Template      string `json:"template"`
	Language      string `json:"language"`
	Subject       string `json:"subject"`
	HTML          string `json:"html"`
	CorrelationID string `json:"correlation_id"`
}

// NewEmailSendTask builds an email delivery task.
func NewEmailSendTask(p EmailSendPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailSend, payload), nil
}
