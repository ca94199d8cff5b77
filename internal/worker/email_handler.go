package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/leaplineadmin/brevy-sub002/internal/mailer"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
)

// EmailHandler delivers transactional email enqueued by the API.
type EmailHandler struct {
	mailer *mailer.Client
	logger *slog.Logger
}

func NewEmailHandler(mailerClient *mailer.Client, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{mailer: mailerClient, logger: logger}
}

// ProcessTask implements asynq.Handler.
func (h *EmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EmailSendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal email payload failed", slog.Any("error", err))
		return err
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("template", payload.Template),
	)

	err := h.mailer.Send(ctx, mailer.Message{
		To:      payload.To,
		Subject: payload.Subject,
		HTML:    payload.HTML,
	})
	if err != nil {
		log.Error("send email failed", slog.Any("error", err))
		return err
	}

	log.Info("email sent")
	return nil
}
