package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Notify statuses forwarded to the browser over the WebSocket bridge.
const (
	notifyStatusCompleted = "completed"
	notifyStatusError     = "error"
)

// ExportNotifyMessage is the payload pushed to the owner's notification
// channel when a PDF export finishes. Field names are part of the frontend
// contract.
type ExportNotifyMessage struct {
	Status        string `json:"status"`
	CVID          uint   `json:"cv_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// publishExportNotify fans the message out via Redis Pub/Sub. The API's
// WebSocket handler subscribes each connected client to its own channel.
func publishExportNotify(ctx context.Context, rdb *redis.Client, userID uint, msg ExportNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notify message: %w", err)
	}

	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish notification to %q: %w", channel, err)
	}
	return nil
}

// isFinalAsynqAttempt reports whether the current execution is the last retry
// asynq will make for this task.
func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
