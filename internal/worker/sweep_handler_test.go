package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/database"
	"github.com/leaplineadmin/brevy-sub002/internal/draft"
	"github.com/leaplineadmin/brevy-sub002/internal/storage"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:workertest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePurger struct {
	prefixes []string
}

func (f *fakePurger) DeletePrefix(_ context.Context, prefix string) error {
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

type fakeEnqueuer struct {
	enqueued []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.enqueued = append(f.enqueued, task)
	return &asynq.TaskInfo{}, nil
}

func TestHandleDraftSweep_RemovesExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	drafts := draft.NewService(db, 48*time.Hour)

	payload := draft.Payload{
		Title:    "Sweep me",
		Template: "classic",
		Kind:     database.CVKindPage,
		Language: "en",
		Content:  json.RawMessage(`{"personal": {"first_name": "Jo"}}`),
	}
	row, _, err := drafts.CreateOrGet(ctx, payload, "anon-1")
	if err != nil {
		t.Fatalf("seed draft: %v", err)
	}

	expired := time.Now().Add(-time.Hour)
	if err := db.Model(&database.CVDraft{}).Where("id = ?", row.ID).Update("expires_at", expired).Error; err != nil {
		t.Fatalf("backdate draft: %v", err)
	}

	h := NewSweepHandler(db, drafts, &fakePurger{}, &fakeEnqueuer{}, testLogger())
	if err := h.HandleDraftSweep(ctx, tasks.NewDraftSweepTask()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	var count int64
	if err := db.Unscoped().Model(&database.CVDraft{}).Count(&count).Error; err != nil {
		t.Fatalf("count drafts: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected expired draft to be removed, %d rows remain", count)
	}
}

func TestHandleAccountPurge_ScanEnqueuesDueAccounts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	due := database.DeletedUser{OriginalUserID: 7, Email: "due@example.com", PurgeAfter: time.Now().Add(-time.Hour)}
	waiting := database.DeletedUser{OriginalUserID: 8, Email: "wait@example.com", PurgeAfter: time.Now().Add(24 * time.Hour)}
	if err := db.Create(&due).Error; err != nil {
		t.Fatalf("seed due marker: %v", err)
	}
	if err := db.Create(&waiting).Error; err != nil {
		t.Fatalf("seed waiting marker: %v", err)
	}

	enq := &fakeEnqueuer{}
	h := NewSweepHandler(db, draft.NewService(db, time.Hour), &fakePurger{}, enq, testLogger())
	if err := h.HandleAccountPurge(ctx, tasks.NewAccountPurgeScanTask()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(enq.enqueued) != 1 {
		t.Fatalf("expected 1 purge task, got %d", len(enq.enqueued))
	}
	var payload tasks.AccountPurgePayload
	if err := json.Unmarshal(enq.enqueued[0].Payload(), &payload); err != nil {
		t.Fatalf("unmarshal enqueued payload: %v", err)
	}
	if payload.DeletedUserID != due.ID {
		t.Fatalf("expected purge task for marker %d, got %d", due.ID, payload.DeletedUserID)
	}
}

func TestHandleAccountPurge_RemovesAccountData(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	user := database.User{Email: "gone@example.com", Username: "gone", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	cv := database.CV{Title: "Old resume", UserID: user.ID}
	if err := db.Create(&cv).Error; err != nil {
		t.Fatalf("seed cv: %v", err)
	}
	userID := user.ID
	draftRow := database.CVDraft{UserID: &userID, AnonID: "anon-9", Status: database.DraftStatusConverted, ExpiresAt: time.Now().Add(time.Hour)}
	if err := db.Create(&draftRow).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	marker := database.DeletedUser{OriginalUserID: user.ID, Email: user.Email, PurgeAfter: time.Now().Add(-time.Minute)}
	if err := db.Create(&marker).Error; err != nil {
		t.Fatalf("seed marker: %v", err)
	}

	purger := &fakePurger{}
	h := NewSweepHandler(db, draft.NewService(db, time.Hour), purger, &fakeEnqueuer{}, testLogger())

	task, err := tasks.NewAccountPurgeTask(marker.ID)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.HandleAccountPurge(ctx, task); err != nil {
		t.Fatalf("purge: %v", err)
	}

	for name, model := range map[string]any{
		"users":    &database.User{},
		"cvs":      &database.CV{},
		"drafts":   &database.CVDraft{},
		"deletion": &database.DeletedUser{},
	} {
		var count int64
		if err := db.Unscoped().Model(model).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if count != 0 {
			t.Fatalf("expected no %s rows after purge, got %d", name, count)
		}
	}

	if len(purger.prefixes) != 1 || purger.prefixes[0] != storage.UserPrefix(user.ID) {
		t.Fatalf("expected storage prefix %q deleted, got %v", storage.UserPrefix(user.ID), purger.prefixes)
	}
}

func TestHandleAccountPurge_MissingMarkerIsSkipped(t *testing.T) {
	db := newTestDB(t)
	h := NewSweepHandler(db, draft.NewService(db, time.Hour), &fakePurger{}, &fakeEnqueuer{}, testLogger())

	task, err := tasks.NewAccountPurgeTask(12345)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.HandleAccountPurge(context.Background(), task); err != nil {
		t.Fatalf("missing marker should not fail the task: %v", err)
	}
}
