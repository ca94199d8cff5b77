package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/database"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:drafttest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testPayload(title string) Payload {
	return Payload{
		Title:    title,
		Template: "classic",
		Kind:     database.CVKindPage,
		Language: "en",
		Content:  json.RawMessage(`{"personal": {"first_name": "Jo"}}`),
	}
}

func TestCreateOrGet_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t), 48*time.Hour)

	first, created, err := svc.CreateOrGet(ctx, testPayload("My resume"), "anon-1")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !created {
		t.Fatal("first submission must create a row")
	}

	// Same content, different key order and whitespace in the content blob.
	again := testPayload("My resume")
	again.Content = json.RawMessage(`{ "personal":{"first_name":"Jo"} }`)
	second, created, err := svc.CreateOrGet(ctx, again, "anon-2")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatal("identical content must not create a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("expected draft %d, got %d", first.ID, second.ID)
	}
}

func TestCreateOrGet_DifferentContentCreatesNewDraft(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t), 48*time.Hour)

	first, _, err := svc.CreateOrGet(ctx, testPayload("A"), "anon-1")
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	second, created, err := svc.CreateOrGet(ctx, testPayload("B"), "anon-1")
	if err != nil {
		t.Fatalf("create B: %v", err)
	}
	if !created || second.ID == first.ID {
		t.Fatalf("different content must create a new row (created=%v, ids %d/%d)", created, first.ID, second.ID)
	}
}

func TestClaim_TransitionsAndIdempotence(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t), 48*time.Hour)

	row, _, err := svc.CreateOrGet(ctx, testPayload("claim me"), "anon-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	claimed, err := svc.Claim(ctx, row.ID, 7)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != database.DraftStatusClaimed || claimed.UserID == nil || *claimed.UserID != 7 {
		t.Fatalf("claim did not transition the row: %+v", claimed)
	}

	// Same user claiming again is a no-op success.
	if _, err := svc.Claim(ctx, row.ID, 7); err != nil {
		t.Fatalf("re-claim by owner: %v", err)
	}
}

func TestClaim_ConflictLeavesOriginalClaimIntact(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db, 48*time.Hour)

	row, _, err := svc.CreateOrGet(ctx, testPayload("contested"), "anon-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Claim(ctx, row.ID, 7); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	if _, err := svc.Claim(ctx, row.ID, 8); !errors.Is(err, ErrClaimed) {
		t.Fatalf("expected ErrClaimed, got %v", err)
	}

	var reloaded database.CVDraft
	if err := db.First(&reloaded, row.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.UserID == nil || *reloaded.UserID != 7 {
		t.Fatalf("original claim clobbered: %+v", reloaded)
	}
}

func TestClaim_MissingAndExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db, 48*time.Hour)

	if _, err := svc.Claim(ctx, 999, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	row, _, err := svc.CreateOrGet(ctx, testPayload("stale"), "anon-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Model(&database.CVDraft{}).Where("id = ?", row.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("age draft: %v", err)
	}

	if _, err := svc.Claim(ctx, row.ID, 7); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestConvert_CreatesCVAndRetiresHash(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t), 48*time.Hour)

	row, _, err := svc.CreateOrGet(ctx, testPayload("convert me"), "anon-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Claim(ctx, row.ID, 7); err != nil {
		t.Fatalf("claim: %v", err)
	}

	cv, err := svc.Convert(ctx, row.ID, 7)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if cv.UserID != 7 || cv.Title != "convert me" || cv.Template != "classic" {
		t.Fatalf("cv not built from payload: %+v", cv)
	}

	// Identical content after conversion must start a fresh draft, not
	// resurrect the converted row.
	fresh, created, err := svc.CreateOrGet(ctx, testPayload("convert me"), "anon-1")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !created || fresh.ID == row.ID {
		t.Fatalf("converted draft resurrected (created=%v, ids %d/%d)", created, row.ID, fresh.ID)
	}

	if _, err := svc.Convert(ctx, row.ID, 7); !errors.Is(err, ErrConverted) {
		t.Fatalf("expected ErrConverted on double convert, got %v", err)
	}
}

func TestConvert_RequiresClaim(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t), 48*time.Hour)

	row, _, err := svc.CreateOrGet(ctx, testPayload("unclaimed"), "anon-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Not claimed at all: the draft has no owner, so it is not found for
	// this user.
	if _, err := svc.Convert(ctx, row.ID, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unclaimed draft, got %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db, 48*time.Hour)

	live, _, err := svc.CreateOrGet(ctx, testPayload("live"), "anon-1")
	if err != nil {
		t.Fatalf("create live: %v", err)
	}
	stale, _, err := svc.CreateOrGet(ctx, testPayload("stale"), "anon-1")
	if err != nil {
		t.Fatalf("create stale: %v", err)
	}
	if err := db.Model(&database.CVDraft{}).Where("id = ?", stale.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("age draft: %v", err)
	}

	deleted, err := svc.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %d", deleted)
	}

	var count int64
	if err := db.Model(&database.CVDraft{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the live draft to remain, got %d rows", count)
	}
	if err := db.First(&database.CVDraft{}, live.ID).Error; err != nil {
		t.Fatalf("live draft gone: %v", err)
	}
}

func TestContentHash_IgnoresLegacyFieldSpelling(t *testing.T) {
	a := testPayload("same")
	a.Content = json.RawMessage(`{"experiences": [{"role": "Engineer", "start_year": "2020"}]}`)
	b := testPayload("same")
	b.Content = json.RawMessage(`{"experiences": [{"title": "Engineer", "from": "2020"}]}`)

	ha, err := ContentHash(a)
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hb, err := ContentHash(b)
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if ha != hb {
		t.Fatalf("legacy spelling changed the hash: %s vs %s", ha, hb)
	}
}
