package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/leaplineadmin/brevy-sub002/internal/database"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// asUser stands in for the JWT middleware in tests.
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func newCVTestRouter(t *testing.T, db *gorm.DB, userID uint, freeLimit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := NewCVHandler(db, freeLimit)
	authed := router.Group("/v1/cvs", asUser(userID))
	{
		authed.POST("", h.CreateCV)
		authed.POST("/:id/publish", h.PublishCV)
		authed.POST("/:id/unpublish", h.UnpublishCV)
	}
	router.GET("/v1/subdomains/check", h.CheckSubdomain)
	router.GET("/v1/public/cvs/:subdomain", h.PublicCV)
	return router
}

func seedUser(t *testing.T, db *gorm.DB, email string, subscribed bool) database.User {
	t.Helper()
	user := database.User{Email: email, Username: email, PasswordHash: "x", HasActiveSubscription: subscribed}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedCV(t *testing.T, db *gorm.DB, userID uint, template string) database.CV {
	t.Helper()
	cv := database.CV{
		Title:    "Test resume",
		Kind:     database.CVKindPage,
		Template: template,
		Language: "en",
		Content:  datatypes.JSON(`{"personal": {"first_name": "Jo", "last_name": "Field"}}`),
		UserID:   userID,
	}
	if err := db.Create(&cv).Error; err != nil {
		t.Fatalf("seed cv: %v", err)
	}
	return cv
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateCV_FreeLimitBlocksSecondResume(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "free@example.com", false)
	router := newCVTestRouter(t, db, user.ID, 1)

	first := doJSON(router, http.MethodPost, "/v1/cvs", gin.H{"title": "First"})
	if first.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d: %s", first.Code, first.Body)
	}

	second := doJSON(router, http.MethodPost, "/v1/cvs", gin.H{"title": "Second"})
	if second.Code != http.StatusForbidden {
		t.Fatalf("second create: expected 403, got %d: %s", second.Code, second.Body)
	}
}

func TestCreateCV_SubscriberBypassesLimit(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "pro@example.com", true)
	router := newCVTestRouter(t, db, user.ID, 1)

	for i := 0; i < 3; i++ {
		w := doJSON(router, http.MethodPost, "/v1/cvs", gin.H{"title": fmt.Sprintf("Resume %d", i)})
		if w.Code != http.StatusCreated {
			t.Fatalf("create %d: expected 201, got %d: %s", i, w.Code, w.Body)
		}
	}
}

func TestPublishCV_DuplicateSubdomainConflicts(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "dup@example.com", false)
	router := newCVTestRouter(t, db, user.ID, 0)

	first := seedCV(t, db, user.ID, "classic")
	second := seedCV(t, db, user.ID, "classic")

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/v1/cvs/%d/publish", first.ID), gin.H{"subdomain": "jofield"})
	if w.Code != http.StatusOK {
		t.Fatalf("first publish: expected 200, got %d: %s", w.Code, w.Body)
	}

	w = doJSON(router, http.MethodPost, fmt.Sprintf("/v1/cvs/%d/publish", second.ID), gin.H{"subdomain": "jofield"})
	if w.Code != http.StatusConflict {
		t.Fatalf("second publish: expected 409, got %d: %s", w.Code, w.Body)
	}
}

func TestPublishCV_PremiumTemplateRequiresSubscription(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "onyx@example.com", false)
	router := newCVTestRouter(t, db, user.ID, 0)
	cv := seedCV(t, db, user.ID, "onyx")

	w := doJSON(router, http.MethodPost, fmt.Sprintf("/v1/cvs/%d/publish", cv.ID), gin.H{"subdomain": "onyxcv"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for premium template without subscription, got %d: %s", w.Code, w.Body)
	}
}

func TestPublishCV_InvalidAndReservedSubdomains(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "bad@example.com", false)
	router := newCVTestRouter(t, db, user.ID, 0)
	cv := seedCV(t, db, user.ID, "classic")

	for _, name := range []string{"Has Spaces", "-leading", "www", "api"} {
		w := doJSON(router, http.MethodPost, fmt.Sprintf("/v1/cvs/%d/publish", cv.ID), gin.H{"subdomain": name})
		if w.Code != http.StatusBadRequest {
			t.Errorf("subdomain %q: expected 400, got %d", name, w.Code)
		}
	}
}

func TestPublicCV_OnlyPublishedVisible(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "pub@example.com", false)
	router := newCVTestRouter(t, db, user.ID, 0)
	cv := seedCV(t, db, user.ID, "classic")

	w := doJSON(router, http.MethodGet, "/v1/public/cvs/jopublic", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unpublished: expected 404, got %d", w.Code)
	}

	w = doJSON(router, http.MethodPost, fmt.Sprintf("/v1/cvs/%d/publish", cv.ID), gin.H{"subdomain": "jopublic"})
	if w.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d: %s", w.Code, w.Body)
	}

	w = doJSON(router, http.MethodGet, "/v1/public/cvs/jopublic", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("published: expected 200, got %d: %s", w.Code, w.Body)
	}

	var body struct {
		Content struct {
			Personal struct {
				FirstName string `json:"first_name"`
				Headline  string `json:"headline"`
			} `json:"personal"`
		} `json:"content"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode public cv: %v", err)
	}
	if body.Content.Personal.FirstName != "Jo" {
		t.Fatalf("expected stored first name, got %q", body.Content.Personal.FirstName)
	}
	// Published mode must not backfill placeholders for missing fields.
	if body.Content.Personal.Headline != "" {
		t.Fatalf("expected empty headline in published mode, got %q", body.Content.Personal.Headline)
	}

	w = doJSON(router, http.MethodPost, fmt.Sprintf("/v1/cvs/%d/unpublish", cv.ID), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("unpublish: expected 204, got %d", w.Code)
	}
	w = doJSON(router, http.MethodGet, "/v1/public/cvs/jopublic", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("after unpublish: expected 404, got %d", w.Code)
	}
}

func TestCheckSubdomain(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "check@example.com", false)
	router := newCVTestRouter(t, db, user.ID, 0)
	cv := seedCV(t, db, user.ID, "classic")

	if w := doJSON(router, http.MethodPost, fmt.Sprintf("/v1/cvs/%d/publish", cv.ID), gin.H{"subdomain": "taken"}); w.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d", w.Code)
	}

	cases := []struct {
		name      string
		valid     bool
		available bool
	}{
		{"taken", true, false},
		{"open-name", true, true},
		{"www", false, false},
		{"bad_name", false, false},
	}
	for _, tc := range cases {
		w := doJSON(router, http.MethodGet, "/v1/subdomains/check?name="+tc.name, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("check %q: expected 200, got %d", tc.name, w.Code)
		}
		var body struct {
			Valid     bool `json:"valid"`
			Available bool `json:"available"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode check %q: %v", tc.name, err)
		}
		if body.Valid != tc.valid || body.Available != tc.available {
			t.Errorf("check %q: got valid=%v available=%v, want valid=%v available=%v",
				tc.name, body.Valid, body.Available, tc.valid, tc.available)
		}
	}
}
