package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leaplineadmin/brevy-sub002/internal/config"
	"github.com/leaplineadmin/brevy-sub002/internal/mailer"
	"github.com/leaplineadmin/brevy-sub002/internal/tasks"
)

func TestEmailHandler_SendsPayload(t *testing.T) {
	var got struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := mailer.NewClient(config.ResendConfig{
		APIKey:      "test-key",
		FromAddress: "Brevy <no-reply@brevy.app>",
		BaseURL:     srv.URL,
	})
	h := NewEmailHandler(client, testLogger())

	task, err := tasks.NewEmailSendTask(tasks.EmailSendPayload{
		To:       "jo@example.com",
		Template: "welcome",
		Language: "en",
		Subject:  "Welcome to Brevy",
		HTML:     "<p>Hi Jo</p>",
	})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}

	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process task: %v", err)
	}

	if len(got.To) != 1 || got.To[0] != "jo@example.com" {
		t.Fatalf("unexpected recipients %v", got.To)
	}
	if got.Subject != "Welcome to Brevy" {
		t.Fatalf("unexpected subject %q", got.Subject)
	}
}

func TestEmailHandler_UpstreamFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := mailer.NewClient(config.ResendConfig{APIKey: "k", FromAddress: "x@y", BaseURL: srv.URL})
	h := NewEmailHandler(client, testLogger())

	task, err := tasks.NewEmailSendTask(tasks.EmailSendPayload{To: "jo@example.com", Subject: "s", HTML: "h"})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected error when the provider rejects the send")
	}
}
