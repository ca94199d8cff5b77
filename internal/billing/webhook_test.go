package billing

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func TestVerifySignature_RoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	now := time.Now()

	header := SignPayload(payload, testSecret, now)
	if err := VerifySignature(payload, header, testSecret, now); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := SignPayload(payload, "whsec_other", now)
	if err := VerifySignature(payload, header, testSecret, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	header := SignPayload(payload, testSecret, now)
	tampered := []byte(`{"id":"evt_2"}`)
	if err := VerifySignature(tampered, header, testSecret, now); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	signedAt := time.Now().Add(-10 * time.Minute)

	header := SignPayload(payload, testSecret, signedAt)
	if err := VerifySignature(payload, header, testSecret, time.Now()); !errors.Is(err, ErrStaleTimestamp) {
		t.Fatalf("expected ErrStaleTimestamp, got %v", err)
	}
}

func TestVerifySignature_MalformedHeader(t *testing.T) {
	for _, header := range []string{"", "t=123", "v1=deadbeef", "nonsense"} {
		if err := VerifySignature([]byte("{}"), header, testSecret, time.Now()); err == nil {
			t.Errorf("header %q accepted", header)
		}
	}
}

func TestParseEvent_CheckoutSession(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_9",
			"client_reference_id": "42",
			"subscription": "sub_3",
			"status": "complete"
		}}
	}`)

	ev, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Type != EventCheckoutCompleted {
		t.Fatalf("unexpected type %q", ev.Type)
	}

	session, err := CheckoutSessionFromEvent(ev)
	if err != nil {
		t.Fatalf("extract session: %v", err)
	}
	if session.Customer != "cus_9" || session.ClientRef != "42" || session.Subscription != "sub_3" {
		t.Fatalf("session fields wrong: %+v", session)
	}
}

func TestParseEvent_SubscriptionDeleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_3", "customer": "cus_9", "status": "canceled"}}
	}`)

	ev, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sub, err := SubscriptionFromEvent(ev)
	if err != nil {
		t.Fatalf("extract subscription: %v", err)
	}
	if sub.ID != "sub_3" || StatusGrantsAccess(sub.Status) {
		t.Fatalf("subscription fields wrong: %+v", sub)
	}
}

func TestStatusGrantsAccess(t *testing.T) {
	for status, want := range map[string]bool{
		"active":   true,
		"trialing": true,
		"past_due": false,
		"canceled": false,
		"":         false,
	} {
		if got := StatusGrantsAccess(status); got != want {
			t.Errorf("StatusGrantsAccess(%q) = %v, want %v", status, got, want)
		}
	}
}
