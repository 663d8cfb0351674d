package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signPayload(t *testing.T, payload []byte, secret string, ts int64) string {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestParseWebhookEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"created": 1700000000,
		"data": {"object": {"id": "pi_123", "status": "succeeded"}}
	}`)
	secret := "whsec_test"
	header := signPayload(t, payload, secret, time.Now().Unix())

	event, err := ParseWebhookEvent(payload, header, secret, 5*time.Minute)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if event.Type != "payment_intent.succeeded" {
		t.Fatalf("unexpected type %q", event.Type)
	}
	if event.IntentID != "pi_123" || event.Status != "succeeded" {
		t.Fatalf("unexpected intent fields %+v", event)
	}
}

func TestParseWebhookEventRejectsBadSignature(t *testing.T) {
	payload := []byte(`{"id": "evt_1", "type": "payment_intent.succeeded"}`)
	header := signPayload(t, payload, "whsec_other", time.Now().Unix())

	if _, err := ParseWebhookEvent(payload, header, "whsec_test", 5*time.Minute); err == nil {
		t.Fatal("expected signature mismatch error")
	}
}

func TestParseWebhookEventRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id": "evt_1", "type": "payment_intent.succeeded"}`)
	secret := "whsec_test"
	header := signPayload(t, payload, secret, time.Now().Add(-time.Hour).Unix())

	if _, err := ParseWebhookEvent(payload, header, secret, 5*time.Minute); err == nil {
		t.Fatal("expected stale timestamp error")
	}
}
