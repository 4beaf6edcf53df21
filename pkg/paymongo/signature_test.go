package paymongo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testWebhookSecret = "whsk_test_secret"

func signBody(t *testing.T, secret string, timestamp int64, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAcceptsTestModeDigest(t *testing.T) {
	body := []byte(`{"data":{"id":"evt_1"}}`)
	now := time.Now()
	ts := now.Unix()
	header := fmt.Sprintf("t=%d,te=%s,li=", ts, signBody(t, testWebhookSecret, ts, body))

	if err := VerifySignature(testWebhookSecret, header, body, now, time.Minute); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestVerifySignatureAcceptsLiveModeDigest(t *testing.T) {
	body := []byte(`{"data":{"id":"evt_2"}}`)
	now := time.Now()
	ts := now.Unix()
	header := fmt.Sprintf("t=%d,li=%s", ts, signBody(t, testWebhookSecret, ts, body))

	if err := VerifySignature(testWebhookSecret, header, body, now, 0); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	body := []byte(`{"data":{"id":"evt_3"}}`)
	now := time.Now()
	ts := now.Unix()
	header := fmt.Sprintf("t=%d,te=%s", ts, signBody(t, testWebhookSecret, ts, body))

	tampered := []byte(`{"data":{"id":"evt_3","amount":999}}`)
	err := VerifySignature(testWebhookSecret, header, tampered, now, 0)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()
	ts := now.Unix()
	header := fmt.Sprintf("t=%d,te=%s", ts, signBody(t, "other_secret", ts, body))

	err := VerifySignature(testWebhookSecret, header, body, now, 0)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()
	stale := now.Add(-10 * time.Minute).Unix()
	header := fmt.Sprintf("t=%d,te=%s", stale, signBody(t, testWebhookSecret, stale, body))

	err := VerifySignature(testWebhookSecret, header, body, now, time.Minute)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsMalformedHeader(t *testing.T) {
	cases := []string{
		"",
		"t=abc,te=deadbeef",
		"te=deadbeef",
		"t=123",
		"nonsense",
	}
	for _, header := range cases {
		err := VerifySignature(testWebhookSecret, header, []byte(`{}`), time.Now(), 0)
		if !errors.Is(err, ErrMalformedSignature) {
			t.Fatalf("header %q: expected ErrMalformedSignature, got %v", header, err)
		}
	}
}
