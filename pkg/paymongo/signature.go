package paymongo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the HTTP header PayMongo attaches to webhook deliveries.
const SignatureHeader = "Paymongo-Signature"

// ErrInvalidSignature is returned when no signature component matches the payload.
var ErrInvalidSignature = errors.New("paymongo: webhook signature mismatch")

// ErrMalformedSignature is returned when the signature header cannot be parsed.
var ErrMalformedSignature = errors.New("paymongo: malformed signature header")

// parsedSignature holds the decomposed header: a unix timestamp plus the
// test-mode and live-mode HMAC digests. Either digest may be absent.
type parsedSignature struct {
	Timestamp int64
	TestMode  string
	LiveMode  string
}

func parseSignatureHeader(header string) (parsedSignature, error) {
	var sig parsedSignature
	if strings.TrimSpace(header) == "" {
		return sig, ErrMalformedSignature
	}

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return parsedSignature{}, ErrMalformedSignature
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return parsedSignature{}, ErrMalformedSignature
			}
			sig.Timestamp = ts
		case "te":
			sig.TestMode = kv[1]
		case "li":
			sig.LiveMode = kv[1]
		}
	}

	if sig.Timestamp == 0 || (sig.TestMode == "" && sig.LiveMode == "") {
		return parsedSignature{}, ErrMalformedSignature
	}
	return sig, nil
}

// VerifySignature checks the webhook payload against the signature header using
// the shared webhook secret. The signed message is "<timestamp>.<raw body>" and
// either the test-mode or live-mode digest may match. When tolerance is
// positive, deliveries whose timestamp drifts beyond it are rejected.
func VerifySignature(secret string, header string, body []byte, now time.Time, tolerance time.Duration) error {
	if secret == "" {
		return fmt.Errorf("paymongo: webhook secret is required")
	}

	sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		drift := now.Sub(time.Unix(sig.Timestamp, 0))
		if drift < 0 {
			drift = -drift
		}
		if drift > tolerance {
			return ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(sig.Timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range []string{sig.TestMode, sig.LiveMode} {
		if candidate == "" {
			continue
		}
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return nil
		}
	}
	return ErrInvalidSignature
}
