package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WebhookEvent is the decoded form of a Stripe event notification relevant to
// a payment flow: intent status transitions.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
	Status   string
	Created  int64
}

// ParseWebhookEvent verifies the signature header against the payload and
// decodes the event. It follows Stripe's signing scheme:
// https://stripe.com/docs/webhooks/signatures
func ParseWebhookEvent(payload []byte, header, secret string, tolerance time.Duration) (*WebhookEvent, error) {
	if err := verifyWebhookSignature(payload, header, secret, tolerance); err != nil {
		return nil, err
	}

	var body struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("stripe event decode failed: %w", err)
	}
	if body.ID == "" || body.Type == "" {
		return nil, errors.New("stripe event is missing id or type")
	}

	return &WebhookEvent{
		ID:       body.ID,
		Type:     body.Type,
		IntentID: body.Data.Object.ID,
		Status:   body.Data.Object.Status,
		Created:  body.Created,
	}, nil
}

func verifyWebhookSignature(payload []byte, header, secret string, tolerance time.Duration) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("stripe webhook secret is required")
	}

	timestamp, signatures := parseSignatureHeader(header)
	if timestamp == "" || len(signatures) == 0 {
		return errors.New("stripe signature header is missing required fields")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid stripe signature timestamp: %w", err)
	}

	if tolerance > 0 {
		diff := time.Now().Unix() - ts
		if diff < 0 {
			diff = -diff
		}
		if diff > int64(tolerance.Seconds()) {
			return errors.New("stripe signature timestamp outside tolerance")
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return errors.New("no matching stripe signature found")
}

func parseSignatureHeader(header string) (string, []string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}

	var (
		timestamp  string
		signatures []string
	)

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			timestamp = strings.TrimPrefix(part, "t=")
		case strings.HasPrefix(part, "v1="):
			if sig := strings.TrimPrefix(part, "v1="); sig != "" {
				signatures = append(signatures, sig)
			}
		}
	}

	return timestamp, signatures
}
