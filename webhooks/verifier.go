package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fieldline/go-autopilot/core"
)

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// SecretSource yields the candidate signing secrets in verification order.
type SecretSource interface {
	Secrets() []string
}

type StaticSecret string

func (s StaticSecret) Secrets() []string {
	secret := strings.TrimSpace(string(s))
	if secret == "" {
		return nil
	}
	return []string{secret}
}

// HMACVerifier checks a keyed SHA-256 digest carried in a header against the
// exact raw body bytes. Validation never runs against a re-serialized body:
// whitespace or key-ordering differences would reject legitimate deliveries.
type HMACVerifier struct {
	Header   string
	Prefix   string
	Encoding string // hex | base64
	Secrets  SecretSource
}

func (v HMACVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	header := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if header == "" {
		return authFailed(
			fmt.Sprintf("webhooks: %s signature header is required", strings.TrimSpace(v.Header)),
			nil,
		)
	}
	signature := strings.TrimSpace(strings.TrimPrefix(header, strings.TrimSpace(v.Prefix)))
	if signature == "" {
		return authFailed("webhooks: signature value is required", nil)
	}

	claimed, err := decodeSignature(signature, v.Encoding)
	if err != nil {
		return authFailed("webhooks: malformed signature header", map[string]any{
			"encoding": normalizeEncoding(v.Encoding),
		})
	}

	secrets := v.secrets()
	if len(secrets) == 0 {
		return authFailed("webhooks: signature secret is required", nil)
	}
	for _, secret := range secrets {
		mac := hmac.New(sha256.New, []byte(secret))
		_, _ = mac.Write(req.Body)
		if subtle.ConstantTimeCompare(claimed, mac.Sum(nil)) == 1 {
			return nil
		}
	}
	return authFailed("webhooks: signature verification failed", nil)
}

func (v HMACVerifier) secrets() []string {
	if v.Secrets == nil {
		return nil
	}
	out := make([]string, 0, 2)
	for _, secret := range v.Secrets.Secrets() {
		if trimmed := strings.TrimSpace(secret); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func decodeSignature(signature string, encoding string) ([]byte, error) {
	switch normalizeEncoding(encoding) {
	case "base64":
		return base64.StdEncoding.DecodeString(signature)
	default:
		return hex.DecodeString(signature)
	}
}

func normalizeEncoding(encoding string) string {
	normalized := strings.ToLower(strings.TrimSpace(encoding))
	if normalized == "" {
		return "hex"
	}
	return normalized
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
