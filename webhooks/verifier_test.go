package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/fieldline/go-autopilot/core"
)

func signHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signBase64(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHMACVerifierAcceptsValidHexSignature(t *testing.T) {
	body := []byte(`{"topic":"JOB_CREATE","itemId":"job-1"}`)
	verifier := HMACVerifier{
		Header:  "X-Autopilot-Signature",
		Secrets: StaticSecret("topsecret"),
	}
	req := core.InboundRequest{
		Headers: map[string]string{"x-autopilot-signature": signHex("topsecret", body)},
		Body:    body,
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected valid signature to pass, got %v", err)
	}
}

func TestHMACVerifierVerifiesExactBodyBytes(t *testing.T) {
	body := []byte(`{"topic":"JOB_CREATE","itemId":"job-1"}`)
	reserialized := []byte(`{"itemId":"job-1","topic":"JOB_CREATE"}`)
	verifier := HMACVerifier{
		Header:  "X-Autopilot-Signature",
		Secrets: StaticSecret("topsecret"),
	}
	req := core.InboundRequest{
		Headers: map[string]string{"X-Autopilot-Signature": signHex("topsecret", body)},
		Body:    reserialized,
	}
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("expected signature over different byte layout to fail")
	}
}

func TestHMACVerifierSupportsPrefixAndBase64(t *testing.T) {
	body := []byte(`{"topic":"CLIENT_UPDATE","itemId":"client-9"}`)
	verifier := HMACVerifier{
		Header:   "X-Autopilot-Signature",
		Prefix:   "sha256=",
		Encoding: "base64",
		Secrets:  StaticSecret("topsecret"),
	}
	req := core.InboundRequest{
		Headers: map[string]string{"X-Autopilot-Signature": "sha256=" + signBase64("topsecret", body)},
		Body:    body,
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected prefixed base64 signature to pass, got %v", err)
	}
}

func TestHMACVerifierRejectionsCarryAuthCode(t *testing.T) {
	verifier := HMACVerifier{
		Header:  "X-Autopilot-Signature",
		Secrets: StaticSecret("topsecret"),
	}
	cases := []core.InboundRequest{
		{Body: []byte(`{}`)},
		{Headers: map[string]string{"X-Autopilot-Signature": "not-hex"}, Body: []byte(`{}`)},
		{Headers: map[string]string{"X-Autopilot-Signature": signHex("wrong", []byte(`{}`))}, Body: []byte(`{}`)},
	}
	for index, req := range cases {
		err := verifier.Verify(context.Background(), req)
		if err == nil {
			t.Fatalf("case %d: expected verification failure", index)
		}
		var mapped *goerrors.Error
		if !goerrors.As(err, &mapped) {
			t.Fatalf("case %d: expected goerrors envelope, got %T", index, err)
		}
		if mapped.TextCode != core.PipelineErrorAuthFailed {
			t.Fatalf("case %d: expected text code %q, got %q", index, core.PipelineErrorAuthFailed, mapped.TextCode)
		}
		if mapped.Code != 401 {
			t.Fatalf("case %d: expected status 401, got %d", index, mapped.Code)
		}
	}
}

func TestHMACVerifierAcceptsPreviousSecretDuringRotation(t *testing.T) {
	body := []byte(`{"topic":"QUOTE_CREATE","itemId":"quote-4"}`)
	verifier := HMACVerifier{
		Header:  "X-Autopilot-Signature",
		Secrets: stubSecretSource{secrets: []string{"next", "previous"}},
	}
	req := core.InboundRequest{
		Headers: map[string]string{"X-Autopilot-Signature": signHex("previous", body)},
		Body:    body,
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("expected previous secret to verify, got %v", err)
	}
}

type stubSecretSource struct {
	secrets []string
}

func (s stubSecretSource) Secrets() []string {
	return s.secrets
}
