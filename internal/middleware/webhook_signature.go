package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

const (
	SignatureHeader    = "X-Webhook-Signature"
	maxWebhookBodySize = 1 << 20
)

// WebhookSignature rejects gateway callbacks whose X-Webhook-Signature is not
// the hex HMAC-SHA256 of the raw body under secret. An empty secret disables
// the check.
func WebhookSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize+1))
			if err != nil || len(body) > maxWebhookBodySize {
				writeAuthError(w, http.StatusBadRequest, "unreadable webhook body", "invalid_body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			provided := strings.TrimPrefix(r.Header.Get(SignatureHeader), "sha256=")
			if !validSignature(secret, body, provided) {
				writeAuthError(w, http.StatusUnauthorized, "Invalid signature", "invalid_signature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret string, body []byte, provided string) bool {
	got, err := hex.DecodeString(provided)
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
