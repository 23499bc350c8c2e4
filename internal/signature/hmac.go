package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HMACVerifier checks a hex HMAC‑SHA256 of the body.  A "sha256=" prefix, as
// sent by GitHub style webhooks, is accepted.
type HMACVerifier struct {
	Secret []byte
}

// Scheme implements Verifier.
func (HMACVerifier) Scheme() string { return SchemeHMAC }

// Verify implements Verifier.
func (v HMACVerifier) Verify(header string, body []byte) error {
	sig := strings.TrimSpace(header)
	if sig == "" {
		return ErrMissingSignature
	}
	if len(sig) > 7 && strings.EqualFold(sig[:7], "sha256=") {
		sig = sig[7:]
	}
	given, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(given, mac(v.Secret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignHMAC returns the lowercase hex HMAC‑SHA256 of body under secret.
func SignHMAC(secret, body []byte) string {
	return hex.EncodeToString(mac(secret, body))
}

func mac(secret, body []byte) []byte {
	m := hmac.New(sha256.New, secret)
	m.Write(body)
	return m.Sum(nil)
}
