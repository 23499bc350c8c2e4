// Package signature computes and checks the request signatures accepted by
// the service.  Three schemes are supported: a keyless SHA‑256 digest of the
// body, a keyed HMAC‑SHA256 of the body, and a compact HS256 token that
// embeds the body as its payload.
package signature

import (
	"crypto/sha256" // SHA‑256 hashing of request bodies
	"crypto/subtle" // constant-time comparison of rendered digests
	"encoding/hex"  // lowercase hex rendering
	"strings"
)

// Digest returns the SHA‑256 digest of body rendered as a lowercase hex
// string.  The same input always yields the same 64 character output.
func Digest(body []byte) string {
	// Compute the SHA‑256 digest of the raw bytes.
	sum := sha256.Sum256(body)
	// Convert the binary digest to a hex string.
	return hex.EncodeToString(sum[:])
}

// DigestVerifier checks a header holding the keyless digest of the body.
// Anyone can compute this value, so it detects corruption but does not
// authenticate the sender.
type DigestVerifier struct{}

// Scheme implements Verifier.
func (DigestVerifier) Scheme() string { return SchemeDigest }

// Verify trims the header and compares it to Digest(body).  The comparison is
// exact: an upper-case rendering of the right digest does not match.
func (DigestVerifier) Verify(header string, body []byte) error {
	sig := strings.TrimSpace(header)
	if sig == "" {
		return ErrMissingSignature
	}
	if subtle.ConstantTimeCompare([]byte(sig), []byte(Digest(body))) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
