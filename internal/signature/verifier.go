package signature

import (
	"fmt"
	"strings"
)

// Scheme names accepted by New and by the SIGNATURE_SCHEME variable.
const (
	SchemeDigest = "digest"
	SchemeHMAC   = "hmac"
	SchemeJWS    = "jws"
)

// Verifier checks the value of a signature header against a request body.
// Implementations return ErrMissingSignature for a blank header and
// ErrInvalidSignature (possibly wrapped) when the header does not match.
type Verifier interface {
	Verify(header string, body []byte) error
	Scheme() string
}

// New builds the verifier for scheme.  Keyed schemes require a secret.
func New(scheme, secret string) (Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeDigest:
		return DigestVerifier{}, nil
	case SchemeHMAC:
		if secret == "" {
			return nil, fmt.Errorf("signature: scheme %q requires a secret", SchemeHMAC)
		}
		return HMACVerifier{Secret: []byte(secret)}, nil
	case SchemeJWS:
		if secret == "" {
			return nil, fmt.Errorf("signature: scheme %q requires a secret", SchemeJWS)
		}
		return JWSVerifier{Secret: []byte(secret)}, nil
	default:
		return nil, fmt.Errorf("signature: unknown scheme %q", scheme)
	}
}

// Keyed reports whether v authenticates the sender with a shared secret.
func Keyed(v Verifier) bool {
	return v.Scheme() != SchemeDigest
}
