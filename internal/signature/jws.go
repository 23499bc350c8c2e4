package signature

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5" // HS256 signing method
)

// segment encodes token segments: standard alphabet, no padding.
var segment = base64.RawStdEncoding

// JWSHeader is the protected header of a compact signature token.
type JWSHeader struct {
	Alg  string `json:"alg"`
	Type string `json:"type,omitempty"`
	URI  string `json:"uri,omitempty"`
	IAT  string `json:"iat,omitempty"`
}

// JWSVerifier checks a compact token "header.payload.mac" where mac is the
// HS256 MAC of "header.payload" and payload is the request body.  When
// Compact is set the body is treated as JSON and compacted before it is
// compared to the payload.
type JWSVerifier struct {
	Secret  []byte
	Compact bool
}

// Scheme implements Verifier.
func (JWSVerifier) Scheme() string { return SchemeJWS }

// Verify implements Verifier.
func (v JWSVerifier) Verify(header string, body []byte) error {
	_, err := v.VerifyToken(header, body)
	return err
}

// VerifyToken is Verify that also returns the token's protected header, so
// callers can bind its uri and iat claims to the request.  With Compact set a
// body that is not JSON fails with ErrInvalidBody before the MAC is checked.
func (v JWSVerifier) VerifyToken(header string, body []byte) (JWSHeader, error) {
	var h JWSHeader
	token := strings.TrimSpace(header)
	if token == "" {
		return h, ErrMissingSignature
	}
	data := body
	if v.Compact {
		var err error
		if data, err = CompactJSON(body); err != nil {
			return h, err
		}
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return h, fmt.Errorf("%w: token needs 3 parts", ErrMalformedToken)
	}
	rawHeader, err := segment.DecodeString(parts[0])
	if err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrMalformedToken, err)
	}
	if err := json.Unmarshal(rawHeader, &h); err != nil {
		return JWSHeader{}, fmt.Errorf("%w: header: %v", ErrMalformedToken, err)
	}
	if h.Alg != jwt.SigningMethodHS256.Alg() {
		return JWSHeader{}, fmt.Errorf("%w: unsupported alg %q", ErrInvalidSignature, h.Alg)
	}

	sig, err := segment.DecodeString(parts[2])
	if err != nil {
		return JWSHeader{}, fmt.Errorf("%w: mac: %v", ErrMalformedToken, err)
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, v.Secret); err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return JWSHeader{}, ErrInvalidSignature
		}
		return JWSHeader{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	payload, err := segment.DecodeString(parts[1])
	if err != nil {
		return JWSHeader{}, fmt.Errorf("%w: payload: %v", ErrMalformedToken, err)
	}
	if !bytes.Equal(payload, data) {
		return JWSHeader{}, ErrInvalidSignature
	}
	return h, nil
}

// SignJWS builds a compact token over body with the given header.  The Alg
// field is always set to HS256.
func SignJWS(secret []byte, h JWSHeader, body []byte) (string, error) {
	h.Alg = jwt.SigningMethodHS256.Alg()
	rawHeader, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	input := segment.EncodeToString(rawHeader) + "." + segment.EncodeToString(body)
	sig, err := jwt.SigningMethodHS256.Sign(input, secret)
	if err != nil {
		return "", err
	}
	return input + "." + segment.EncodeToString(sig), nil
}

// CompactJSON removes insignificant whitespace from a JSON document.
func CompactJSON(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return buf.Bytes(), nil
}
