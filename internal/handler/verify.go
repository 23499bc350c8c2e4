package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signature-echo/internal/form"
	"github.com/iliyamo/signature-echo/internal/signature"
)

// Response bodies of the verification endpoint.
const (
	invalidSignatureBody = "Invalid signature"
	missingSignatureBody = "Missing signature"
	invalidFormBody      = "Invalid form body"
)

// SignatureHeader carries the request signature.
const SignatureHeader = "Signature"

// VerifyHandler echoes the "data" form field of requests whose Signature
// header matches their body.
type VerifyHandler struct {
	Verifier signature.Verifier
}

func NewVerifyHandler(v signature.Verifier) *VerifyHandler {
	return &VerifyHandler{Verifier: v}
}

// Test verifies the Signature header against the raw body and, on a match,
// returns the "data" field of the form-encoded body.  A mismatch is reported
// in the body with status 200; a missing header is a 400.
func (h *VerifyHandler) Test(c echo.Context) error {
	// The same bytes are hashed and parsed, so read the body exactly once.
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he // body limit exceeded
		}
		return c.String(http.StatusBadRequest, "could not read request body")
	}

	if err := h.Verifier.Verify(c.Request().Header.Get(SignatureHeader), body); err != nil {
		if errors.Is(err, signature.ErrMissingSignature) {
			return c.String(http.StatusBadRequest, missingSignatureBody)
		}
		c.Logger().Debugf("verify: %s signature rejected: %v", h.Verifier.Scheme(), err)
		return c.String(http.StatusOK, invalidSignatureBody)
	}

	values, err := form.Parse(body)
	if err != nil {
		c.Logger().Debugf("verify: %v", err)
		return c.String(http.StatusBadRequest, invalidFormBody)
	}
	data, ok := values.Lookup("data")
	if !ok {
		c.Logger().Debugf("verify: signature matched but no data field")
	}
	return c.String(http.StatusOK, data)
}
