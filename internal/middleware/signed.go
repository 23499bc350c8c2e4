package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/signature-echo/internal/config"
	"github.com/iliyamo/signature-echo/internal/queue"
	"github.com/iliyamo/signature-echo/internal/replay"
	"github.com/iliyamo/signature-echo/internal/signature"
)

// Headers read by SignedRequest.
const (
	TimestampHeader = "Timestamp"
	RefHeader       = "Ref"
	SignatureHeader = "Signature"
)

// now is replaced in tests.
var now = time.Now

// SignedRequest guards routes that require a fresh, unique and signed
// request.  In order it checks that the Timestamp, Ref and Signature headers
// are present, that Timestamp is within the configured tolerance, that the
// token matches the body and that its iat and uri claims equal the Timestamp
// header and the request path, and finally claims Ref so the same request
// cannot be replayed.  Ref is only claimed for correctly signed requests so a
// forger cannot burn references.  The body is restored for the next handler.
func SignedRequest(cfg config.GuardConfig, v signature.JWSVerifier, refs replay.Store, pub queue.Publisher) echo.MiddlewareFunc {
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			ts := strings.TrimSpace(r.Header.Get(TimestampHeader))
			ref := strings.TrimSpace(r.Header.Get(RefHeader))
			sig := r.Header.Get(SignatureHeader)

			reject := func(status int, kind, reason, msg string) error {
				ev := queue.NewRejectionEvent(kind, r.Method, c.Path(), c.RealIP(), ref, reason)
				queue.PublishAsync(pub, ev, 5*time.Second)
				c.Logger().Infof("[guard] reject %s %s: %s", r.Method, c.Path(), reason)
				return c.JSON(status, echo.Map{"message": msg})
			}

			if ts == "" || ref == "" || strings.TrimSpace(sig) == "" {
				return reject(http.StatusBadRequest, queue.KindHeadersMissing, "missing headers", "Missing headers")
			}
			if !validTimestamp(ts, cfg, now()) {
				return reject(http.StatusBadRequest, queue.KindTimestampRejected, "timestamp "+ts+" outside tolerance", "Invalid timestamp")
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					return he
				}
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "Could not read request body"})
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			claims, err := v.VerifyToken(sig, body)
			if err != nil {
				if errors.Is(err, signature.ErrInvalidBody) {
					return reject(http.StatusBadRequest, queue.KindBodyRejected, err.Error(), "Invalid JSON body")
				}
				return reject(http.StatusUnauthorized, queue.KindSignatureRejected, err.Error(), "Invalid signature")
			}
			if claims.IAT != ts {
				return reject(http.StatusUnauthorized, queue.KindSignatureRejected, "token iat "+claims.IAT+" does not match timestamp "+ts, "Invalid signature")
			}
			if claims.URI != r.URL.Path {
				return reject(http.StatusUnauthorized, queue.KindSignatureRejected, "token uri "+claims.URI+" does not match path "+r.URL.Path, "Invalid signature")
			}

			fresh, err := refs.Claim(r.Context(), ref, cfg.RefTTL)
			if err != nil {
				c.Logger().Errorf("[guard] claim ref: %v", err)
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "Replay store unavailable"})
			}
			if !fresh {
				return reject(http.StatusBadRequest, queue.KindRefReplayed, "ref already used", "Ref not unique")
			}
			return next(c)
		}
	}
}

// validTimestamp parses ts in cfg.Location and reports whether it lies
// within cfg.Tolerance of at, in either direction.
func validTimestamp(ts string, cfg config.GuardConfig, at time.Time) bool {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(config.TimestampLayout, ts, loc)
	if err != nil {
		return false
	}
	diff := at.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	return diff <= cfg.Tolerance
}
