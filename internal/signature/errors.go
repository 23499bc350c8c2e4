package signature

import "errors"

// ErrMissingSignature is returned when the signature header is absent or
// blank.  Handlers translate it into a 400 response.
var ErrMissingSignature = errors.New("missing signature")

// ErrInvalidSignature is returned when a signature is present but does not
// match the body.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrMalformedToken is returned by the JWS scheme when the header is not a
// three-segment token with decodable segments.
var ErrMalformedToken = errors.New("malformed signature token")

// ErrInvalidBody is returned by the JWS scheme when the body must be
// compacted as JSON but is not valid JSON.
var ErrInvalidBody = errors.New("invalid JSON body")
