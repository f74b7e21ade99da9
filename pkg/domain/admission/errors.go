package admission

import "errors"

var (
	ErrInvalidIdentity    = errors.New("user identifier is required")
	ErrInvalidInput       = errors.New("input is required")
	ErrStoreUnavailable   = errors.New("rate store unavailable")
	ErrMalformedClientKey = errors.New("malformed client key")
	ErrInvalidLimits      = errors.New("invalid rate limits")
)
