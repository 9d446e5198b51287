package transform

import "errors"

var (
	// ErrSourceNotFound means the source image is gone; the request cannot
	// be served and any pending descriptor for it is stale.
	ErrSourceNotFound = errors.New("transform: source image not found")

	// ErrEncode wraps codec-level failures. The caller logs it and must not
	// leave a partial derivative visible.
	ErrEncode = errors.New("transform: encode failed")

	// ErrDriverUnavailable means no usable codec backend for the requested
	// format. Fatal at startup when the configuration requires one.
	ErrDriverUnavailable = errors.New("transform: image driver unavailable")
)
