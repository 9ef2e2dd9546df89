package mqtt

import "errors"

var (
	// ErrNotConnected is returned when publishing without a broker session.
	ErrNotConnected = errors.New("mqtt: not connected")
	// ErrBadRequest is returned for ride requests that cannot be decoded.
	ErrBadRequest = errors.New("mqtt: malformed customer request")
)
