package rxp

import "errors"

var (
	ErrMalformedHeader   = errors.New("malformed header")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrHandshakeFailure  = errors.New("could not connect")
	ErrAlreadyConnected  = errors.New("connection is already established")
	ErrNotConnected      = errors.New("no connection established")
	ErrInvalidWindowSize = errors.New("window size must be a positive integer")
	ErrFileNotFound      = errors.New("file not found")
)
