// Package common defines shared constants and sentinel errors used across
// Cryptool components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Source binding errors.
	ErrMalformedSource          = errors.New("malformed source")
	ErrExclusiveSourceCollision = errors.New("source already bound to another channel")

	// Envelope codec errors.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrDecryption        = errors.New("decryption failed")

	// Gatekeeper errors.
	ErrLocked          = errors.New("access locked")
	ErrInvalidOldCode  = errors.New("invalid old access code")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrReKeyImport     = errors.New("re-key import failed")

	// Transport errors (message is persisted, delivery unconfirmed).
	ErrTransportSend = errors.New("transport send failed")
)
