// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/client layers.
var (
	// ErrNotFound indicates the requested session or entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSessionInvalid indicates an entry operation referenced a session that does not exist.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrContentEmpty indicates an entry with neither content nor attachment.
	ErrContentEmpty = errors.New("content empty")

	// ErrContentTooLarge indicates entry content above the configured character ceiling.
	ErrContentTooLarge = errors.New("content too large")

	// ErrInvalidAttachment indicates an attachment reference the session does not own.
	ErrInvalidAttachment = errors.New("invalid attachment")

	// ErrAttachmentTooLarge indicates an upload above the configured byte ceiling.
	ErrAttachmentTooLarge = errors.New("attachment too large")

	// ErrNotConnected indicates a write attempted while the client is offline or not joined.
	ErrNotConnected = errors.New("not connected")

	// ErrStorage indicates an attachment backend upload/release failure.
	ErrStorage = errors.New("storage failure")

	// ErrChannel indicates a subscribe/publish transport failure.
	ErrChannel = errors.New("channel error")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., session code taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates too many failed join attempts from one client.
	ErrRateLimited = errors.New("rate limited")
)
