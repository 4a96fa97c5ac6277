package types

import "errors"

var (
	// ErrValidation signals a malformed input record or query.
	ErrValidation = errors.New("invalid input")
	// ErrNotConfigured signals a missing capability credential or setting.
	ErrNotConfigured = errors.New("capability not configured")
	// ErrEmbedding signals an embedding provider failure or malformed vectors.
	ErrEmbedding = errors.New("embedding failed")
	// ErrGeneration signals a generation provider failure.
	ErrGeneration = errors.New("generation failed")
	// ErrIndexUnavailable signals a query against a coordinator with no index.
	ErrIndexUnavailable = errors.New("no article index available")
)
