package domain

import "errors"

// Stable error kinds the HTTP layer (or any other caller) can translate
// into transport responses. Services wrap these with fmt.Errorf("…: %w")
// so callers match them with errors.Is.
var (
	// ErrNotFound covers missing records and records the requestor may not access.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks a caller mistake: an empty turn (neither text
	// nor attachment) or an unusable scenario policy.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceDisabled means no AI credential is configured; surfaced
	// before any history loading so callers can fail fast.
	ErrServiceDisabled = errors.New("ai service disabled")

	// ErrProviderUnavailable is a transient provider or network failure.
	// The pipeline never retries it internally; re-invoking SendMessage is
	// safe because nothing was persisted.
	ErrProviderUnavailable = errors.New("ai provider unavailable")

	// ErrMalformedResponse means the provider replied with non-JSON or
	// schema-violating output. Fatal for the turn, not retried.
	ErrMalformedResponse = errors.New("malformed ai response")

	// ErrGenerationFailed means scenario synthesis failed; conversation
	// creation aborts entirely.
	ErrGenerationFailed = errors.New("scenario generation failed")
)
