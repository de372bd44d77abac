package domain

import "errors"

var (
	// ErrUsage marks missing or malformed command-line input.
	ErrUsage = errors.New("usage")

	// ErrValueShape is returned when a source value is neither a scalar nor a
	// 1-element sequence.
	ErrValueShape = errors.New("field value has unsupported shape")

	// ErrUnknownInstance is returned when a field record names an instance the
	// target store does not have.
	ErrUnknownInstance = errors.New("unknown instance")

	// ErrUnknownPosition is returned for position names outside the interchange set.
	ErrUnknownPosition = errors.New("unknown position")

	// ErrUnknownDomain is returned by a target store for a step domain it
	// cannot represent.
	ErrUnknownDomain = errors.New("unknown step domain")

	// ErrBucketInvalid is returned when a field bucket breaks its invariants.
	ErrBucketInvalid = errors.New("invalid field bucket")

	// ErrPhase is returned when an import operation runs in the wrong phase.
	ErrPhase = errors.New("import phase violation")
)
