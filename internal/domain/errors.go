package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no quiz session matches the session and user.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrUserNotFound is returned when a user has not been registered.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyCompleted is returned when answering a session that has no questions left.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrInvalidIndex indicates a question index outside the session or not the current one.
	ErrInvalidIndex = errors.New("invalid question index")
	// ErrInsufficientTracks is returned when the catalog yields fewer tracks than a quiz needs.
	ErrInsufficientTracks = errors.New("not enough tracks found, please try again")
	// ErrInvalidMode indicates an unknown quiz mode.
	ErrInvalidMode = errors.New("invalid quiz mode")
	// ErrInvalidDifficulty indicates an unknown difficulty level.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrSessionConflict is returned by stores when another answer advanced the session first.
	ErrSessionConflict = errors.New("quiz session was modified concurrently")
	// ErrMalformedSession indicates a session record that violates its invariants.
	ErrMalformedSession = errors.New("malformed quiz session")
)
