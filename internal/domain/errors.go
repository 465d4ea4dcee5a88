package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")

	// ErrMalformedQuote marks a raw record that fails normalization. It is
	// dropped from its batch and counted, never fatal to the cycle.
	ErrMalformedQuote = errors.New("malformed quote")
	// ErrAmbiguousTranslation marks a binary question whose subject does not
	// resolve to exactly one named selection.
	ErrAmbiguousTranslation = errors.New("ambiguous translation")
	// ErrInvalidOdds marks violated allocation preconditions.
	ErrInvalidOdds = errors.New("invalid odds")
	// ErrNotArbitrage is returned when sizing is requested for a
	// non-arbitrage opportunity.
	ErrNotArbitrage = errors.New("not an arbitrage opportunity")
	// ErrInvalidCapital is returned for a non-positive bankroll or a kelly
	// fraction outside (0,1].
	ErrInvalidCapital = errors.New("invalid capital")
)
