package providers

import "errors"

var (
	// ErrGeneratorUnknown reports a generator URI whose type is outside the
	// recognized set. Fatal at startup.
	ErrGeneratorUnknown = errors.New("generator not supported")

	// ErrURIParse reports a generator URI that doesn't match
	// type://model[@host[:port]]. Fatal at startup.
	ErrURIParse = errors.New("invalid generator uri")

	// ErrConfigMissing reports a missing credential environment variable.
	ErrConfigMissing = errors.New("missing configuration")
)
