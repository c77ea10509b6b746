package usecase

import "errors"

var (
	ErrAlreadyRunning   = errors.New("a run is already in progress")
	ErrNoReport         = errors.New("no report available")
	ErrInvalidRunConfig = errors.New("invalid run configuration")

	// errStopRequested unwinds a term that was interrupted by Stop while
	// blocked on a pause or a challenge.
	errStopRequested = errors.New("stop requested")
)
