package repository

import "errors"

var (
	// ErrLaunch means the browser could not be started. It is fatal to a run.
	ErrLaunch = errors.New("browser launch failed")
	// ErrInteractionTimeout means an expected element never appeared within the wait bound.
	ErrInteractionTimeout = errors.New("timed out waiting for page element")
)
