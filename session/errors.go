package session

import "errors"

var (
	// ErrEmptySessionID is returned when an operation is given a blank id.
	ErrEmptySessionID = errors.New("session id cannot be empty")
)
