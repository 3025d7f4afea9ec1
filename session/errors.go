package session

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyClientID   = errors.New("client id cannot be empty")
	ErrNoStore         = errors.New("session registry requires a store")
)
