package iterator

import "errors"

var (
	ErrNotFound       = errors.New("iterator reference not found")
	ErrEmptySessionID = errors.New("session id cannot be empty")
	ErrEmptyFilter    = errors.New("topic filter cannot be empty")
	ErrNoStore        = errors.New("iterator registry requires a store")
)
