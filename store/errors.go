package store

import "errors"

var (
	ErrNotFound           = errors.New("key not found")
	ErrStoreClosed        = errors.New("store is closed")
	ErrTransactionAborted = errors.New("transaction aborted")
	ErrEmptyTable         = errors.New("table name cannot be empty")
)
