// Package dberrors defines sentinel errors shared across the engine.
package dberrors

import "errors"

var (
	// ErrEnvironmentInvalid marks the engine instance as unrecoverable; no
	// further operations are served until it is reopened.
	ErrEnvironmentInvalid = errors.New("emberdb: environment invalid, restart required")

	ErrNotFound        = errors.New("emberdb: not found")
	ErrClosed          = errors.New("emberdb: closed")
	ErrInvalidArgument = errors.New("emberdb: invalid argument")
)
