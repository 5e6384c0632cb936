// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates a request that is malformed or out of range.
// It is returned before any collaborator is invoked, so a validation
// failure never leaves partial side effects.
var ErrValidation = errors.New("validation failed")
