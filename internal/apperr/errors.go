// Package apperr holds the sentinel errors shared across quire packages.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrDuplicateTask   = errors.New("duplicate task")
	ErrBuildInProgress = errors.New("build already in progress")
)
