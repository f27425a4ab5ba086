// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/sitectl/lib/resolve"
)

// ErrorCategory classifies command errors so that scripts can make
// decisions (retry, fix input, give up) without parsing message text.
type ErrorCategory string

const (
	// CategoryValidation indicates invalid input: bad flags, wrong
	// argument count, unparseable values.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound indicates a referenced command, alias or site
	// does not exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryObsolete indicates a retired command.
	CategoryObsolete ErrorCategory = "obsolete"

	// CategoryConflict indicates the operation conflicts with existing
	// state.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient indicates a temporary failure: network error,
	// timeout, an unreachable peer.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal indicates an unexpected failure.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a categorized error. It wraps an inner error so the
// full chain stays available to errors.Is and errors.As.
type ToolError struct {
	Category ErrorCategory
	Err      error

	// Hint is an optional next step, printed after the message.
	Hint string
}

// Error returns the underlying message followed by the hint.
func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets the hint and returns e for chaining.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// Validation creates a validation error.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient creates a transient error.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal creates an internal error.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Categorize returns the category of err: the category of a wrapped
// ToolError, the matching category for resolution errors, otherwise
// CategoryInternal.
func Categorize(err error) ErrorCategory {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Category
	}
	var resolveErr *resolve.Error
	if errors.As(err, &resolveErr) {
		if resolveErr.Kind == resolve.KindObsolete {
			return CategoryObsolete
		}
		return CategoryNotFound
	}
	return CategoryInternal
}

// resolutionError wraps a resolver error with its category.
func resolutionError(err error) *ToolError {
	return &ToolError{Category: Categorize(err), Err: err}
}
