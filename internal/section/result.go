// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package section loads the public site's content sections. Every load
// yields a tagged Result; the view builders then pick live data or the
// built-in defaults field by field, so a missing row or a failed query never
// blocks the page.
package section

import "fmt"

// State tags a Result.
type State int

const (
	// StateEmpty means the query succeeded without rows.
	StateEmpty State = iota
	// StateLoaded means Data holds live content.
	StateLoaded
	// StateFetchFailed means the query failed; Err holds the cause.
	StateFetchFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	case StateFetchFailed:
		return "fetch_failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is Loaded(data), Empty or FetchFailed(err).
type Result[T any] struct {
	State State
	Data  T
	Err   error
}

// Loaded wraps live data.
func Loaded[T any](data T) Result[T] {
	return Result[T]{State: StateLoaded, Data: data}
}

// Empty is a successful load without content.
func Empty[T any]() Result[T] {
	return Result[T]{State: StateEmpty}
}

// FetchFailed records a failed load.
func FetchFailed[T any](err error) Result[T] {
	return Result[T]{State: StateFetchFailed, Err: err}
}

// Live returns the data and true only in the Loaded state.
func (r Result[T]) Live() (T, bool) {
	if r.State != StateLoaded {
		var zero T
		return zero, false
	}
	return r.Data, true
}
