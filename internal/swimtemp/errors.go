package swimtemp

import (
	"fmt"
	"strings"
)

// FetchError reports a network or transport failure talking to the provider.
type FetchError struct {
	Op  string
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports malformed markup or JSON, or a missing element on the
// expected DOM path.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse " + e.What
	}
	return fmt.Sprintf("parse %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreIOError reports a failure loading or saving the snapshot document.
type StoreIOError struct {
	Op  string
	Err error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("snapshot store %s: %v", e.Op, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// ShapeMismatchError is returned when a snapshot record carries neither a
// name nor an id key.
type ShapeMismatchError struct {
	Keys []string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("unrecognised snapshot record shape (keys: %s)", strings.Join(e.Keys, ", "))
}
