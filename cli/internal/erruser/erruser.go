// Package erruser provides errors whose Error() returns only a user-facing
// message. The technical cause stays reachable through Unwrap and is printed
// by the CLI on a separate "Details:" line.
package erruser

import "errors"

// Err pairs a user-facing message with the error that caused it.
type Err struct {
	Msg string
	Err error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the cause. Safe on a nil receiver.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error with the given user-facing message. A nil err yields
// a plain error with no cause.
func New(msg string, err error) error {
	if err == nil {
		return errors.New(msg)
	}
	return &Err{Msg: msg, Err: err}
}

// Details returns the cause behind a user-facing error, or nil when err
// carries none.
func Details(err error) error {
	var e *Err
	if errors.As(err, &e) {
		return e.Err
	}
	return nil
}
