package session

import (
	"errors"
	"fmt"
)

var (
	ErrMediaUnavailable = errors.New("could not access camera or microphone")
	ErrSignaling        = errors.New("signaling server error")
	ErrPeerDisconnected = errors.New("peer disconnected")
	ErrJoinRejected     = errors.New("join request declined")
	ErrNoPeerConnection = errors.New("no peer connection")
	ErrControlNotOpen   = errors.New("control channel not open")
	ErrClosed           = errors.New("session closed")
)

// SessionError annotates a failure with the operation that caused it.
type SessionError struct {
	Op      string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *SessionError {
	return &SessionError{Op: op, Err: err, Details: details}
}
