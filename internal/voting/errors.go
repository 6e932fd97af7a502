package voting

import (
	"errors"
	"fmt"

	"edu-voting/internal/domain"
)

var (
	// ErrWalletUnavailable is returned when no wallet capability can be reached.
	ErrWalletUnavailable = errors.New("wallet not detected")

	// ErrUserDenied is returned when the user refuses account authorisation.
	ErrUserDenied = errors.New("user denied account access")

	// ErrNetworkUnregistered is returned when the wallet does not know the required chain.
	ErrNetworkUnregistered = errors.New("network not registered in wallet")

	// ErrNetworkSwitchFailed is returned for any other network switch failure.
	ErrNetworkSwitchFailed = errors.New("network switch failed")

	// ErrNotReady is returned when a vote is submitted before the session can accept it.
	ErrNotReady = errors.New("not ready to vote")

	// ErrAlreadyPending is returned when the account already has a vote in flight.
	ErrAlreadyPending = errors.New("a vote is already pending")

	// ErrLedgerReadFailed is returned when the candidate list could not be read.
	ErrLedgerReadFailed = errors.New("ledger read failed")

	// ErrVoteRejected is returned when a vote attempt settles as Rejected.
	ErrVoteRejected = errors.New("vote rejected")
)

// Error is a session failure. Message is the user-facing text written to the
// ErrorState slot; errors.Is matches both Kind and the underlying Err.
type Error struct {
	Kind      error
	Component domain.Component
	Message   string
	Err       error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// newError builds an Error; with an empty format the message is the cause text,
// falling back to the sentinel text.
func newError(kind error, component domain.Component, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	if format == "" {
		if cause != nil {
			msg = cause.Error()
		} else {
			msg = kind.Error()
		}
	}
	return &Error{Kind: kind, Component: component, Message: msg, Err: cause}
}
