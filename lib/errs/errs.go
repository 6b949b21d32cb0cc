package errs

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Kind classifies an Error. The kind decides how the error travels:
// BadRequest is answered on the same connection, ConnectionError closes it,
// ProtocolError stays local and ClientError only exists on the client side.
type Kind uint8

const (
	KindBadRequest Kind = iota + 1 // malformed command or frame, engine not ready
	KindProtocol                   // encoder asked to serialize an unsupported value
	KindConnection                 // transport is dead (timeout, empty read, peer closed)
	KindClient                     // raised by the client library
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindProtocol:
		return "ProtocolError"
	case KindConnection:
		return "ConnectionError"
	case KindClient:
		return "ClientError"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// Error wraps a Kind and a message. Msg is the exact text that is sent to a
// peer for kinds that are sent at all.
type Error struct {
	Kind Kind
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New creates a new Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// BadRequest creates a BadRequest error, the message is formatted like fmt.Sprintf.
func BadRequest(format string, args ...any) *Error {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}

// Protocol creates a local-only ProtocolError.
func Protocol(format string, args ...any) *Error {
	return New(KindProtocol, fmt.Sprintf(format, args...))
}

// Connection creates a ConnectionError.
func Connection(format string, args ...any) *Error {
	return New(KindConnection, fmt.Sprintf(format, args...))
}

// Client creates a ClientError.
func Client(format string, args ...any) *Error {
	return New(KindClient, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Predicates
// --------------------------------------------------------------------------

// KindOf returns the kind of the first *Error in err's chain, or 0 if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsBadRequest(err error) bool { return KindOf(err) == KindBadRequest }
func IsProtocol(err error) bool   { return KindOf(err) == KindProtocol }
func IsConnection(err error) bool { return KindOf(err) == KindConnection }
func IsClient(err error) bool     { return KindOf(err) == KindClient }

// Message returns the peer-facing text of err: Msg for an *Error, err.Error() otherwise.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}
