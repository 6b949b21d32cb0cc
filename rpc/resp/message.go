package resp

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Kind selects which fields of a Message are used.
type Kind uint8

const (
	KindSimpleString Kind = iota + 1 // '+'
	KindError                        // '-'
	KindInteger                      // ':'
	KindBulkString                   // '$'
	KindArray                        // '*'
)

func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "SimpleString"
	case KindError:
		return "Error"
	case KindInteger:
		return "Integer"
	case KindBulkString:
		return "BulkString"
	case KindArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// Message is one decoded protocol value.
//
//   - SimpleString, Error: Str
//   - Integer: Int
//   - BulkString: Str, or Nil for "$-1"
//   - Array: Array, or Nil for "*-1" (distinct from an empty array)
type Message struct {
	Kind  Kind
	Str   []byte
	Int   int64
	Array []Message
	Nil   bool
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

func NewSimpleString(s string) Message {
	return Message{Kind: KindSimpleString, Str: []byte(s)}
}

func NewError(s string) Message {
	return Message{Kind: KindError, Str: []byte(s)}
}

func NewInteger(n int64) Message {
	return Message{Kind: KindInteger, Int: n}
}

// NewBulk creates a bulk string. A nil b still creates an empty, non-nil bulk string;
// use NilBulk for "$-1".
func NewBulk(b []byte) Message {
	if b == nil {
		b = []byte{}
	}
	return Message{Kind: KindBulkString, Str: b}
}

func NilBulk() Message {
	return Message{Kind: KindBulkString, Nil: true}
}

func NewArray(items ...Message) Message {
	if items == nil {
		items = []Message{}
	}
	return Message{Kind: KindArray, Array: items}
}

func NilArray() Message {
	return Message{Kind: KindArray, Nil: true}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// IsNil reports whether m is a nil bulk string or a nil array.
func (m Message) IsNil() bool {
	return m.Nil && (m.Kind == KindBulkString || m.Kind == KindArray)
}

// Bytes returns the payload of a simple string, error or non-nil bulk string.
func (m Message) Bytes() ([]byte, bool) {
	switch m.Kind {
	case KindSimpleString, KindError:
		return m.Str, true
	case KindBulkString:
		return m.Str, !m.Nil
	default:
		return nil, false
	}
}

func (m Message) String() string {
	switch m.Kind {
	case KindSimpleString:
		return fmt.Sprintf("+%s", m.Str)
	case KindError:
		return fmt.Sprintf("-%s", m.Str)
	case KindInteger:
		return fmt.Sprintf(":%d", m.Int)
	case KindBulkString:
		if m.Nil {
			return "(nil)"
		}
		return fmt.Sprintf("%q", m.Str)
	case KindArray:
		if m.Nil {
			return "(nil array)"
		}
		return fmt.Sprintf("%v", m.Array)
	default:
		return "(unknown)"
	}
}
