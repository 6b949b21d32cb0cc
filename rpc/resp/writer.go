package resp

import (
	"bytes"
	"io"
	"strconv"

	"github.com/ValentinKolb/triedb/lib/errs"
)

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// Marshal encodes v into its wire form.
//
// Supported values:
//   - Message: encoded by its own Kind
//   - []byte, string: bulk string ([]byte(nil) becomes "$-1")
//   - int, int64: integer
//   - *errs.Error: error line with the error's message
//   - [][]byte, []any, []Message: array
//   - nil: nil bulk string
//
// Any other type, and CR or LF inside a simple string or error, is a ProtocolError.
func Marshal(v any) ([]byte, error) {
	return AppendValue(nil, v)
}

// Encode writes the complete encoding of v to w. Nothing is written if v
// cannot be encoded.
func Encode(w io.Writer, v any) error {
	buf, err := Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return errs.Connection("write error: %v", err)
	}
	return nil
}

// AppendValue appends the encoding of v to dst.
func AppendValue(dst []byte, v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return append(dst, "$-1\r\n"...), nil
	case Message:
		return appendMessage(dst, x)
	case []byte:
		if x == nil {
			return append(dst, "$-1\r\n"...), nil
		}
		return appendBulk(dst, x), nil
	case string:
		return appendBulk(dst, []byte(x)), nil
	case int:
		return appendInt(dst, ':', int64(x)), nil
	case int64:
		return appendInt(dst, ':', x), nil
	case *errs.Error:
		if x == nil {
			return append(dst, "$-1\r\n"...), nil
		}
		return appendLine(dst, '-', []byte(x.Msg))
	case [][]byte:
		dst = appendInt(dst, '*', int64(len(x)))
		for _, item := range x {
			var err error
			if dst, err = AppendValue(dst, item); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case []any:
		dst = appendInt(dst, '*', int64(len(x)))
		for _, item := range x {
			var err error
			if dst, err = AppendValue(dst, item); err != nil {
				return nil, err
			}
		}
		return dst, nil
	case []Message:
		dst = appendInt(dst, '*', int64(len(x)))
		for _, item := range x {
			var err error
			if dst, err = appendMessage(dst, item); err != nil {
				return nil, err
			}
		}
		return dst, nil
	default:
		return nil, errs.Protocol("cannot encode value of type %T", v)
	}
}

func appendMessage(dst []byte, m Message) ([]byte, error) {
	switch m.Kind {
	case KindSimpleString:
		return appendLine(dst, '+', m.Str)
	case KindError:
		return appendLine(dst, '-', m.Str)
	case KindInteger:
		return appendInt(dst, ':', m.Int), nil
	case KindBulkString:
		if m.Nil {
			return append(dst, "$-1\r\n"...), nil
		}
		return appendBulk(dst, m.Str), nil
	case KindArray:
		if m.Nil {
			return append(dst, "*-1\r\n"...), nil
		}
		dst = appendInt(dst, '*', int64(len(m.Array)))
		for _, item := range m.Array {
			var err error
			if dst, err = appendMessage(dst, item); err != nil {
				return nil, err
			}
		}
		return dst, nil
	default:
		return nil, errs.Protocol("cannot encode message of kind %d", m.Kind)
	}
}

func appendLine(dst []byte, tag byte, line []byte) ([]byte, error) {
	if bytes.ContainsAny(line, "\r\n") {
		return nil, errs.Protocol("line must not contain CR or LF")
	}
	dst = append(dst, tag)
	dst = append(dst, line...)
	return append(dst, '\r', '\n'), nil
}

func appendBulk(dst []byte, b []byte) []byte {
	dst = appendInt(dst, '$', int64(len(b)))
	dst = append(dst, b...)
	return append(dst, '\r', '\n')
}

func appendInt(dst []byte, tag byte, n int64) []byte {
	dst = append(dst, tag)
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, '\r', '\n')
}
