package resp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ValentinKolb/triedb/lib/errs"
)

// Protocol limits, anything larger is rejected as a BadRequest.
const (
	// MaxBulkLen limits a single bulk string (512 MiB).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxArrayLen limits the number of elements of one array.
	MaxArrayLen = 1024 * 1024

	// MaxLineLen limits a header or simple line (64 KiB).
	MaxLineLen = 64 * 1024

	// MaxDepth limits how deeply arrays may be nested.
	MaxDepth = 512

	// DefaultIdleTimeout bounds the wait for the first byte of a new request.
	DefaultIdleTimeout = 300 * time.Second
)

// bulkChunk is the initial buffer size of a bulk string payload
const bulkChunk = 64 * 1024

// deadliner is implemented by net.Conn; other sources simply have no idle timeout.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Reader decodes Messages from a byte stream.
type Reader struct {
	br   *bufio.Reader
	dl   deadliner
	idle time.Duration
}

// NewReader creates a Reader without idle timeout.
func NewReader(r io.Reader) *Reader {
	return NewReaderTimeout(r, 0)
}

// NewReaderTimeout creates a Reader that waits at most idle for the first byte
// of every message read with ReadMessage. The timeout only applies if r has a
// SetReadDeadline method (e.g. net.Conn); idle <= 0 disables it.
func NewReaderTimeout(r io.Reader, idle time.Duration) *Reader {
	rd := &Reader{idle: idle}
	if br, ok := r.(*bufio.Reader); ok {
		rd.br = br
	} else {
		rd.br = bufio.NewReader(r)
	}
	if dl, ok := r.(deadliner); ok && idle > 0 {
		rd.dl = dl
	}
	return rd
}

// ReadMessage reads the next complete message.
//
// Errors:
//   - ConnectionError: idle timeout, no byte at all, or the peer closed mid-frame
//   - BadRequest: unknown leading byte, bad length, bad terminator, limit exceeded
func (r *Reader) ReadMessage() (Message, error) {
	if r.dl != nil {
		if err := r.dl.SetReadDeadline(time.Now().Add(r.idle)); err != nil {
			return Message{}, errs.Connection("failed to set read deadline: %v", err)
		}
	}

	tag, err := r.br.ReadByte()
	if err != nil {
		if isTimeout(err) {
			return Message{}, errs.Connection("timeout error")
		}
		if errors.Is(err, io.EOF) {
			return Message{}, errs.Connection("empty request")
		}
		return Message{}, errs.Connection("read error: %v", err)
	}

	// the rest of the frame is not bounded by the idle timeout
	if r.dl != nil {
		if err := r.dl.SetReadDeadline(time.Time{}); err != nil {
			return Message{}, errs.Connection("failed to clear read deadline: %v", err)
		}
	}

	return r.readValue(tag, 0)
}

// --------------------------------------------------------------------------
// Decoders (one per leading byte)
// --------------------------------------------------------------------------

// readValue decodes the value introduced by tag; depth is the number of enclosing arrays.
func (r *Reader) readValue(tag byte, depth int) (Message, error) {
	switch tag {
	case '+':
		line, err := r.readText()
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindSimpleString, Str: line}, nil
	case '-':
		line, err := r.readText()
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindError, Str: line}, nil
	case ':':
		n, err := r.readInt("bad integer")
		if err != nil {
			return Message{}, err
		}
		return NewInteger(n), nil
	case '$':
		return r.readBulk()
	case '*':
		if depth >= MaxDepth {
			return Message{}, errs.BadRequest("nesting too deep")
		}
		return r.readArray(depth + 1)
	default:
		return Message{}, errs.BadRequest("bad first byte")
	}
}

func (r *Reader) readBulk() (Message, error) {
	n, err := r.readInt("bad bulk length")
	if err != nil {
		return Message{}, err
	}
	if n == -1 {
		return NilBulk(), nil
	}
	if n < 0 {
		return Message{}, errs.BadRequest("bad bulk length")
	}
	if n > MaxBulkLen {
		return Message{}, errs.BadRequest("bulk length %d exceeds limit %d", n, MaxBulkLen)
	}

	buf, err := r.readFull(int(n) + 2)
	if err != nil {
		return Message{}, err
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return Message{}, errs.BadRequest("bad bulk terminator")
	}
	return Message{Kind: KindBulkString, Str: buf[:n:n]}, nil
}

func (r *Reader) readArray(depth int) (Message, error) {
	n, err := r.readInt("bad array length")
	if err != nil {
		return Message{}, err
	}
	if n == -1 {
		return NilArray(), nil
	}
	if n < 0 {
		return Message{}, errs.BadRequest("bad array length")
	}
	if n > MaxArrayLen {
		return Message{}, errs.BadRequest("array length %d exceeds limit %d", n, MaxArrayLen)
	}

	items := make([]Message, 0, min(n, 1024))
	for i := int64(0); i < n; i++ {
		tag, err := r.br.ReadByte()
		if err != nil {
			return Message{}, midFrame(err)
		}
		item, err := r.readValue(tag, depth)
		if err != nil {
			return Message{}, err
		}
		items = append(items, item)
	}
	return Message{Kind: KindArray, Array: items}, nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// readLine reads up to and including '\n' and strips the line terminator.
func (r *Reader) readLine() ([]byte, error) {
	var buf []byte
	for {
		frag, err := r.br.ReadSlice('\n')
		if len(buf)+len(frag) > MaxLineLen {
			return nil, errs.BadRequest("line length exceeds limit %d", MaxLineLen)
		}
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			continue
		}
		return nil, midFrame(err)
	}

	buf = buf[:len(buf)-1]
	if len(buf) > 0 && buf[len(buf)-1] == '\r' {
		buf = buf[:len(buf)-1]
	}
	return buf, nil
}

// readText reads the line of a simple string or error. A CR may only appear in
// the terminator, such a line could not be encoded again.
func (r *Reader) readText() ([]byte, error) {
	line, err := r.readLine()
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(line, '\r') >= 0 {
		return nil, errs.BadRequest("bad simple string")
	}
	return line, nil
}

// readFull reads exactly n bytes. The buffer grows with the data received, so
// a large announced length costs no memory until the payload arrives.
func (r *Reader) readFull(n int) ([]byte, error) {
	buf := make([]byte, 0, min(n, bulkChunk))
	for len(buf) < n {
		if len(buf) == cap(buf) {
			grown := make([]byte, len(buf), min(2*cap(buf), n))
			copy(grown, buf)
			buf = grown
		}
		m, err := r.br.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+m]
		if err != nil && len(buf) < n {
			return nil, midFrame(err)
		}
	}
	return buf, nil
}

func (r *Reader) readInt(msg string) (int64, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, errs.BadRequest(msg)
	}
	return n, nil
}

// midFrame converts a read failure inside a frame into a ConnectionError.
func midFrame(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errs.Connection("peer closed mid-frame")
	}
	if isTimeout(err) {
		return errs.Connection("timeout error")
	}
	return errs.Connection("read error: %v", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
