package errs

import (
	"fmt"
	"io"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"bad request", BadRequest("bad %s", "thing"), KindBadRequest},
		{"protocol", Protocol("unsupported"), KindProtocol},
		{"connection", Connection("timeout error"), KindConnection},
		{"client", Client("oops"), KindClient},
		{"wrapped", fmt.Errorf("ctx: %w", Connection("empty request")), KindConnection},
		{"foreign", io.EOF, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf() = %s, want %s", got, tt.kind)
			}
			if IsBadRequest(tt.err) != (tt.kind == KindBadRequest) {
				t.Errorf("IsBadRequest mismatch for %v", tt.err)
			}
			if IsConnection(tt.err) != (tt.kind == KindConnection) {
				t.Errorf("IsConnection mismatch for %v", tt.err)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := Message(BadRequest("command does not exist")); got != "command does not exist" {
		t.Errorf("Message() = %q", got)
	}
	if got := Message(fmt.Errorf("wrapped: %w", BadRequest("not ready"))); got != "not ready" {
		t.Errorf("Message() through wrap = %q", got)
	}
	if got := Message(io.EOF); got != "EOF" {
		t.Errorf("Message() for foreign error = %q", got)
	}
}
