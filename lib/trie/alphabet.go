package trie

import (
	"github.com/ValentinKolb/triedb/lib/errs"
)

// DefaultAlphabet is used when no alphabet is configured.
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyz"

// Alphabet maps every allowed byte to a child slot. The number of symbols
// fixes the width of every node in the arena.
type Alphabet struct {
	symbols string
	slots   [256]int16 // -1 = not allowed
}

// NewAlphabet creates an alphabet from the given symbols. The symbols must be
// non-empty and must not contain duplicates.
func NewAlphabet(symbols string) (Alphabet, error) {
	a := Alphabet{symbols: symbols}
	if len(symbols) == 0 {
		return a, errs.BadRequest("empty alphabet")
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if a.slots[c] >= 0 {
			return a, errs.BadRequest("duplicate symbol %q in alphabet", c)
		}
		a.slots[c] = int16(i)
	}
	return a, nil
}

// MustAlphabet is like NewAlphabet but panics on an invalid alphabet.
func MustAlphabet(symbols string) Alphabet {
	a, err := NewAlphabet(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// Size returns the number of symbols.
func (a Alphabet) Size() int {
	return len(a.symbols)
}

// String returns the symbols in slot order.
func (a Alphabet) String() string {
	return a.symbols
}

// Equal reports whether both alphabets have the same symbols in the same order.
func (a Alphabet) Equal(other Alphabet) bool {
	return a.symbols == other.symbols
}

// Validate returns a BadRequest naming the first byte of s that is not in the alphabet.
// An empty s is valid here, callers that need a non-empty key check that themselves.
func (a Alphabet) Validate(s []byte) error {
	for _, c := range s {
		if a.slots[c] < 0 {
			return errs.BadRequest("invalid key: byte %q is not in the alphabet", c)
		}
	}
	return nil
}

func (a Alphabet) slot(c byte) int {
	return int(a.slots[c])
}
