package store

import (
	"github.com/ValentinKolb/triedb/lib/errs"
	"github.com/ValentinKolb/triedb/lib/trie"
)

// --------------------------------------------------------------------------
// Command Table
// --------------------------------------------------------------------------

type handlerFunc func(t *trie.PrefixTrie, args [][]byte) (any, error)

type command struct {
	name    string
	minArgs int
	maxArgs int // -1 means no upper bound
	write   bool
	handler handlerFunc
}

var commands = map[string]command{
	"SET":     {name: "SET", minArgs: 2, maxArgs: 2, write: true, handler: set},
	"EXISTS":  {name: "EXISTS", minArgs: 1, maxArgs: -1, handler: exists},
	"PEXISTS": {name: "PEXISTS", minArgs: 1, maxArgs: -1, handler: pexists},
	"GET":     {name: "GET", minArgs: 1, maxArgs: 1, handler: get},
	"PGET":    {name: "PGET", minArgs: 1, maxArgs: 1, handler: pget},
	"PGETL":   {name: "PGETL", minArgs: 1, maxArgs: 1, handler: pgetl},
	"WPGET":   {name: "WPGET", minArgs: 1, maxArgs: 1, handler: wpget},
	"FLUSH":   {name: "FLUSH", minArgs: 0, maxArgs: 0, write: true, handler: flush},
	"ECHO":    {name: "ECHO", minArgs: 1, maxArgs: 1, handler: echo},
}

// Commands returns the names of all commands.
func Commands() []string {
	return []string{"SET", "EXISTS", "PEXISTS", "GET", "PGET", "PGETL", "WPGET", "FLUSH", "ECHO"}
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func set(t *trie.PrefixTrie, args [][]byte) (any, error) {
	if err := t.Insert(args[0], args[1]); err != nil {
		return nil, err
	}
	return nil, nil
}

func exists(t *trie.PrefixTrie, args [][]byte) (any, error) {
	if err := validateKeys(t, args); err != nil {
		return nil, err
	}
	var n int64
	for _, key := range args {
		if t.Contains(key) {
			n++
		}
	}
	return n, nil
}

func pexists(t *trie.PrefixTrie, args [][]byte) (any, error) {
	if err := validateWords(t, args...); err != nil {
		return nil, err
	}
	var n int64
	for _, prefix := range args {
		if t.HasPrefix(prefix) {
			n++
		}
	}
	return n, nil
}

func get(t *trie.PrefixTrie, args [][]byte) (any, error) {
	if err := validateKeys(t, args); err != nil {
		return nil, err
	}
	if value, ok := t.Lookup(args[0]); ok {
		return value, nil
	}
	return nil, nil
}

func pget(t *trie.PrefixTrie, args [][]byte) (any, error) {
	if err := validateWords(t, args...); err != nil {
		return nil, err
	}
	return flatten(t.PrefixesOf(args[0])), nil
}

func pgetl(t *trie.PrefixTrie, args [][]byte) (any, error) {
	if err := validateWords(t, args...); err != nil {
		return nil, err
	}
	if entry, ok := t.LongestPrefixOf(args[0]); ok {
		return [][]byte{entry.Key, entry.Value}, nil
	}
	return nil, nil
}

func wpget(t *trie.PrefixTrie, args [][]byte) (any, error) {
	if err := validateWords(t, args...); err != nil {
		return nil, err
	}
	return flatten(t.WithPrefix(args[0])), nil
}

func flush(t *trie.PrefixTrie, _ [][]byte) (any, error) {
	t.Clear()
	return nil, nil
}

func echo(_ *trie.PrefixTrie, args [][]byte) (any, error) {
	return args[0], nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// validateKeys checks exact keys: non-empty and inside the alphabet.
func validateKeys(t *trie.PrefixTrie, keys [][]byte) error {
	for _, key := range keys {
		if len(key) == 0 {
			return errs.BadRequest("empty key")
		}
	}
	return validateWords(t, keys...)
}

// validateWords checks prefixes and words, which may be empty.
func validateWords(t *trie.PrefixTrie, words ...[]byte) error {
	alphabet := t.Alphabet()
	for _, w := range words {
		if err := alphabet.Validate(w); err != nil {
			return err
		}
	}
	return nil
}

// flatten returns k1, v1, k2, v2, ...
func flatten(entries []trie.Entry) [][]byte {
	out := make([][]byte, 0, 2*len(entries))
	for _, e := range entries {
		out = append(out, e.Key, e.Value)
	}
	return out
}
