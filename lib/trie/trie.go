package trie

import (
	"github.com/ValentinKolb/triedb/lib/errs"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Entry is a stored key together with its value.
type Entry struct {
	Key   []byte
	Value []byte
}

// node is one element of the arena. children holds arena indices, 0 means
// "no child" because the root (index 0) is never anybody's child.
type node struct {
	children []int32
	value    []byte
	end      bool
}

// PrefixTrie maps keys over a fixed alphabet to opaque values.
// Nodes live in a single arena slice and reference each other by index.
//
// Thread-safety: PrefixTrie is not thread-safe. The storage engine guards it
// with a reader-writer lock.
type PrefixTrie struct {
	alphabet Alphabet
	nodes    []node
	size     int
}

// New creates an empty trie over the given alphabet.
func New(alphabet Alphabet) *PrefixTrie {
	t := &PrefixTrie{alphabet: alphabet}
	t.Clear()
	return t
}

// Alphabet returns the alphabet the trie was created with.
func (t *PrefixTrie) Alphabet() Alphabet {
	return t.alphabet
}

// Len returns the number of stored keys.
func (t *PrefixTrie) Len() int {
	return t.size
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Insert stores value at key, overwriting any previous value.
// The key must be non-empty and drawn from the alphabet; otherwise a
// BadRequest is returned and the trie is left untouched.
func (t *PrefixTrie) Insert(key, value []byte) error {
	if len(key) == 0 {
		return errs.BadRequest("empty key")
	}
	if err := t.alphabet.Validate(key); err != nil {
		return err
	}

	cur := int32(0)
	for _, c := range key {
		slot := t.alphabet.slot(c)
		next := t.nodes[cur].children[slot]
		if next == 0 {
			next = t.newNode()
			t.nodes[cur].children[slot] = next
		}
		cur = next
	}

	n := &t.nodes[cur]
	if !n.end {
		t.size++
	}
	// copied and never nil: an empty value is not an absent one
	n.end = true
	n.value = make([]byte, len(value))
	copy(n.value, value)
	return nil
}

// Clear removes all entries by replacing the arena with a fresh root.
func (t *PrefixTrie) Clear() {
	t.nodes = make([]node, 0, 64)
	t.size = 0
	t.newNode()
}

func (t *PrefixTrie) newNode() int32 {
	t.nodes = append(t.nodes, node{children: make([]int32, t.alphabet.Size())})
	return int32(len(t.nodes) - 1)
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// walk follows s from the root and returns the reached node index.
// ok is false if s leaves the alphabet or runs off the trie.
func (t *PrefixTrie) walk(s []byte) (int32, bool) {
	cur := int32(0)
	for _, c := range s {
		slot := t.alphabet.slot(c)
		if slot < 0 {
			return 0, false
		}
		cur = t.nodes[cur].children[slot]
		if cur == 0 {
			return 0, false
		}
	}
	return cur, true
}

// Lookup returns the value stored at exactly key.
func (t *PrefixTrie) Lookup(key []byte) ([]byte, bool) {
	if len(key) == 0 {
		return nil, false
	}
	idx, ok := t.walk(key)
	if !ok || !t.nodes[idx].end {
		return nil, false
	}
	return t.nodes[idx].value, true
}

// Contains reports whether key is stored.
func (t *PrefixTrie) Contains(key []byte) bool {
	_, ok := t.Lookup(key)
	return ok
}

// HasPrefix reports whether at least one stored key starts with prefix.
// The empty prefix matches any non-empty trie.
func (t *PrefixTrie) HasPrefix(prefix []byte) bool {
	if len(prefix) == 0 {
		return t.size > 0
	}
	_, ok := t.walk(prefix)
	// every node that exists lies on the path of some stored key
	return ok
}

// PrefixesOf returns every stored key that is a prefix of word, word itself
// included. Entries are ordered from the shortest key to the longest.
func (t *PrefixTrie) PrefixesOf(word []byte) []Entry {
	var out []Entry
	t.walkPrefixes(word, func(depth int, n *node) {
		out = append(out, Entry{Key: word[:depth:depth], Value: n.value})
	})
	return out
}

// LongestPrefixOf returns the longest stored key that is a prefix of word.
func (t *PrefixTrie) LongestPrefixOf(word []byte) (Entry, bool) {
	var (
		best  Entry
		found bool
	)
	t.walkPrefixes(word, func(depth int, n *node) {
		best = Entry{Key: word[:depth:depth], Value: n.value}
		found = true
	})
	return best, found
}

// walkPrefixes calls fn for every end-of-key node on the path of word.
func (t *PrefixTrie) walkPrefixes(word []byte, fn func(depth int, n *node)) {
	cur := int32(0)
	for i, c := range word {
		slot := t.alphabet.slot(c)
		if slot < 0 {
			return
		}
		cur = t.nodes[cur].children[slot]
		if cur == 0 {
			return
		}
		if n := &t.nodes[cur]; n.end {
			fn(i+1, n)
		}
	}
}

// WithPrefix returns every stored entry whose key starts with prefix, in
// alphabet order. The empty prefix returns all entries.
func (t *PrefixTrie) WithPrefix(prefix []byte) []Entry {
	start, ok := int32(0), true
	if len(prefix) > 0 {
		start, ok = t.walk(prefix)
	}
	if !ok {
		return nil
	}

	var out []Entry
	path := append(make([]byte, 0, len(prefix)+16), prefix...)
	t.collect(start, path, &out)
	return out
}

// collect appends every end-of-key node below idx (idx included) to out.
func (t *PrefixTrie) collect(idx int32, path []byte, out *[]Entry) {
	n := &t.nodes[idx]
	if n.end {
		key := make([]byte, len(path))
		copy(key, path)
		*out = append(*out, Entry{Key: key, Value: n.value})
	}
	for slot, child := range n.children {
		if child == 0 {
			continue
		}
		t.collect(child, append(path, t.alphabet.symbols[slot]), out)
	}
}

// Range calls fn for every entry in alphabet order until fn returns false.
func (t *PrefixTrie) Range(fn func(key, value []byte) bool) {
	for _, e := range t.WithPrefix(nil) {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}
