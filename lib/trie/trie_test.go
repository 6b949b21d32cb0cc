package trie

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/ValentinKolb/triedb/lib/errs"
)

// entriesToMap turns an entry slice into a map so results can be compared as sets
func entriesToMap(entries []Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[string(e.Key)] = string(e.Value)
	}
	return out
}

func newTestTrie(t *testing.T, pairs ...string) *PrefixTrie {
	t.Helper()
	tr := New(MustAlphabet(DefaultAlphabet))
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := tr.Insert([]byte(pairs[i]), []byte(pairs[i+1])); err != nil {
			t.Fatalf("Insert(%q) failed: %v", pairs[i], err)
		}
	}
	return tr
}

func TestNewAlphabet(t *testing.T) {
	tests := []struct {
		name    string
		symbols string
		wantErr bool
	}{
		{"lowercase", DefaultAlphabet, false},
		{"digits", "0123456789", false},
		{"empty", "", true},
		{"duplicate", "abca", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAlphabet(tt.symbols)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.Size() != len(tt.symbols) {
				t.Errorf("Size() = %d, want %d", a.Size(), len(tt.symbols))
			}
		})
	}
}

func TestInsertLookup(t *testing.T) {
	tr := newTestTrie(t, "cat", "meow", "car", "vroom", "ca", "short")

	for key, want := range map[string]string{"cat": "meow", "car": "vroom", "ca": "short"} {
		got, ok := tr.Lookup([]byte(key))
		if !ok || string(got) != want {
			t.Errorf("Lookup(%q) = %q, %v; want %q", key, got, ok, want)
		}
		if !tr.Contains([]byte(key)) {
			t.Errorf("Contains(%q) = false", key)
		}
	}

	// prefixes that are only interior nodes are not keys
	for _, key := range []string{"c", "cats", "dog", ""} {
		if _, ok := tr.Lookup([]byte(key)); ok {
			t.Errorf("Lookup(%q) should be absent", key)
		}
	}

	if tr.Len() != 3 {
		t.Errorf("Len() = %d, want 3", tr.Len())
	}
}

func TestInsertOverwrite(t *testing.T) {
	tr := newTestTrie(t, "cat", "meow")
	if err := tr.Insert([]byte("cat"), []byte("purr")); err != nil {
		t.Fatal(err)
	}
	if got, _ := tr.Lookup([]byte("cat")); string(got) != "purr" {
		t.Errorf("Lookup after overwrite = %q, want purr", got)
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d after overwrite, want 1", tr.Len())
	}
}

func TestInsertCopiesValue(t *testing.T) {
	tr := newTestTrie(t)
	value := []byte("meow")
	if err := tr.Insert([]byte("cat"), value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'
	if got, _ := tr.Lookup([]byte("cat")); string(got) != "meow" {
		t.Errorf("stored value changed with caller buffer: %q", got)
	}
}

func TestInsertValidation(t *testing.T) {
	tr := newTestTrie(t, "cat", "meow")
	nodesBefore := len(tr.nodes)

	for _, key := range []string{"", "Cat", "ca7", "ca t", "caté"} {
		err := tr.Insert([]byte(key), []byte("x"))
		if !errs.IsBadRequest(err) {
			t.Errorf("Insert(%q) error = %v, want BadRequest", key, err)
		}
	}

	// no partial mutation: the valid "ca" path must not have grown
	if len(tr.nodes) != nodesBefore {
		t.Errorf("arena grew from %d to %d nodes after rejected inserts", nodesBefore, len(tr.nodes))
	}
	if tr.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tr.Len())
	}
}

func TestHasPrefix(t *testing.T) {
	tr := newTestTrie(t, "cat", "meow", "dog", "woof")
	tests := []struct {
		prefix string
		want   bool
	}{
		{"c", true},
		{"ca", true},
		{"cat", true},
		{"cats", false},
		{"d", true},
		{"e", false},
		{"", true},
		{"C", false},
	}
	for _, tt := range tests {
		if got := tr.HasPrefix([]byte(tt.prefix)); got != tt.want {
			t.Errorf("HasPrefix(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
	}

	if New(MustAlphabet(DefaultAlphabet)).HasPrefix(nil) {
		t.Error("empty trie should not have the empty prefix")
	}
}

func TestPrefixesOf(t *testing.T) {
	tr := newTestTrie(t, "c", "1", "ca", "2", "cat", "3", "cats", "4", "dog", "5")

	tests := []struct {
		word string
		want map[string]string
	}{
		{"caterpillar", map[string]string{"c": "1", "ca": "2", "cat": "3"}},
		{"cats", map[string]string{"c": "1", "ca": "2", "cat": "3", "cats": "4"}},
		{"ca", map[string]string{"c": "1", "ca": "2"}},
		{"dot", map[string]string{}},
		{"", map[string]string{}},
		{"x", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got := entriesToMap(tr.PrefixesOf([]byte(tt.word)))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PrefixesOf(%q) = %v, want %v", tt.word, got, tt.want)
			}
		})
	}
}

func TestLongestPrefixOf(t *testing.T) {
	tr := newTestTrie(t, "c", "1", "cat", "3", "dog", "5")

	tests := []struct {
		word    string
		wantKey string
		wantOk  bool
	}{
		{"caterpillar", "cat", true},
		{"cab", "c", true},
		{"cat", "cat", true},
		{"do", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		e, ok := tr.LongestPrefixOf([]byte(tt.word))
		if ok != tt.wantOk || string(e.Key) != tt.wantKey {
			t.Errorf("LongestPrefixOf(%q) = (%q, %v), want (%q, %v)", tt.word, e.Key, ok, tt.wantKey, tt.wantOk)
		}
		if ok != (len(tr.PrefixesOf([]byte(tt.word))) > 0) {
			t.Errorf("LongestPrefixOf(%q) presence disagrees with PrefixesOf", tt.word)
		}
	}
}

func TestWithPrefix(t *testing.T) {
	tr := newTestTrie(t, "cat", "meow", "car", "vroom", "cart", "wheel", "dog", "woof")

	tests := []struct {
		prefix string
		want   map[string]string
	}{
		{"ca", map[string]string{"cat": "meow", "car": "vroom", "cart": "wheel"}},
		{"car", map[string]string{"car": "vroom", "cart": "wheel"}},
		{"d", map[string]string{"dog": "woof"}},
		{"x", map[string]string{}},
		{"", map[string]string{"cat": "meow", "car": "vroom", "cart": "wheel", "dog": "woof"}},
	}
	for _, tt := range tests {
		t.Run("prefix="+tt.prefix, func(t *testing.T) {
			got := entriesToMap(tr.WithPrefix([]byte(tt.prefix)))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("WithPrefix(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestWithPrefixAlphabetOrder(t *testing.T) {
	tr := newTestTrie(t, "b", "2", "ab", "3", "a", "1", "ba", "4")
	var keys []string
	for _, e := range tr.WithPrefix(nil) {
		keys = append(keys, string(e.Key))
	}
	if !sort.StringsAreSorted(keys) {
		t.Errorf("WithPrefix(all) keys not in alphabet order: %v", keys)
	}
}

func TestClear(t *testing.T) {
	tr := newTestTrie(t, "cat", "meow", "dog", "woof")
	tr.Clear()
	if tr.Len() != 0 {
		t.Errorf("Len() after Clear = %d", tr.Len())
	}
	if tr.Contains([]byte("cat")) || tr.HasPrefix([]byte("d")) {
		t.Error("entries survived Clear")
	}
	if len(tr.WithPrefix(nil)) != 0 {
		t.Error("WithPrefix(all) not empty after Clear")
	}
	if err := tr.Insert([]byte("cat"), []byte("again")); err != nil {
		t.Fatalf("Insert after Clear: %v", err)
	}
}

func TestCustomAlphabet(t *testing.T) {
	tr := New(MustAlphabet("01"))
	if err := tr.Insert([]byte("0110"), []byte("six")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Insert([]byte("012"), []byte("x")); !errs.IsBadRequest(err) {
		t.Errorf("Insert outside custom alphabet error = %v", err)
	}
	if got := entriesToMap(tr.PrefixesOf([]byte("01101"))); !reflect.DeepEqual(got, map[string]string{"0110": "six"}) {
		t.Errorf("PrefixesOf = %v", got)
	}
}

func TestLongKey(t *testing.T) {
	tr := newTestTrie(t)
	key := []byte(strings.Repeat("abc", 1000))
	if err := tr.Insert(key, []byte("long")); err != nil {
		t.Fatal(err)
	}
	if got, ok := tr.Lookup(key); !ok || string(got) != "long" {
		t.Errorf("Lookup(long key) = %q, %v", got, ok)
	}
	if e, ok := tr.LongestPrefixOf(append(key, 'z')); !ok || len(e.Key) != len(key) {
		t.Errorf("LongestPrefixOf(long key + z) = %d bytes, %v", len(e.Key), ok)
	}
}
