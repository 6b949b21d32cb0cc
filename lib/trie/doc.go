// Package trie provides PrefixTrie, the storage structure behind TrieDB.
//
// A PrefixTrie maps byte-string keys over a fixed Alphabet to opaque byte-string
// values. Shared prefixes share nodes, so every key operation costs time
// proportional to the key length and independent of the number of entries.
//
// Key Components:
//
//   - Alphabet: the set of allowed bytes. Its size fixes the child width of every
//     node. Keys containing any other byte are rejected with a BadRequest before
//     the trie is touched.
//
//   - PrefixTrie: an arena of nodes referencing their children by int32 index.
//     No node is shared, there are no parent pointers and Clear simply replaces the
//     arena with a fresh root.
//
// Queries:
//
//   - Lookup / Contains: exact key match
//   - HasPrefix: does any stored key start with the prefix
//   - PrefixesOf / LongestPrefixOf: stored keys that are prefixes of a word
//   - WithPrefix: every entry in the subtree below a prefix (empty prefix = all)
//
// Persistence:
//
// Save writes a self-describing snapshot (magic, version, alphabet, entries and
// an xxhash64 trailer) and Load rebuilds a trie from it by repeated Insert calls.
// Any format or checksum failure is reported as ErrCorrupt.
//
// The trie is not thread-safe; see the store package for the locking discipline.
package trie
