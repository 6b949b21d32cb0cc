// Package store provides the storage engine of triedb: one prefix trie, a fixed
// table of commands operating on it and the lifecycle that binds it to the
// backup manager.
//
// Commands:
//
//	SET key value        store value at key
//	EXISTS key...        number of keys present
//	PEXISTS prefix...    number of prefixes some key starts with
//	GET key              value at key or nil
//	PGET word            flat key/value pairs of all keys that are prefixes of word
//	PGETL word           key/value pair of the longest key that is a prefix of word, or nil
//	WPGET prefix         flat key/value pairs of all keys starting with prefix
//	FLUSH                remove all keys
//	ECHO message         message
//
// An Engine starts out stopped and rejects every command with a "not ready"
// BadRequest until Start has restored the trie:
//
//	e := store.NewEngine(store.Config{Backup: backup.Config{Path: "data.trie"}})
//	if err := e.Start(ctx); err != nil { ... }
//	defer e.Close()
//	_, err := e.Execute("SET", [][]byte{[]byte("cat"), []byte("meow")})
//
// All errors returned by Execute are *errs.Error of kind BadRequest; their Msg is
// meant to be sent to the client as is.
package store
