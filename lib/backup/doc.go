/*
Package backup persists the trie of a triedb server.

A Manager restores the trie once at startup and afterwards writes periodic
snapshots of it:

	m := backup.NewManager(backup.Config{
		Path:      "data.trie",
		Frequency: time.Minute,
	}, engine)
	t := m.Restore(ctx)   // never fails, falls back to an empty trie
	_ = m.Start(ctx)      // periodic snapshots in the background
	defer m.Close()

Snapshots are written to a temp file in the target directory, synced and renamed
over the previous snapshot, so the file at Path is always a complete snapshot.

A Remote (see GCSRemote) mirrors the snapshot file: it is uploaded after every
local snapshot and downloaded by Restore when the local file is missing.
*/
package backup
