package trie

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"runtime"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	tr := newTestTrie(t, "cat", "meow", "car", "vroom", "c", "", "dog", "woof\x00\r\n")

	var buf bytes.Buffer
	if err := tr.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !loaded.Alphabet().Equal(tr.Alphabet()) {
		t.Errorf("alphabet = %q, want %q", loaded.Alphabet(), tr.Alphabet())
	}
	if loaded.Len() != tr.Len() {
		t.Errorf("Len() = %d, want %d", loaded.Len(), tr.Len())
	}
	if got, want := entriesToMap(loaded.WithPrefix(nil)), entriesToMap(tr.WithPrefix(nil)); !reflect.DeepEqual(got, want) {
		t.Errorf("entries after load = %v, want %v", got, want)
	}
}

func TestSaveLoadEmpty(t *testing.T) {
	tr := New(MustAlphabet("xyz"))
	var buf bytes.Buffer
	if err := tr.Save(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 0 || loaded.Alphabet().String() != "xyz" {
		t.Errorf("loaded = %d entries, alphabet %q", loaded.Len(), loaded.Alphabet())
	}
}

func TestLoadCorrupt(t *testing.T) {
	tr := newTestTrie(t, "cat", "meow", "car", "vroom")
	var buf bytes.Buffer
	if err := tr.Save(&buf); err != nil {
		t.Fatal(err)
	}
	valid := buf.Bytes()

	flipped := append([]byte(nil), valid...)
	flipped[len(flipped)-12] ^= 0xff

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 'X'

	tests := map[string][]byte{
		"empty":       {},
		"bad magic":   badMagic,
		"truncated":   valid[:len(valid)/2],
		"no checksum": valid[:len(valid)-8],
		"bit flip":    flipped,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(bytes.NewReader(data))
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Load() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

// snapshotWithKeyLength builds a snapshot header announcing one entry whose key
// has the given length, followed by no key bytes at all.
func snapshotWithKeyLength(n uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString(magicNum)
	buf.WriteByte(snapshotVersion)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(DefaultAlphabet)))
	buf.WriteString(DefaultAlphabet)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(1))
	_ = binary.Write(&buf, binary.LittleEndian, n)
	return buf.Bytes()
}

func TestLoadCorruptChunkLength(t *testing.T) {
	tests := []struct {
		name   string
		length uint32
	}{
		{"AboveLimit", maxChunkLen + 1},
		{"MaxUint32", ^uint32(0)},
		{"LargeTruncated", 400 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.GC()
			runtime.ReadMemStats(&before)
			_, err := Load(bytes.NewReader(snapshotWithKeyLength(tt.length)))
			runtime.ReadMemStats(&after)

			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Load() error = %v, want ErrCorrupt", err)
			}
			if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 8<<20 {
				t.Errorf("Load() allocated %d bytes for a %d byte snapshot", allocated, len(snapshotWithKeyLength(tt.length)))
			}
		})
	}
}
