package trie

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum        = "TRIEDB\x00\x00" // File format identifier
	snapshotVersion = 1                // Snapshot format version
	maxAlphabetSize = 256
)

// ErrCorrupt is returned by Load for snapshots that fail a format or checksum check.
var ErrCorrupt = errors.New("corrupt snapshot")

// --------------------------------------------------------------------------
// Save / Load
// --------------------------------------------------------------------------

// Save writes the alphabet and every entry to w.
//
// Layout (little endian):
//   - 8 bytes magic, 1 byte version
//   - uint16 alphabet length, alphabet bytes
//   - uint64 entry count
//   - per entry: uint32 key length, key, uint32 value length, value
//   - uint64 xxhash64 of all preceding bytes
//
// Thread-safety: Save only reads the trie, callers must exclude concurrent writers.
func (t *PrefixTrie) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	digest := xxhash.New()
	out := io.MultiWriter(bw, digest)

	if _, err := io.WriteString(out, magicNum); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := binary.Write(out, binary.LittleEndian, uint8(snapshotVersion)); err != nil {
		return errors.Wrap(err, "write version")
	}

	// Write alphabet
	if err := binary.Write(out, binary.LittleEndian, uint16(t.alphabet.Size())); err != nil {
		return errors.Wrap(err, "write alphabet")
	}
	if _, err := io.WriteString(out, t.alphabet.String()); err != nil {
		return errors.Wrap(err, "write alphabet")
	}

	// Write entries
	if err := binary.Write(out, binary.LittleEndian, uint64(t.size)); err != nil {
		return errors.Wrap(err, "write entry count")
	}
	var werr error
	t.Range(func(key, value []byte) bool {
		werr = writeChunk(out, key)
		if werr == nil {
			werr = writeChunk(out, value)
		}
		return werr == nil
	})
	if werr != nil {
		return errors.Wrap(werr, "write entry")
	}

	// Trailer is not part of the checksum
	if err := binary.Write(bw, binary.LittleEndian, digest.Sum64()); err != nil {
		return errors.Wrap(err, "write checksum")
	}
	return bw.Flush()
}

// Load reads a snapshot written by Save and returns the rebuilt trie. The
// trie uses the alphabet stored in the snapshot. Format and checksum
// failures are reported as ErrCorrupt.
func Load(r io.Reader) (*PrefixTrie, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	digest := xxhash.New()
	in := io.TeeReader(br, digest)

	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(in, magicBytes); err != nil {
		return nil, corrupt(err, "read header")
	}
	if string(magicBytes) != magicNum {
		return nil, errors.Wrap(ErrCorrupt, "magic number mismatch")
	}

	var version uint8
	if err := binary.Read(in, binary.LittleEndian, &version); err != nil {
		return nil, corrupt(err, "read version")
	}
	if version != snapshotVersion {
		return nil, errors.Wrapf(ErrCorrupt, "unsupported version: %d (expected %d)", version, snapshotVersion)
	}

	// Read alphabet
	var alphabetLen uint16
	if err := binary.Read(in, binary.LittleEndian, &alphabetLen); err != nil {
		return nil, corrupt(err, "read alphabet")
	}
	if alphabetLen == 0 || alphabetLen > maxAlphabetSize {
		return nil, errors.Wrapf(ErrCorrupt, "invalid alphabet length %d", alphabetLen)
	}
	symbols := make([]byte, alphabetLen)
	if _, err := io.ReadFull(in, symbols); err != nil {
		return nil, corrupt(err, "read alphabet")
	}
	alphabet, err := NewAlphabet(string(symbols))
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "invalid alphabet: %v", err)
	}

	// Read entries
	var count uint64
	if err := binary.Read(in, binary.LittleEndian, &count); err != nil {
		return nil, corrupt(err, "read entry count")
	}
	t := New(alphabet)
	for i := uint64(0); i < count; i++ {
		key, err := readChunk(in)
		if err != nil {
			return nil, corrupt(err, "read key")
		}
		value, err := readChunk(in)
		if err != nil {
			return nil, corrupt(err, "read value")
		}
		if err := t.Insert(key, value); err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "entry %d: %v", i, err)
		}
	}

	// Verify checksum (read from br so the trailer is not hashed)
	sum := digest.Sum64()
	var stored uint64
	if err := binary.Read(br, binary.LittleEndian, &stored); err != nil {
		return nil, corrupt(err, "read checksum")
	}
	if stored != sum {
		return nil, errors.Wrap(ErrCorrupt, "checksum mismatch")
	}

	return t, nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// maxChunkLen bounds a single key or value read from disk. It matches the
// largest bulk string a client can send.
const maxChunkLen = 512 * 1024 * 1024

func writeChunk(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readChunk(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxChunkLen {
		return nil, errors.Wrapf(ErrCorrupt, "chunk length %d exceeds limit", n)
	}
	// the length is not verified yet, memory grows with the bytes actually read
	var b bytes.Buffer
	if _, err := io.CopyN(&b, r, int64(n)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// corrupt marks truncated input as ErrCorrupt and keeps other read errors as they are.
func corrupt(err error, step string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrapf(ErrCorrupt, "%s: %v", step, err)
	}
	return errors.Wrap(err, step)
}
