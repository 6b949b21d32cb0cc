package resp

import (
	"bytes"
	"testing"
)

// benchmarkValues returns a set of values for targeted benchmarking
func benchmarkValues() map[string]any {
	return map[string]any{
		"Integer":    int64(123456),
		"SmallBulk":  []byte("v"),
		"LargeBulk":  make([]byte, 16*1024),
		"GetRequest": [][]byte{[]byte("GET"), []byte("somekey")},
		"PrefixResult": func() [][]byte {
			out := make([][]byte, 0, 200)
			for i := 0; i < 100; i++ {
				out = append(out, []byte("prefixedkey"), []byte("some value"))
			}
			return out
		}(),
	}
}

// BenchmarkMarshal benchmarks encoding of typical values
func BenchmarkMarshal(b *testing.B) {
	for name, v := range benchmarkValues() {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := Marshal(v); err != nil {
					b.Fatalf("Failed to marshal: %v", err)
				}
			}
		})
	}
}

// BenchmarkReadMessage benchmarks decoding of typical values
func BenchmarkReadMessage(b *testing.B) {
	for name, v := range benchmarkValues() {
		data, err := Marshal(v)
		if err != nil {
			b.Fatalf("Failed to marshal: %v", err)
		}
		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := NewReader(bytes.NewReader(data)).ReadMessage(); err != nil {
					b.Fatalf("Failed to read: %v", err)
				}
			}
		})
	}
}
