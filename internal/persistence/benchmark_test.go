package persistence

import (
	"bytes"
	"context"
	"testing"

	"github.com/ffutop/savestate/save"
)

var benchPayload = bytes.Repeat([]byte("harbor||lighthouse|"), 4096)

func benchmarkWrite(b *testing.B, backend Backend) {
	ctx := context.Background()
	key := save.SlotKey{SlotID: 1}
	b.SetBytes(int64(len(benchPayload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := backend.Write(ctx, key, benchPayload, nil); err != nil {
			b.Fatalf("write failed: %v", err)
		}
	}
}

func benchmarkRead(b *testing.B, backend Backend) {
	ctx := context.Background()
	key := save.SlotKey{SlotID: 1}
	if err := backend.Write(ctx, key, benchPayload, nil); err != nil {
		b.Fatalf("write failed: %v", err)
	}
	b.SetBytes(int64(len(benchPayload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := backend.Read(ctx, key); err != nil {
			b.Fatalf("read failed: %v", err)
		}
	}
}

func BenchmarkMemoryBackend_Write(b *testing.B) {
	benchmarkWrite(b, NewMemoryBackend())
}

// BenchmarkFileBackend_Write includes the fsync and rename of every write.
func BenchmarkFileBackend_Write(b *testing.B) {
	benchmarkWrite(b, NewFileBackend(b.TempDir(), ""))
}

func BenchmarkMemoryBackend_Read(b *testing.B) {
	benchmarkRead(b, NewMemoryBackend())
}

func BenchmarkFileBackend_Read(b *testing.B) {
	benchmarkRead(b, NewFileBackend(b.TempDir(), ""))
}

func BenchmarkMmapBackend_Read(b *testing.B) {
	benchmarkRead(b, NewMmapBackend(b.TempDir(), ""))
}
