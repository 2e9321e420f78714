package charstream

import (
	"context"
	"io"
	"testing"
)

// sliceSource yields chunks from a fixed slice, one per Next call.
func sliceSource(chunks ...[]byte) ChunkSource {
	i := 0
	return ChunkSourceFunc(func(ctx context.Context) ([]byte, bool, error) {
		if i >= len(chunks) {
			return nil, false, nil
		}
		c := chunks[i]
		i++
		return c, true, nil
	})
}

func collect(t *testing.T, r *Reader) string {
	t.Helper()
	ctx := context.Background()
	var out []rune
	for {
		rn, ok, err := r.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, rn)
	}
	return string(out)
}

func TestReaderSingleChunk(t *testing.T) {
	r := New(sliceSource([]byte("hello")))
	if got := collect(t, r); got != "hello" {
		t.Errorf("collect() = %q, want %q", got, "hello")
	}
}

func TestReaderMultipleChunks(t *testing.T) {
	r := New(sliceSource([]byte("foo"), []byte("bar"), []byte("baz")))
	if got := collect(t, r); got != "foobarbaz" {
		t.Errorf("collect() = %q, want %q", got, "foobarbaz")
	}
}

func TestReaderRuneSplitAcrossChunks(t *testing.T) {
	// "é" is 0xC3 0xA9 in UTF-8; split the two bytes across chunks.
	full := "café"
	b := []byte(full)
	split := len(b) - 1 // splits the final multi-byte rune in half
	r := New(sliceSource(b[:split], b[split:]))
	if got := collect(t, r); got != full {
		t.Errorf("collect() = %q, want %q", got, full)
	}
}

func TestReaderEmptySource(t *testing.T) {
	r := New(sliceSource())
	ctx := context.Background()
	_, ok, err := r.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Error("Next() on empty source returned ok=true")
	}
	// Idempotent at end of stream.
	_, ok, err = r.Next(ctx)
	if err != nil || ok {
		t.Errorf("Next() after end = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
}

func TestReaderPropagatesSourceError(t *testing.T) {
	wantErr := io.ErrUnexpectedEOF
	src := ChunkSourceFunc(func(ctx context.Context) ([]byte, bool, error) {
		return nil, false, wantErr
	})
	r := New(src)
	_, ok, err := r.Next(context.Background())
	if ok {
		t.Error("Next() with failing source returned ok=true")
	}
	if err != wantErr {
		t.Errorf("Next() err = %v, want %v", err, wantErr)
	}
}
