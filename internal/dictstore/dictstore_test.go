package dictstore

import (
	"bytes"
	"hash/adler32"
	"testing"
)

func TestRegisterLookupRoundTrip(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	dict := []byte("a shared preset dictionary")
	id := adler32.Checksum(dict)

	if err := s.Register(id, dict); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := s.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !bytes.Equal(got, dict) {
		t.Fatalf("round trip mismatch: got %q want %q", got, dict)
	}
}

func TestLookupMissingIDReturnsErrNotFound(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	if _, err := s.Lookup(0xdeadbeef); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestForgetRemovesEntry(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	dict := []byte("gone soon")
	id := adler32.Checksum(dict)
	if err := s.Register(id, dict); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Forget(id); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := s.Lookup(id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after Forget, got %v", err)
	}
}

// TestMismatchedIDReturnsErrNotFound documents that looking a dictionary
// up under an id other than the one it was registered under simply misses
// with ErrNotFound — dictstore never compares content, only ids. (A
// zstream.Reader whose resolver misses reports ErrMissingDict.)
func TestMismatchedIDReturnsErrNotFound(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close()

	dict := []byte("registered under its own id")
	id := adler32.Checksum(dict)
	if err := s.Register(id, dict); err != nil {
		t.Fatalf("Register: %v", err)
	}

	wrongID := id ^ 0xffffffff
	if _, err := s.Lookup(wrongID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for mismatched id, got %v", err)
	}
}
