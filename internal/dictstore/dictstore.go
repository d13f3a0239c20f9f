// Package dictstore is a small pebble-backed registry mapping a preset
// dictionary's Adler-32 id to its bytes, so a long-lived process can
// register dictionaries once and let zstream.Reader resolve a ZLIB
// header's FDICT id without the caller re-supplying the bytes per stream.
package dictstore

import (
	"encoding/binary"
	"errors"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
)

// ErrNotFound is returned by Lookup when no dictionary was ever
// registered under the requested id.
var ErrNotFound = errors.New("dictstore: dictionary id not registered")

// Store is a handle on an open registry. The zero value is not usable;
// construct one with Open or OpenMemory.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a registry rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an ephemeral, process-local registry backed by
// pebble's in-memory filesystem — used by tests and by callers who only
// need the registry for one process lifetime.
func OpenMemory() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func dictKey(id uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], id)
	return b[:]
}

// Register stores dict under id, the Adler-32 checksum zstream reads out
// of a ZLIB header's DICTID field. A second Register under the same id
// overwrites the previous bytes.
func (s *Store) Register(id uint32, dict []byte) error {
	return s.db.Set(dictKey(id), dict, pebble.Sync)
}

// Lookup returns a copy of the dictionary registered under id, or
// ErrNotFound.
func (s *Store) Lookup(id uint32) ([]byte, error) {
	v, closer, err := s.db.Get(dictKey(id))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	closer.Close()
	return out, nil
}

// Forget removes a registered dictionary; looking it up afterwards
// reports ErrNotFound.
func (s *Store) Forget(id uint32) error {
	return s.db.Delete(dictKey(id), pebble.Sync)
}
