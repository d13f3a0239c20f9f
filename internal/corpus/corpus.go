// Package corpus loads the conformance test corpus referenced in
// spec.md section 8: a tree of Canterbury/Calgary-style sample files,
// some of them shipped xz- or zstd-compressed to keep the repository
// small. It exists for conformance tests only and is never imported by
// the codec packages themselves.
package corpus

import (
	"bytes"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/DataDog/zstd"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/therootcompany/xz"
)

// Member is one decompressed corpus file.
type Member struct {
	Name string // path with any .xz/.zst suffix stripped
	Data []byte
}

// Load globs pattern against fsys (typically a testdata tree), decoding
// any .xz or .zst member transparently, and returns the members sorted
// by name for deterministic test iteration.
func Load(fsys fs.FS, pattern string) ([]Member, error) {
	names, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Member, 0, len(names))
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		data, err := decode(name, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Member{Name: trimCompressedSuffix(name), Data: data})
	}
	return out, nil
}

func trimCompressedSuffix(name string) string {
	name = strings.TrimSuffix(name, ".xz")
	name = strings.TrimSuffix(name, ".zst")
	return name
}

func decode(name string, raw []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(name, ".xz"):
		r, err := xz.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case strings.HasSuffix(name, ".zst"):
		return zstd.Decompress(nil, raw)
	default:
		return raw, nil
	}
}
