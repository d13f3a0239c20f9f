package corpus

import (
	"testing"
	"testing/fstest"
)

// TestLoadPlainMembers exercises the glob + read path for members that
// need no decompression. The .xz/.zst decode paths are not exercised by
// any test in this module: hand-authoring a byte-exact xz or zstd frame in
// a unit test is as brittle as hand-authoring a JPEG, and the module ships
// no compressed corpus fixtures.
func TestLoadPlainMembers(t *testing.T) {
	fsys := fstest.MapFS{
		"corpus/alpha.txt": &fstest.MapFile{Data: []byte("alpha contents")},
		"corpus/beta.txt":  &fstest.MapFile{Data: []byte("beta contents")},
		"other/gamma.txt":  &fstest.MapFile{Data: []byte("not matched")},
	}

	members, err := Load(fsys, "corpus/*.txt")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].Name != "corpus/alpha.txt" || string(members[0].Data) != "alpha contents" {
		t.Fatalf("unexpected first member: %+v", members[0])
	}
	if members[1].Name != "corpus/beta.txt" || string(members[1].Data) != "beta contents" {
		t.Fatalf("unexpected second member: %+v", members[1])
	}
}

func TestLoadEmptyMatchReturnsNoMembers(t *testing.T) {
	fsys := fstest.MapFS{"corpus/alpha.txt": &fstest.MapFile{Data: []byte("x")}}
	members, err := Load(fsys, "nothing/**/*.bin")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no members, got %d", len(members))
	}
}

func TestTrimCompressedSuffix(t *testing.T) {
	cases := map[string]string{
		"a/b.txt":     "a/b.txt",
		"a/b.txt.xz":  "a/b.txt",
		"a/b.txt.zst": "a/b.txt",
	}
	for in, want := range cases {
		if got := trimCompressedSuffix(in); got != want {
			t.Errorf("trimCompressedSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}
