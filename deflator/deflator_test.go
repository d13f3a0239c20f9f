package deflator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Jpn666/jdeflate/inflator"
)

// deflateAll drives z to completion against data, returning the
// full compressed stream. It exercises the TgtExhausted suspend path by
// using a deliberately small target buffer.
func deflateAll(t *testing.T, z *Deflator, data []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	scratch := make([]byte, 13) // odd size to cross token/bit boundaries oddly
	z.SetSource(data)
	for {
		z.SetTarget(scratch)
		res, err := z.Deflate(Finish)
		if err != nil {
			t.Fatalf("Deflate: %v", err)
		}
		out.Write(scratch[:z.TargetProduced()])
		switch res {
		case OK:
			return out.Bytes()
		case TgtExhausted:
			continue
		case SrcExhausted:
			t.Fatalf("unexpected SrcExhausted under Finish")
		}
	}
}

func inflateAll(t *testing.T, compressed []byte) []byte {
	t.Helper()
	z := inflator.New()
	var out bytes.Buffer
	scratch := make([]byte, 17)
	z.SetSource(compressed)
	for {
		z.SetTarget(scratch)
		res, err := z.Inflate(true)
		if err != nil {
			t.Fatalf("Inflate: %v", err)
		}
		out.Write(scratch[:z.TargetProduced()])
		if res == inflator.OK {
			return out.Bytes()
		}
	}
}

func roundTrip(t *testing.T, level int, data []byte) {
	t.Helper()
	z, err := New(level)
	if err != nil {
		t.Fatalf("New(%d): %v", level, err)
	}
	compressed := deflateAll(t, z, data)
	got := inflateAll(t, compressed)
	if !bytes.Equal(got, data) {
		t.Fatalf("level %d: round trip mismatch, got %d bytes want %d", level, len(got), len(data))
	}
}

var corpus = [][]byte{
	nil,
	[]byte("x"),
	[]byte("hello, deflate"),
	[]byte(strings.Repeat("abcabcabcabcabc", 500)),
	[]byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 300)),
	bytes.Repeat([]byte{0}, 70000), // forces more than one stored-sized block at level 0
}

func TestRoundTripAllLevels(t *testing.T) {
	for level := 0; level <= maxLevel; level++ {
		for _, data := range corpus {
			roundTrip(t, level, data)
		}
	}
}

func TestLevelOutOfRangeIsError(t *testing.T) {
	if _, err := New(-1); err != ErrLevel {
		t.Fatalf("New(-1) err = %v, want ErrLevel", err)
	}
	if _, err := New(10); err != ErrLevel {
		t.Fatalf("New(10) err = %v, want ErrLevel", err)
	}
}

// TestByteAtATimeStreaming feeds the source one byte at a time and drains
// the target one byte at a time, checking the engine's suspend/resume
// bookkeeping never loses or duplicates a bit under maximal fragmentation.
func TestByteAtATimeStreaming(t *testing.T) {
	data := []byte(strings.Repeat("streamed one byte at a time ", 40))
	z, err := New(6)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var compressed bytes.Buffer
	out := make([]byte, 1)
	for i := 0; i < len(data); i++ {
		z.SetSource(data[i : i+1])
		for {
			z.SetTarget(out)
			res, err := z.Deflate(NoFlush)
			if err != nil {
				t.Fatalf("Deflate: %v", err)
			}
			compressed.Write(out[:z.TargetProduced()])
			if res == SrcExhausted {
				break
			}
		}
	}
	// Finish with no further source.
	z.SetSource(nil)
	for {
		z.SetTarget(out)
		res, err := z.Deflate(Finish)
		if err != nil {
			t.Fatalf("Deflate (finish): %v", err)
		}
		compressed.Write(out[:z.TargetProduced()])
		if res == OK {
			break
		}
	}

	got := inflateAll(t, compressed.Bytes())
	if !bytes.Equal(got, data) {
		t.Fatalf("byte-at-a-time round trip mismatch")
	}
}

// TestFlushByteAlignsWithoutEndingStream checks that a Flush call does not
// end the stream: more data can still be appended and finished afterward,
// and the whole stream decodes to both chunks. The flushed prefix is not
// decoded on its own here.
func TestFlushByteAlignsWithoutEndingStream(t *testing.T) {
	z, err := New(6)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var compressed bytes.Buffer
	out := make([]byte, 64)

	first := []byte("first chunk before a sync flush")
	z.SetSource(first)
	for {
		z.SetTarget(out)
		res, err := z.Deflate(Flush)
		if err != nil {
			t.Fatalf("Deflate (flush): %v", err)
		}
		compressed.Write(out[:z.TargetProduced()])
		if res != TgtExhausted {
			break
		}
	}

	second := []byte(" second chunk after the flush")
	z.SetSource(second)
	for {
		z.SetTarget(out)
		res, err := z.Deflate(Finish)
		if err != nil {
			t.Fatalf("Deflate (finish): %v", err)
		}
		compressed.Write(out[:z.TargetProduced()])
		if res == OK {
			break
		}
	}

	want := append(append([]byte{}, first...), second...)
	got := inflateAll(t, compressed.Bytes())
	if !bytes.Equal(got, want) {
		t.Fatalf("flush round trip mismatch: got %q want %q", got, want)
	}
}

// TestDictionaryPreseedsMatches checks that a preset dictionary allows the
// encoder to reference bytes that never appear in the source itself, and
// that the inflator (given the same dictionary) reproduces the original.
func TestDictionaryPreseedsMatches(t *testing.T) {
	dict := []byte("a shared preset dictionary with some repeated filler filler filler")
	payload := []byte("a shared preset dictionary with some repeated filler filler filler, plus new text")

	z, err := New(9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := z.SetDictionary(dict); err != nil {
		t.Fatalf("SetDictionary: %v", err)
	}
	compressed := deflateAll(t, z, payload)

	zi := inflator.New()
	zi.SetDictionary(dict)
	var out bytes.Buffer
	scratch := make([]byte, 32)
	zi.SetSource(compressed)
	for {
		zi.SetTarget(scratch)
		res, err := zi.Inflate(true)
		if err != nil {
			t.Fatalf("Inflate: %v", err)
		}
		out.Write(scratch[:zi.TargetProduced()])
		if res == inflator.OK {
			break
		}
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Fatalf("dictionary round trip mismatch")
	}
}

// TestDictionaryAfterStartIsIncorrectUse mirrors the inflator's equivalent
// contract test: a dictionary set after encoding has started is rejected.
func TestDictionaryAfterStartIsIncorrectUse(t *testing.T) {
	z, err := New(6)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	z.SetSource([]byte("go"))
	z.SetTarget(make([]byte, 64))
	if _, err := z.Deflate(NoFlush); err != nil {
		t.Fatalf("Deflate: %v", err)
	}
	if err := z.SetDictionary([]byte("late")); err != ErrIncorrectUse {
		t.Fatalf("SetDictionary after start = %v, want ErrIncorrectUse", err)
	}
}

// TestEmptyFinishProducesValidEmptyStream covers Finish with only an empty
// source set, which must still produce a decodable (empty) DEFLATE stream.
func TestEmptyFinishProducesValidEmptyStream(t *testing.T) {
	z, err := New(6)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	z.SetSource(nil)
	compressed := deflateAll(t, z, nil)
	got := inflateAll(t, compressed)
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %d bytes", len(got))
	}
}
