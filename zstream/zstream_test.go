package zstream

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, format Format, level int, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, format, level)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()), format)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
	return buf.Bytes()
}

func TestZlibRoundTrip(t *testing.T) {
	roundTrip(t, Zlib, 6, []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)))
}

func TestGzipRoundTrip(t *testing.T) {
	roundTrip(t, Gzip, 6, []byte(strings.Repeat("abcabcabcabc ", 500)))
}

func TestRawRoundTrip(t *testing.T) {
	roundTrip(t, Raw, 1, []byte("no container framing at all"))
}

func TestEmptyGzipRoundTrip(t *testing.T) {
	roundTrip(t, Gzip, 1, nil)
}

func TestAutodetectPicksFormatFromFirstByte(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, Gzip, 3)
	w.Write([]byte("detect me"))
	w.Close()

	r := NewReader(bytes.NewReader(buf.Bytes()), Auto)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "detect me" {
		t.Fatalf("got %q", got)
	}
	if r.Format() != Gzip {
		t.Fatalf("expected autodetect to report Gzip, got %v", r.Format())
	}
}

func TestReservedFirstByteIsUnsupported(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x06, 0, 0, 0}), Auto)
	_, err := io.ReadAll(r)
	if err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestZlibChecksumMismatchIsDetected(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, Zlib, 6)
	w.Write([]byte("checksum me"))
	w.Close()

	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xff // flip every bit of the Adler-32 trailer's last byte

	r := NewReader(bytes.NewReader(corrupt), Zlib)
	_, err := io.ReadAll(r)
	if err != ErrChecksum {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestGzipChecksumMismatchIsDetected(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, Gzip, 6)
	w.Write([]byte("checksum me too"))
	w.Close()

	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xff // flip every bit of the little-endian ISIZE trailer's last byte

	r := NewReader(bytes.NewReader(corrupt), Gzip)
	_, err := io.ReadAll(r)
	if err != ErrChecksum {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestTruncatedStreamIsDetected(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, Zlib, 6)
	w.Write([]byte(strings.Repeat("x", 4096)))
	w.Close()

	truncated := buf.Bytes()[:len(buf.Bytes())/2]
	r := NewReader(bytes.NewReader(truncated), Zlib)
	_, err := io.ReadAll(r)
	if err == nil {
		t.Fatal("expected an error decoding a truncated stream")
	}
}

func TestZlibDictionaryRoundTrip(t *testing.T) {
	dict := []byte("a shared preset dictionary used by both sides")
	payload := []byte("a shared preset dictionary used by both sides, then some new text")

	var buf bytes.Buffer
	w, _ := NewWriter(&buf, Zlib, 6)
	if err := w.SetDictionary(dict); err != nil {
		t.Fatalf("SetDictionary: %v", err)
	}
	w.Write(payload)
	w.Close()

	r := NewReader(bytes.NewReader(buf.Bytes()), Zlib)
	if err := r.SetDictionary(dict); err != nil {
		t.Fatalf("SetDictionary: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("dictionary round trip mismatch")
	}
}

func TestZlibMissingDictionaryIsReported(t *testing.T) {
	dict := []byte("only the writer knows this dictionary")
	var buf bytes.Buffer
	w, _ := NewWriter(&buf, Zlib, 6)
	w.SetDictionary(dict)
	w.Write([]byte("payload needing that dictionary"))
	w.Close()

	r := NewReader(bytes.NewReader(buf.Bytes()), Zlib)
	_, err := io.ReadAll(r)
	if err != ErrMissingDict {
		t.Fatalf("expected ErrMissingDict, got %v", err)
	}
}
