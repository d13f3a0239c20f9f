// Package zstream layers the ZLIB (RFC 1950) and GZIP (RFC 1952)
// container formats — and optionally raw DEFLATE with no container at
// all — over the inflator/deflator engines, exposing the result as a
// plain io.Reader / io.Writer. Unlike the low-level engines, a
// zstream.Reader or zstream.Writer blocks in the usual io.Reader/Writer
// sense; it drives the suspendable engine underneath in a tight internal
// loop so the caller never sees a partial-progress result.
package zstream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"io"

	"github.com/Jpn666/jdeflate/deflator"
	"github.com/Jpn666/jdeflate/inflator"
)

// Format selects the container framing. Auto is only meaningful for a
// Reader, which peeks the first byte to tell DEFLATE, ZLIB and GZIP
// apart.
type Format int

const (
	Auto Format = iota
	Raw
	Zlib
	Gzip
)

var (
	ErrBadHeader      = errors.New("zstream: malformed container header")
	ErrUnsupported    = errors.New("zstream: reserved or unrecognized container byte")
	ErrChecksum       = errors.New("zstream: trailer checksum mismatch")
	ErrTruncated      = errors.New("zstream: input ended before the stream's final block")
	ErrMissingDict    = errors.New("zstream: stream requires a preset dictionary that was not supplied")
	ErrIncorrectDict  = errors.New("zstream: supplied dictionary's checksum does not match the header")
	ErrIncorrectUse   = errors.New("zstream: call made out of the required order")
)

// DictResolver looks up a preset dictionary by the Adler-32 id carried in
// a ZLIB header's FDICT field, e.g. internal/dictstore.Store.Lookup.
type DictResolver func(id uint32) ([]byte, error)

const bufSize = 16 * 1024

// Reader decompresses a ZLIB, GZIP, or raw DEFLATE stream.
type Reader struct {
	src     *bufio.Reader
	want    Format
	actual  Format
	inf     *inflator.Inflator
	dict    []byte
	resolve DictResolver
	needDictID uint32

	headerDone bool
	bodyDone   bool
	srcEOF     bool

	sum     hash.Hash32
	isize   uint32
	scratch [bufSize]byte
	lastFillN int
	// pending holds bytes already pulled out of src but not yet consumed
	// by the inflator — the final fill can overrun into the trailer, so
	// whatever it didn't use has to be replayed to readTrailer instead of
	// re-read from src (which no longer has it).
	pending []byte

	err error
}

// NewReader wraps src. want constrains the accepted container; Auto
// autodetects among Raw/Zlib/Gzip from the first byte.
func NewReader(src io.Reader, want Format) *Reader {
	return &Reader{
		src:  bufio.NewReaderSize(src, bufSize),
		want: want,
		inf:  inflator.New(),
	}
}

// SetDictionary supplies the preset dictionary directly. Must be called
// before the first Read.
func (r *Reader) SetDictionary(dict []byte) error {
	if r.headerDone {
		return ErrIncorrectUse
	}
	r.dict = dict
	return nil
}

// SetDictResolver registers a fallback used when a ZLIB header's FDICT
// bit is set and no dictionary was supplied directly (e.g.
// dictstore.Store.Lookup).
func (r *Reader) SetDictResolver(resolve DictResolver) {
	r.resolve = resolve
}

// Format returns the container format detected (or requested) once the
// header has been parsed; before that it is Auto.
func (r *Reader) Format() Format { return r.actual }

func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if !r.headerDone {
		if err := r.readHeader(); err != nil {
			r.err = err
			return 0, err
		}
		r.headerDone = true
	}
	if r.bodyDone {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	r.inf.SetTarget(p)
	for {
		res, err := r.inf.Inflate(r.srcEOF)
		produced := r.inf.TargetProduced()
		if produced > 0 && r.sum != nil {
			r.sum.Write(p[:produced])
			r.isize += uint32(produced)
		}
		switch res {
		case inflator.OK:
			r.stashLeftover()
			if err := r.readTrailer(); err != nil {
				r.err = err
				return produced, err
			}
			r.bodyDone = true
			if produced > 0 {
				return produced, nil
			}
			return 0, io.EOF
		case inflator.TgtExhausted:
			return produced, nil
		case inflator.SrcExhausted:
			if produced > 0 {
				return produced, nil
			}
			if !r.fill() {
				r.err = ErrTruncated
				return 0, r.err
			}
			r.inf.SetTarget(p[produced:])
			continue
		case inflator.ErrorResult:
			r.err = err
			return produced, err
		}
	}
}

// fill refills the inflator's source from the underlying bufio.Reader.
// Returns false once the underlying reader is exhausted.
func (r *Reader) fill() bool {
	if r.srcEOF {
		return false
	}
	n, err := r.src.Read(r.scratch[:])
	if n > 0 {
		r.lastFillN = n
		r.inf.SetSource(r.scratch[:n])
	}
	if err != nil {
		r.srcEOF = true
		if n == 0 {
			return false
		}
	}
	return true
}

// stashLeftover preserves whatever the most recent fill handed the
// inflator but that the inflator did not end up needing to finish the
// final block, so a subsequent readTrailer can still see those bytes.
func (r *Reader) stashLeftover() {
	consumed := r.inf.SourceConsumed()
	if consumed < r.lastFillN {
		leftover := make([]byte, r.lastFillN-consumed)
		copy(leftover, r.scratch[consumed:r.lastFillN])
		r.pending = append(r.pending, leftover...)
	}
	r.lastFillN = 0
}

func (r *Reader) readByte() (byte, error) {
	if len(r.pending) > 0 {
		b := r.pending[0]
		r.pending = r.pending[1:]
		return b, nil
	}
	return r.src.ReadByte()
}

func (r *Reader) readN(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	if len(r.pending) > 0 {
		take := len(r.pending)
		if take > n {
			take = n
		}
		out = append(out, r.pending[:take]...)
		r.pending = r.pending[take:]
	}
	if len(out) < n {
		rest := make([]byte, n-len(out))
		if _, err := io.ReadFull(r.src, rest); err != nil {
			return nil, err
		}
		out = append(out, rest...)
	}
	return out, nil
}

func (r *Reader) readHeader() error {
	first, err := r.src.Peek(1)
	if err != nil {
		return err
	}
	b0 := first[0]

	switch r.want {
	case Gzip:
		r.actual = Gzip
	case Zlib:
		r.actual = Zlib
	case Raw:
		r.actual = Raw
	default:
		switch {
		case b0 == 0x1f:
			r.actual = Gzip
		case b0&0x0f == 0x08:
			r.actual = Zlib
		case b0&0x0f == 0x06 || b0&0x0f == 0x07:
			return ErrUnsupported
		default:
			r.actual = Raw
		}
	}

	switch r.actual {
	case Gzip:
		return r.readGzipHeader()
	case Zlib:
		return r.readZlibHeader()
	default:
		return nil
	}
}

func (r *Reader) readGzipHeader() error {
	hdr, err := r.readN(10)
	if err != nil {
		return ErrBadHeader
	}
	if hdr[0] != 0x1f || hdr[1] != 0x8b || hdr[2] != 0x08 {
		return ErrBadHeader
	}
	flg := hdr[3]

	if flg&0x04 != 0 { // FEXTRA
		xlenB, err := r.readN(2)
		if err != nil {
			return ErrBadHeader
		}
		xlen := int(binary.LittleEndian.Uint16(xlenB))
		if _, err := r.readN(xlen); err != nil {
			return ErrBadHeader
		}
	}
	if flg&0x08 != 0 { // FNAME
		if err := r.skipCString(); err != nil {
			return ErrBadHeader
		}
	}
	if flg&0x10 != 0 { // FCOMMENT
		if err := r.skipCString(); err != nil {
			return ErrBadHeader
		}
	}
	if flg&0x02 != 0 { // FHCRC
		if _, err := r.readN(2); err != nil {
			return ErrBadHeader
		}
	}
	r.sum = crc32.NewIEEE()
	return nil
}

func (r *Reader) skipCString() error {
	for {
		b, err := r.readByte()
		if err != nil {
			return err
		}
		if b == 0 {
			return nil
		}
	}
}

func (r *Reader) readZlibHeader() error {
	hdr, err := r.readN(2)
	if err != nil {
		return ErrBadHeader
	}
	cmf, flg := hdr[0], hdr[1]
	if cmf&0x0f != 8 {
		return ErrBadHeader
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return ErrBadHeader
	}
	if flg&0x20 != 0 { // FDICT
		idB, err := r.readN(4)
		if err != nil {
			return ErrBadHeader
		}
		id := binary.BigEndian.Uint32(idB)
		r.needDictID = id
		if r.dict == nil && r.resolve != nil {
			dict, rerr := r.resolve(id)
			if rerr == nil {
				r.dict = dict
			}
		}
		if r.dict == nil {
			return ErrMissingDict
		}
		if adler32.Checksum(r.dict) != id {
			return ErrIncorrectDict
		}
		r.inf.SetDictionary(r.dict)
	}
	r.sum = adler32.New()
	return nil
}

func (r *Reader) readTrailer() error {
	switch r.actual {
	case Gzip:
		trailer, err := r.readN(8)
		if err != nil {
			return ErrTruncated
		}
		wantCRC := binary.LittleEndian.Uint32(trailer[0:4])
		wantSize := binary.LittleEndian.Uint32(trailer[4:8])
		if r.sum.Sum32() != wantCRC || r.isize != wantSize {
			return ErrChecksum
		}
	case Zlib:
		trailer, err := r.readN(4)
		if err != nil {
			return ErrTruncated
		}
		wantAdler := binary.BigEndian.Uint32(trailer)
		if r.sum.Sum32() != wantAdler {
			return ErrChecksum
		}
	}
	return nil
}

// Writer compresses plaintext written to it into a ZLIB, GZIP, or raw
// DEFLATE stream on dst.
type Writer struct {
	dst    io.Writer
	format Format
	def    *deflator.Deflator
	sum    hash.Hash32
	isize  uint32

	headerWritten bool
	closed        bool
	scratch       [bufSize]byte
	dictForHeader []byte

	err error
}

// NewWriter returns a Writer at the given level (0-9) writing a stream in
// format (Raw, Zlib, or Gzip — Auto is invalid here).
func NewWriter(dst io.Writer, format Format, level int) (*Writer, error) {
	if format == Auto {
		return nil, ErrIncorrectUse
	}
	def, err := deflator.New(level)
	if err != nil {
		return nil, err
	}
	return &Writer{dst: dst, format: format, def: def}, nil
}

// SetDictionary preseeds the compressor's match window. For ZLIB output
// this also sets the header's FDICT id to the dictionary's Adler-32. Must
// be called before the first Write.
func (w *Writer) SetDictionary(dict []byte) error {
	if w.headerWritten {
		return ErrIncorrectUse
	}
	if err := w.def.SetDictionary(dict); err != nil {
		return err
	}
	w.dictForHeader = dict
	return nil
}

func (w *Writer) writeHeader() error {
	switch w.format {
	case Gzip:
		hdr := []byte{0x1f, 0x8b, 0x08, 0x00, 0, 0, 0, 0, 0, 0xff}
		if _, err := w.dst.Write(hdr); err != nil {
			return err
		}
		w.sum = crc32.NewIEEE()
	case Zlib:
		cmf := byte(0x78) // CM=8, CINFO=7 (32K window)
		flg := byte(0x80) // FLEVEL=2 (default) for every level
		if len(w.dictForHeader) > 0 {
			flg |= 0x20 // FDICT
		}
		// FCHECK (bits 0-4, currently 0) is chosen so the 16-bit header is
		// a multiple of 31: 78 9C without a dictionary.
		if rem := (int(cmf)*256 + int(flg)) % 31; rem != 0 {
			flg += byte(31 - rem)
		}
		if _, err := w.dst.Write([]byte{cmf, flg}); err != nil {
			return err
		}
		if len(w.dictForHeader) > 0 {
			var id [4]byte
			binary.BigEndian.PutUint32(id[:], adler32.Checksum(w.dictForHeader))
			if _, err := w.dst.Write(id[:]); err != nil {
				return err
			}
		}
		w.sum = adler32.New()
	}
	w.headerWritten = true
	return nil
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if !w.headerWritten {
		if err := w.writeHeader(); err != nil {
			w.err = err
			return 0, err
		}
	}
	if w.sum != nil {
		w.sum.Write(p)
		w.isize += uint32(len(p))
	}

	w.def.SetSource(p)
	for {
		w.def.SetTarget(w.scratch[:])
		res, err := w.def.Deflate(deflator.NoFlush)
		if n := w.def.TargetProduced(); n > 0 {
			if _, werr := w.dst.Write(w.scratch[:n]); werr != nil {
				w.err = werr
				return 0, werr
			}
		}
		switch res {
		case deflator.SrcExhausted, deflator.OK:
			return len(p), nil
		case deflator.TgtExhausted:
			continue
		case deflator.ErrorResult:
			w.err = err
			return 0, err
		}
	}
}

// Close finalizes the DEFLATE stream and writes the container trailer.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}
	if !w.headerWritten {
		if err := w.writeHeader(); err != nil {
			w.err = err
			return err
		}
	}

	w.def.SetSource(nil)
	for {
		w.def.SetTarget(w.scratch[:])
		res, err := w.def.Deflate(deflator.Finish)
		if n := w.def.TargetProduced(); n > 0 {
			if _, werr := w.dst.Write(w.scratch[:n]); werr != nil {
				w.err = werr
				return werr
			}
		}
		switch res {
		case deflator.OK:
			return w.writeTrailer()
		case deflator.TgtExhausted:
			continue
		case deflator.ErrorResult:
			w.err = err
			return err
		case deflator.SrcExhausted:
			continue
		}
	}
}

func (w *Writer) writeTrailer() error {
	switch w.format {
	case Gzip:
		var trailer [8]byte
		binary.LittleEndian.PutUint32(trailer[0:4], w.sum.Sum32())
		binary.LittleEndian.PutUint32(trailer[4:8], w.isize)
		_, err := w.dst.Write(trailer[:])
		return err
	case Zlib:
		var trailer [4]byte
		binary.BigEndian.PutUint32(trailer[:], w.sum.Sum32())
		_, err := w.dst.Write(trailer[:])
		return err
	}
	return nil
}
