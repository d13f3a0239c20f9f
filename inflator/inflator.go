// Package inflator implements a streaming DEFLATE (RFC 1951) decoder.
//
// An [Inflator] is a re-entrant coroutine: every byte of input consumed or
// output produced may be the last one before a call to [Inflator.Inflate]
// returns [SrcExhausted] or [TgtExhausted]. The caller supplies a new
// source and/or target buffer with [Inflator.SetSource] /
// [Inflator.SetTarget] and calls Inflate again; decoding resumes at
// exactly the sub-state it suspended at.
package inflator

import "github.com/Jpn666/jdeflate/internal/rfc1951"

// Result is the outcome of a single Inflate call.
type Result int

const (
	OK Result = iota
	SrcExhausted
	TgtExhausted
	ErrorResult
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case SrcExhausted:
		return "SRC_EXHAUSTED"
	case TgtExhausted:
		return "TGT_EXHAUSTED"
	case ErrorResult:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Top level block states.
const (
	stHeader  = 0
	stStored  = 1
	stFixed   = 2
	stDynamic = 3
	stInvalid = 4
	stDecode  = 5
	stDone    = 6 // terminal: either clean OK or an error is set
)

type stepResult int

const (
	stepDone stepResult = iota
	stepBlockDone
	stepNeedSrc
	stepNeedTgt
	stepFatal
)

// Inflator decodes a raw DEFLATE bitstream. The zero value is not usable;
// construct one with [New].
type Inflator struct {
	state    int
	substate int
	err      error
	final    bool
	started  bool

	source []byte
	spos   int
	srcCon int

	target []byte
	tpos   int
	tgtProd int

	bitbuf uint64
	bitcnt uint

	window  [rfc1951.WindowSize]byte
	wpos    int
	wndwcnt int

	blockFinal bool

	// fixed tables, built once lazily.
	fixedLit, fixedDist *huffmanTable

	// dynamic-block parsing state (spec.md section 4.1 states 3.0..3.4)
	nlit, ndist, nclen int
	pcIdx              int
	pcLengths          [rfc1951.NumPCodes]int
	pcTable            *huffmanTable
	codeLengths        [rfc1951.NumLitCodes + rfc1951.NumDistCodes]int
	clIdx              int
	prevCodeLen        int
	pendingRepSym      int // -1 when none pending

	litTable, distTable *huffmanTable

	// literal/length/distance decode state (state 5 sub-states)
	ss5               int
	pendingLiteral    int // -1 when none pending
	pendingLengthBase uint32
	pendingLengthExtr uint
	pendingLength     int
	pendingDistBase   uint32
	pendingDistExtr   uint
	copyDist          int
	copyRemaining     int

	// stored-block state
	storedGot       int
	storedHdr       [4]byte
	storedRemaining int
}

// New creates a ready-to-use Inflator.
func New() *Inflator {
	z := &Inflator{}
	z.reset()
	return z
}

// Reset returns the engine to its post-New state, preserving the window
// allocation but discarding all decode progress and any error.
func (z *Inflator) Reset() {
	fixedLit, fixedDist := z.fixedLit, z.fixedDist
	window := z.window
	*z = Inflator{}
	z.fixedLit, z.fixedDist = fixedLit, fixedDist
	z.window = window
	z.reset()
}

func (z *Inflator) reset() {
	z.state = stHeader
	z.pendingRepSym = -1
	z.pendingLiteral = -1
	if z.fixedLit == nil {
		z.fixedLit, _ = buildTable(rfc1951.FixedLitLengths[:], 10, enoughL, litLeaf)
		z.fixedDist, _ = buildTable(rfc1951.FixedDistLengths[:], 8, enoughD, distLeaf)
	}
}

const (
	lRootBits = 10
	dRootBits = 8
	cRootBits = rfc1951.PCodeLen // 7: the precode alphabet never needs a subtable
	enoughL   = 1332
	enoughD   = 400
)

// Err returns the error that moved the engine to its terminal state, or
// nil if it has not errored.
func (z *Inflator) Err() error { return z.err }

// SetSource supplies the next chunk of compressed input. It must not be
// called again once a previous Inflate call was told this was the final
// chunk.
func (z *Inflator) SetSource(p []byte) {
	if z.final {
		z.fail(ErrIncorrectUse)
		return
	}
	z.source = p
	z.spos = 0
	z.srcCon = 0
}

// SetTarget supplies the next output buffer to decode into.
func (z *Inflator) SetTarget(p []byte) {
	z.target = p
	z.tpos = 0
	z.tgtProd = 0
}

// SetDictionary preseeds the sliding window with a preset dictionary. It
// is only valid before the first Inflate call after New/Reset, and
// silently keeps only the last 32768 bytes of dict.
func (z *Inflator) SetDictionary(dict []byte) {
	if z.started {
		z.fail(ErrIncorrectUse)
		return
	}
	if len(dict) > rfc1951.WindowSize {
		dict = dict[len(dict)-rfc1951.WindowSize:]
	}
	copy(z.window[:], dict)
	z.wndwcnt = len(dict)
	z.wpos = len(dict) % rfc1951.WindowSize
}

// SourceConsumed reports the number of source bytes consumed since the
// last SetSource call.
func (z *Inflator) SourceConsumed() int { return z.srcCon }

// TargetProduced reports the number of target bytes produced since the
// last SetTarget call.
func (z *Inflator) TargetProduced() int { return z.tgtProd }

func (z *Inflator) fail(err error) {
	z.err = err
	z.state = stDone
}

// Inflate advances decoding as far as the current source/target buffers
// allow. final declares that the current source buffer is the last chunk
// of compressed data that will ever be supplied.
func (z *Inflator) Inflate(final bool) (Result, error) {
	if z.err != nil {
		return ErrorResult, z.err
	}
	if final {
		z.final = true
	}
	z.started = true

	for {
		if z.state == stDone {
			if z.err != nil {
				return ErrorResult, z.err
			}
			return OK, nil
		}

		var sr stepResult
		switch z.state {
		case stHeader:
			sr = z.stepHeader()
		case stFixed:
			z.litTable, z.distTable = z.fixedLit, z.fixedDist
			z.state = stDecode
			z.ss5 = 0
			continue
		case stStored:
			sr = z.stepStored()
		case stDynamic:
			sr = z.stepDynamic()
		case stDecode:
			sr = z.stepDecode()
		default:
			z.fail(ErrBadState)
			return ErrorResult, z.err
		}

		switch sr {
		case stepDone:
			continue
		case stepBlockDone:
			z.state = stHeader
			z.substate = 0
			if z.blockFinal {
				z.state = stDone
			}
			continue
		case stepNeedSrc:
			if z.final {
				z.fail(ErrInputEnd)
				return ErrorResult, z.err
			}
			return SrcExhausted, nil
		case stepNeedTgt:
			return TgtExhausted, nil
		case stepFatal:
			return ErrorResult, z.err
		}
	}
}

// --- bit-level primitives -------------------------------------------------

func (z *Inflator) refillByte() bool {
	if z.spos >= len(z.source) {
		return false
	}
	b := z.source[z.spos]
	z.spos++
	z.srcCon++
	z.bitbuf |= uint64(b) << z.bitcnt
	z.bitcnt += 8
	return true
}

func (z *Inflator) ensureBits(n uint) bool {
	for z.bitcnt < n {
		if !z.refillByte() {
			return false
		}
	}
	return true
}

func (z *Inflator) dropBits(n uint) {
	z.bitbuf >>= n
	z.bitcnt -= n
}

// extraBits consumes n low bits as an unsigned value; ok is false if not
// enough bits are currently buffered (the caller must retry later without
// having lost any state).
func (z *Inflator) extraBits(n uint) (uint32, bool) {
	if n == 0 {
		return 0, true
	}
	if !z.ensureBits(n) {
		return 0, false
	}
	v := uint32(z.bitbuf) & (uint32(1)<<n - 1)
	z.dropBits(n)
	return v, true
}

// huffEntry decodes the next symbol from t. It never partially consumes
// bits on failure.
func (z *Inflator) huffEntry(t *huffmanTable) (entry, bool) {
	for {
		e, ok := t.decode(z.bitbuf, z.bitcnt)
		if ok {
			z.dropBits(e.length())
			return e, true
		}
		if !z.refillByte() {
			return 0, false
		}
	}
}

// --- output / window -------------------------------------------------

func (z *Inflator) windowPush(b byte) {
	z.window[z.wpos] = b
	z.wpos = (z.wpos + 1) & rfc1951.WindowMask
	if z.wndwcnt < rfc1951.WindowSize {
		z.wndwcnt++
	}
}

func (z *Inflator) emitByte(b byte) bool {
	if z.tpos >= len(z.target) {
		return false
	}
	z.target[z.tpos] = b
	z.tpos++
	z.tgtProd++
	z.windowPush(b)
	return true
}

func (z *Inflator) windowByteAt(dist int) byte {
	idx := z.wpos - dist
	if idx < 0 {
		idx += rfc1951.WindowSize
	}
	return z.window[idx]
}

// --- state 0: block header -------------------------------------------------

func (z *Inflator) stepHeader() stepResult {
	if !z.ensureBits(3) {
		return stepNeedSrc
	}
	bfinal := z.bitbuf&1 == 1
	btype := (z.bitbuf >> 1) & 3
	z.dropBits(3)
	z.blockFinal = bfinal
	switch btype {
	case 0:
		z.state = stStored
		z.bitbuf, z.bitcnt = 0, 0 // discard the <8 bits of intra-byte padding
		z.storedGot = 0
	case 1:
		z.state = stFixed
	case 2:
		z.state = stDynamic
		z.substate = 0
		z.pcIdx = 0
	default:
		z.err = ErrBadBlock
		z.state = stDone
		return stepFatal
	}
	return stepDone
}
