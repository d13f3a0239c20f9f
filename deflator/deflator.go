// Package deflator implements a suspendable RFC 1951 DEFLATE encoder. Like
// its inflator counterpart, a Deflator never blocks: every call to Deflate
// consumes as much of the current source and target buffers as it can and
// returns a Result telling the caller which buffer needs replacing.
package deflator

import (
	"github.com/Jpn666/jdeflate/internal/rfc1951"
)

// Result reports why a Deflate call returned control to the caller.
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
		return "SrcExhausted"
	case TgtExhausted:
		return "TgtExhausted"
	case ErrorResult:
		return "ErrorResult"
	default:
		return "Result(?)"
	}
}

// FlushMode selects how eagerly Deflate should push bits out to the target.
type FlushMode int

const (
	// NoFlush lets the encoder buffer input across calls and choose its
	// own block boundaries.
	NoFlush FlushMode = iota
	// Flush forces everything buffered so far out to a byte boundary via
	// an empty stored block, without ending the stream.
	Flush
	// Finish marks the final block (BFINAL=1) and closes the stream.
	Finish
)

const (
	dBuild = iota // choosing/building the next block's tokens (CPU only)
	dEmit         // draining the current block's bits to the target
	dDone         // final block fully flushed
)

const (
	eHeader = iota
	eStoredAlign
	eStoredLen
	eStoredData
	eDynCounts
	eDynPCLens
	eDynRLE
	eTokens
	eEOB
	eBlockDone
)

const maxLevel = 9

// Deflator is a one-shot, resettable DEFLATE encoder. The zero value is not
// ready to use; call New.
type Deflator struct {
	level int
	err   error

	started    bool
	final      bool
	flush      FlushMode
	flushDone  bool

	buf     []byte
	pos     int
	dictLen int
	m       *matcher

	target  []byte
	tpos    int
	tgtProd int
	srcCon  int

	bitAcc uint64
	bitCnt uint
	queued bool

	state  int
	estate int

	blockTokens     []token
	blockStoredOnly bool
	blockUseFixed   bool
	blockIsFinal    bool
	treesPlanned    bool

	storedDataPos int
	storedDataEnd int
	storedIdx     int
	storedHdr     [4]byte

	litFreq  [rfc1951.NumLitCodes]int
	distFreq [rfc1951.NumDistCodes]int
	litTable codeTable
	distTable codeTable

	rle     []rleItem
	pcFreq  [rfc1951.NumPCodes]int
	pcTable codeTable
	hclen   int
	dynIdx  int

	tokenIdx int
	tokPhase int
}

type rleItem struct {
	sym   int
	extra uint32
	bits  uint
}

// New returns a Deflator at the given compression level (0-9, 0 meaning
// stored blocks only).
func New(level int) (*Deflator, error) {
	if level < 0 || level > maxLevel {
		return nil, ErrLevel
	}
	z := &Deflator{}
	z.level = level
	z.m = newMatcher()
	return z, nil
}

// Reset returns the Deflator to its just-constructed state at the given
// level, discarding any buffered input and in-flight block.
func (z *Deflator) Reset(level int) error {
	if level < 0 || level > maxLevel {
		return ErrLevel
	}
	*z = Deflator{level: level, m: newMatcher()}
	return nil
}

func (z *Deflator) Err() error { return z.err }

func (z *Deflator) fail(err error) (Result, error) {
	z.err = err
	return ErrorResult, err
}

// SetDictionary preseeds the match window with dict. Must be called before
// the first call to Deflate.
func (z *Deflator) SetDictionary(dict []byte) error {
	if z.started {
		return ErrIncorrectUse
	}
	if len(dict) > rfc1951.WindowSize {
		dict = dict[len(dict)-rfc1951.WindowSize:]
	}
	z.buf = append(z.buf, dict...)
	z.dictLen = len(dict)
	z.pos = z.dictLen
	for i := 0; i+4 <= z.dictLen; i++ {
		z.m.insert(z.buf, i)
	}
	return nil
}

// SetSource appends more input to encode. It may be called again only
// after the previous chunk has been fully consumed (reported via a
// non-SrcExhausted-pending state), mirroring the inflator's contract.
func (z *Deflator) SetSource(p []byte) {
	z.buf = append(z.buf, p...)
	z.srcCon = len(p)
	z.flushDone = false
}

func (z *Deflator) SetTarget(p []byte) {
	z.target = p
	z.tpos = 0
	z.tgtProd = 0
}

func (z *Deflator) SourceConsumed() int { return z.srcCon }
func (z *Deflator) TargetProduced() int { return z.tgtProd }

func (z *Deflator) bufEnd() int { return len(z.buf) }

// Deflate drives the encoder. flush is sticky for the duration of the
// logical operation it starts (callers pass the same value across a run of
// TgtExhausted suspensions, same convention as zlib's deflate()).
func (z *Deflator) Deflate(flush FlushMode) (Result, error) {
	if z.err != nil {
		return z.fail(z.err)
	}
	z.started = true
	z.flush = flush
	if flush == Finish {
		z.final = true
	}

	for {
		switch z.state {
		case dDone:
			return OK, nil

		case dBuild:
			res, done := z.stepBuild()
			if !done {
				return res, nil
			}
			z.state = dEmit

		case dEmit:
			sr := z.stepEmit()
			switch sr {
			case stepBlockDone:
				if z.blockIsFinal {
					z.state = dDone
				} else {
					z.state = dBuild
				}
			case stepNeedTgt:
				return TgtExhausted, nil
			case stepFatal:
				return z.fail(z.err)
			}
		}
	}
}

// stepBuild chooses the next block's content. It never suspends (no bits
// are written here), but it can decide there is nothing to do yet.
func (z *Deflator) stepBuild() (Result, bool) {
	limit := z.bufEnd()
	avail := limit - z.pos

	if avail == 0 {
		if z.final {
			z.buildEmptyBlock(true)
			return OK, true
		}
		if z.flush != NoFlush && !z.flushDone {
			z.flushDone = true
			z.buildEmptyBlock(false)
			return OK, true
		}
		return SrcExhausted, false
	}

	lookaheadNeeded := rfc1951.MaxMatchLen
	if !z.final && z.flush == NoFlush && avail < lookaheadNeeded {
		return SrcExhausted, false
	}

	z.buildBlock(limit)
	return OK, true
}

const maxTokensFast = 16384
const maxTokensSlow = 4096

func (z *Deflator) buildBlock(limit int) {
	if z.level == 0 {
		n := limit - z.pos
		if n > 65535 {
			n = 65535
		}
		z.blockStoredOnly = true
		z.blockTokens = nil
		z.storedDataPos = z.pos
		z.storedDataEnd = z.pos + n
		z.pos += n
	} else {
		z.blockStoredOnly = false
		maxTokens := maxTokensFast
		if z.level >= 6 {
			maxTokens = maxTokensSlow
		}
		toks, newPos := buildTokens(z.buf, z.pos, limit, z.m, z.level, maxTokens)
		z.blockTokens = toks
		z.pos = newPos
	}
	z.blockIsFinal = z.final && z.pos >= z.bufEnd()
	z.resetEmitState()
}

func (z *Deflator) buildEmptyBlock(final bool) {
	z.blockStoredOnly = true
	z.blockTokens = nil
	z.storedDataPos = z.pos
	z.storedDataEnd = z.pos
	z.blockIsFinal = final
	z.resetEmitState()
}

func (z *Deflator) resetEmitState() {
	z.estate = eHeader
	z.storedIdx = 0
	z.dynIdx = 0
	z.tokenIdx = 0
	z.tokPhase = 0
	z.treesPlanned = false
}

type stepResult int

const (
	stepBlockDone stepResult = iota
	stepNeedTgt
	stepFatal
)

func (z *Deflator) stepEmit() stepResult {
	for {
		switch z.estate {
		case eHeader:
			if !z.blockStoredOnly && !z.treesPlanned {
				z.planTrees()
				z.treesPlanned = true
			}
			btype := uint64(2)
			if z.blockStoredOnly {
				btype = 0
			} else if z.blockUsesFixed() {
				btype = 1
			}
			bfinal := uint64(0)
			if z.blockIsFinal {
				bfinal = 1
			}
			if !z.emitCode(bfinal|(btype<<1), 3) {
				return stepNeedTgt
			}
			switch {
			case z.blockStoredOnly:
				z.estate = eStoredAlign
			case z.blockUsesFixed():
				z.estate = eTokens
			default:
				z.estate = eDynCounts
			}

		case eStoredAlign:
			pad := (8 - (z.bitCnt % 8)) % 8
			if pad > 0 || z.queued {
				if !z.emitCode(0, pad) {
					return stepNeedTgt
				}
			}
			n := z.storedDataEnd - z.storedDataPos
			z.storedHdr[0] = byte(n)
			z.storedHdr[1] = byte(n >> 8)
			z.storedHdr[2] = byte(^n)
			z.storedHdr[3] = byte(^n >> 8)
			z.estate = eStoredLen

		case eStoredLen:
			for z.storedIdx < 4 {
				if !z.emitCode(uint64(z.storedHdr[z.storedIdx]), 8) {
					return stepNeedTgt
				}
				z.storedIdx++
			}
			z.estate = eStoredData

		case eStoredData:
			for z.storedDataPos < z.storedDataEnd {
				if !z.emitCode(uint64(z.buf[z.storedDataPos]), 8) {
					return stepNeedTgt
				}
				z.storedDataPos++
			}
			z.estate = eBlockDone

		case eDynCounts:
			hlit := len(z.litTable.lengths) - 257
			hdist := len(z.distTable.lengths) - 1
			v := uint64(hlit) | uint64(hdist)<<5 | uint64(z.hclen-4)<<10
			if !z.emitCode(v, 14) {
				return stepNeedTgt
			}
			z.estate = eDynPCLens

		case eDynPCLens:
			for z.dynIdx < z.hclen {
				sym := rfc1951.CodeOrder[z.dynIdx]
				if !z.emitCode(uint64(z.pcTable.lengths[sym]), 3) {
					return stepNeedTgt
				}
				z.dynIdx++
			}
			z.dynIdx = 0
			z.estate = eDynRLE

		case eDynRLE:
			for z.dynIdx < len(z.rle) {
				it := z.rle[z.dynIdx]
				if !z.emitSymbol(z.pcTable, it.sym, it.extra, it.bits) {
					return stepNeedTgt
				}
				z.dynIdx++
			}
			z.estate = eTokens

		case eTokens:
			if !z.drainTokens() {
				return stepNeedTgt
			}
			z.estate = eEOB

		case eEOB:
			if !z.emitSymbol(z.litTable, rfc1951.EndBlockSymbol, 0, 0) {
				return stepNeedTgt
			}
			z.estate = eBlockDone

		case eBlockDone:
			if z.blockIsFinal {
				// Pad the last partial byte so the stream ends whole.
				if pad := (8 - z.bitCnt%8) % 8; pad > 0 || z.queued {
					if !z.emitCode(0, pad) {
						return stepNeedTgt
					}
				}
			}
			return stepBlockDone
		}
	}
}

func (z *Deflator) blockUsesFixed() bool {
	return z.blockUseFixed
}

// planTrees computes this block's literal/length and distance frequency
// tables, picks fixed vs dynamic, and (for dynamic) precomputes the
// precode RLE sequence and its own Huffman table. All pure CPU, no bits
// written, so it never suspends.
func (z *Deflator) planTrees() {
	for i := range z.litFreq {
		z.litFreq[i] = 0
	}
	for i := range z.distFreq {
		z.distFreq[i] = 0
	}
	z.litFreq[rfc1951.EndBlockSymbol] = 1

	for _, t := range z.blockTokens {
		if t.length == 0 {
			z.litFreq[t.lit]++
			continue
		}
		z.litFreq[lengthSymFor[t.length]]++
		z.distFreq[distSymFor[t.dist]]++
	}
	hasDist := false
	for _, f := range z.distFreq {
		if f > 0 {
			hasDist = true
			break
		}
	}
	if !hasDist {
		z.distFreq[0] = 1
	}

	z.blockUseFixed = len(z.blockTokens) < 32
	if z.blockUseFixed {
		z.litTable = codeTable{lengths: rfc1951.FixedLitLengths[:], codes: canonicalCodes(rfc1951.FixedLitLengths[:])}
		z.distTable = codeTable{lengths: rfc1951.FixedDistLengths[:], codes: canonicalCodes(rfc1951.FixedDistLengths[:])}
		return
	}

	nlit := 286
	ndist := 30
	z.litTable = newCodeTable(z.litFreq[:nlit], rfc1951.MaxCodeLen)
	z.distTable = newCodeTable(z.distFreq[:ndist], rfc1951.MaxCodeLen)

	combined := make([]int, 0, nlit+ndist)
	combined = append(combined, z.litTable.lengths...)
	combined = append(combined, z.distTable.lengths...)
	z.rle = rleEncode(combined)

	for i := range z.pcFreq {
		z.pcFreq[i] = 0
	}
	for _, it := range z.rle {
		z.pcFreq[it.sym]++
	}
	z.pcTable = newCodeTable(z.pcFreq[:], rfc1951.PCodeLen)

	hclen := rfc1951.NumPCodes
	for hclen > 4 && z.pcTable.lengths[rfc1951.CodeOrder[hclen-1]] == 0 {
		hclen--
	}
	z.hclen = hclen
}

func rleEncode(lens []int) []rleItem {
	var out []rleItem
	n := len(lens)
	i := 0
	for i < n {
		v := lens[i]
		j := i
		for j < n && lens[j] == v {
			j++
		}
		run := j - i
		if v == 0 {
			for run > 0 {
				if run < 3 {
					out = append(out, rleItem{sym: 0})
					run--
					continue
				}
				chunk := run
				if chunk > 138 {
					chunk = 138
				}
				if chunk <= 10 {
					out = append(out, rleItem{sym: 17, extra: uint32(chunk - 3), bits: 3})
				} else {
					out = append(out, rleItem{sym: 18, extra: uint32(chunk - 11), bits: 7})
				}
				run -= chunk
			}
		} else {
			out = append(out, rleItem{sym: v})
			run--
			for run > 0 {
				chunk := run
				if chunk > 6 {
					chunk = 6
				}
				if chunk < 3 {
					for k := 0; k < chunk; k++ {
						out = append(out, rleItem{sym: v})
					}
				} else {
					out = append(out, rleItem{sym: 16, extra: uint32(chunk - 3), bits: 2})
				}
				run -= chunk
			}
		}
		i = j
	}
	return out
}

// drainTokens emits every literal/match token of the current block. A
// match contributes two symbols (length, distance); tokPhase tracks which
// half is still pending across a suspend.
func (z *Deflator) drainTokens() bool {
	for z.tokenIdx < len(z.blockTokens) {
		t := z.blockTokens[z.tokenIdx]
		if t.length == 0 {
			if !z.emitSymbol(z.litTable, int(t.lit), 0, 0) {
				return false
			}
			z.tokenIdx++
			continue
		}
		if z.tokPhase == 0 {
			sym := lengthSymFor[t.length]
			if !z.emitSymbol(z.litTable, sym, lengthExtraOf[t.length], uint(rfc1951.LengthExtra[sym-257])) {
				return false
			}
			z.tokPhase = 1
		}
		dsym := distSymFor[t.dist]
		if !z.emitSymbol(z.distTable, dsym, distExtraOf[t.dist], uint(rfc1951.DistExtra[dsym])) {
			return false
		}
		z.tokPhase = 0
		z.tokenIdx++
	}
	return true
}

// emitSymbol writes one Huffman code followed by its extra bits, packed
// into a single bit-accumulator push since the two fields occupy disjoint,
// already-ordered bit ranges (code low, extra high).
func (z *Deflator) emitSymbol(t codeTable, sym int, extra uint32, extraBits uint) bool {
	n := uint(t.lengths[sym])
	code := rfc1951.ReverseBits(t.codes[sym], n)
	v := uint64(code) | uint64(extra)<<n
	return z.emitCode(v, n+extraBits)
}

// emitCode pushes the low n bits of v into the bit accumulator (LSB
// first) and tries to drain whole bytes to the target. It returns false
// if the target ran out of room mid-drain; the same (v, n) must not be
// passed again once queued is set, since the accumulator already holds
// the bits — the caller just retries the call that originally queued them
// after SetTarget provides more room. A single shared queued flag is
// enough because emission sub-states are strictly sequential: only one
// emitCode call is ever "in flight" awaiting a target retry at a time.
func (z *Deflator) emitCode(v uint64, n uint) bool {
	if !z.queued {
		z.bitAcc |= v << z.bitCnt
		z.bitCnt += n
		z.queued = true
	}
	if !z.drain() {
		return false
	}
	z.queued = false
	return true
}

func (z *Deflator) drain() bool {
	for z.bitCnt >= 8 {
		if z.tpos >= len(z.target) {
			return false
		}
		z.target[z.tpos] = byte(z.bitAcc)
		z.tpos++
		z.tgtProd++
		z.bitAcc >>= 8
		z.bitCnt -= 8
	}
	return true
}
