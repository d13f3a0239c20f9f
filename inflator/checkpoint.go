package inflator

import "github.com/Jpn666/jdeflate/internal/rfc1951"

// Checkpoint is a snapshot of everything needed to resume decoding from a
// block boundary: the bit accumulator and the full sliding window. It
// deliberately excludes any sub-state from inside a block (Huffman table
// under construction, partially-read stored length, …) — a checkpoint can
// only be taken, or restored, right before a block header.
type Checkpoint struct {
	BitBuf uint64
	BitCnt uint
	Window [rfc1951.WindowSize]byte
	WPos   int
	WCnt   int
}

// Checkpoint captures the engine's state if it is currently sitting at a
// block boundary (the instant after SetSource/Inflate last returned having
// fully consumed a block and before the next block's header has been
// read). ok is false at any other point, including mid-stream.
func (z *Inflator) Checkpoint() (cp Checkpoint, ok bool) {
	if z.state != stHeader || z.substate != 0 {
		return Checkpoint{}, false
	}
	cp.BitBuf = z.bitbuf
	cp.BitCnt = z.bitcnt
	cp.Window = z.window
	cp.WPos = z.wpos
	cp.WCnt = z.wndwcnt
	return cp, true
}

// Restore rewinds the engine to a previously captured Checkpoint,
// discarding any error and in-flight block. The caller is responsible for
// resupplying a source positioned at the byte offset the checkpoint was
// taken at.
func (z *Inflator) Restore(cp Checkpoint) {
	z.bitbuf = cp.BitBuf
	z.bitcnt = cp.BitCnt
	z.window = cp.Window
	z.wpos = cp.WPos
	z.wndwcnt = cp.WCnt
	z.state = stHeader
	z.substate = 0
	z.blockFinal = false
	z.err = nil
	z.final = false
	z.started = true
}
