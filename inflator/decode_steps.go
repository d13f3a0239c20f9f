package inflator

import "github.com/Jpn666/jdeflate/internal/rfc1951"

// --- state 1: stored block -------------------------------------------------

func (z *Inflator) stepStored() stepResult {
	for z.storedGot < 4 {
		b, ok := z.readRawByte()
		if !ok {
			return stepNeedSrc
		}
		z.storedHdr[z.storedGot] = b
		z.storedGot++
	}
	if z.storedRemaining == 0 && z.storedGot == 4 {
		n := int(z.storedHdr[0]) | int(z.storedHdr[1])<<8
		nn := int(z.storedHdr[2]) | int(z.storedHdr[3])<<8
		if n != (nn^0xffff)&0xffff {
			z.err = ErrBadBlock
			z.state = stDone
			return stepFatal
		}
		z.storedRemaining = n
		z.storedGot = 5 // sentinel: header fully validated, past the once-only check
		if n == 0 {
			return stepBlockDone
		}
	}
	for z.storedRemaining > 0 {
		b, ok := z.readRawByte()
		if !ok {
			return stepNeedSrc
		}
		if !z.emitByte(b) {
			z.spos--
			z.srcCon--
			return stepNeedTgt
		}
		z.storedRemaining--
	}
	return stepBlockDone
}

func (z *Inflator) readRawByte() (byte, bool) {
	if z.spos >= len(z.source) {
		return 0, false
	}
	b := z.source[z.spos]
	z.spos++
	z.srcCon++
	return b, true
}

// --- state 3: dynamic block header -----------------------------------------

const (
	dynReadPrefix = 0
	dynReadPC     = 1
	dynReadLens   = 2
	dynBuild      = 3
)

func (z *Inflator) stepDynamic() stepResult {
	switch z.substate {
	case dynReadPrefix:
		if !z.ensureBits(14) {
			return stepNeedSrc
		}
		z.nlit = int(z.bitbuf&0x1f) + 257
		z.ndist = int((z.bitbuf>>5)&0x1f) + 1
		z.nclen = int((z.bitbuf>>10)&0xf) + 4
		z.dropBits(14)
		for i := range z.pcLengths {
			z.pcLengths[i] = 0
		}
		z.pcIdx = 0
		z.substate = dynReadPC
		return stepDone

	case dynReadPC:
		for z.pcIdx < z.nclen {
			if !z.ensureBits(3) {
				return stepNeedSrc
			}
			v := int(z.bitbuf & 0x7)
			z.dropBits(3)
			z.pcLengths[rfc1951.CodeOrder[z.pcIdx]] = v
			z.pcIdx++
		}
		var err error
		z.pcTable, err = buildTable(z.pcLengths[:], cRootBits, 0, pcodeLeaf)
		if err != nil {
			z.err = err
			z.state = stDone
			return stepFatal
		}
		z.clIdx = 0
		z.prevCodeLen = 0
		z.pendingRepSym = -1
		z.substate = dynReadLens
		return stepDone

	case dynReadLens:
		total := z.nlit + z.ndist
		for z.clIdx < total {
			if z.pendingRepSym == -1 {
				e, ok := z.huffEntry(z.pcTable)
				if !ok {
					return stepNeedSrc
				}
				if e.isInvalid() {
					z.err = ErrBadTree
					z.state = stDone
					return stepFatal
				}
				v := int(e.base())
				if v < 16 {
					z.codeLengths[z.clIdx] = v
					z.prevCodeLen = v
					z.clIdx++
					continue
				}
				z.pendingRepSym = v
			}
			var nbits uint
			var repBase int
			var value int
			switch z.pendingRepSym {
			case 16:
				nbits, repBase = 2, 3
				value = z.prevCodeLen
				if z.clIdx == 0 {
					z.err = ErrBadTree
					z.state = stDone
					return stepFatal
				}
			case 17:
				nbits, repBase = 3, 3
				value = 0
			default: // 18
				nbits, repBase = 7, 11
				value = 0
			}
			extra, ok := z.extraBits(nbits)
			if !ok {
				return stepNeedSrc
			}
			rep := repBase + int(extra)
			if z.clIdx+rep > total {
				z.err = ErrBadTree
				z.state = stDone
				return stepFatal
			}
			for i := 0; i < rep; i++ {
				z.codeLengths[z.clIdx] = value
				z.clIdx++
			}
			z.pendingRepSym = -1
		}
		z.substate = dynBuild
		return stepDone

	case dynBuild:
		litLens := z.codeLengths[:z.nlit]
		distLens := z.codeLengths[z.nlit : z.nlit+z.ndist]
		if litLens[rfc1951.EndBlockSymbol] == 0 {
			z.err = ErrBadTree
			z.state = stDone
			return stepFatal
		}
		var err error
		z.litTable, err = buildTable(litLens, lRootBits, enoughL, litLeaf)
		if err != nil {
			z.err = err
			z.state = stDone
			return stepFatal
		}
		z.distTable, err = buildTable(distLens, dRootBits, enoughD, distLeaf)
		if err != nil {
			z.err = err
			z.state = stDone
			return stepFatal
		}
		if z.litTable.min == 0 && z.distTable.min == 0 {
			z.err = ErrBadTree
			z.state = stDone
			return stepFatal
		}
		z.state = stDecode
		z.ss5 = 0
		return stepDone
	}
	return stepFatal
}

// --- state 5: literal/length/distance decode loop --------------------------

const (
	ss5Symbol  = 0
	ss5Literal = 1
	ss5LenExtr = 2
	ss5Dist    = 3
	ss5DistExt = 4
	ss5Copy    = 5
)

func (z *Inflator) stepDecode() stepResult {
	for {
		switch z.ss5 {
		case ss5Symbol:
			e, ok := z.huffEntry(z.litTable)
			if !ok {
				return stepNeedSrc
			}
			switch {
			case e.isInvalid():
				z.err = ErrBadCode
				z.state = stDone
				return stepFatal
			case e.isEnd():
				return stepBlockDone
			case e.isLit():
				z.pendingLiteral = int(e.base())
				z.ss5 = ss5Literal
			default:
				z.pendingLengthBase = e.base()
				z.pendingLengthExtr = e.extra()
				z.ss5 = ss5LenExtr
			}

		case ss5Literal:
			if !z.emitByte(byte(z.pendingLiteral)) {
				return stepNeedTgt
			}
			z.pendingLiteral = -1
			z.ss5 = ss5Symbol

		case ss5LenExtr:
			extra, ok := z.extraBits(z.pendingLengthExtr)
			if !ok {
				return stepNeedSrc
			}
			z.pendingLength = int(z.pendingLengthBase) + int(extra)
			z.ss5 = ss5Dist

		case ss5Dist:
			e, ok := z.huffEntry(z.distTable)
			if !ok {
				return stepNeedSrc
			}
			if e.isInvalid() {
				z.err = ErrBadCode
				z.state = stDone
				return stepFatal
			}
			z.pendingDistBase = e.base()
			z.pendingDistExtr = e.extra()
			z.ss5 = ss5DistExt

		case ss5DistExt:
			extra, ok := z.extraBits(z.pendingDistExtr)
			if !ok {
				return stepNeedSrc
			}
			dist := int(z.pendingDistBase) + int(extra)
			if dist > z.wndwcnt {
				z.err = ErrFarOffset
				z.state = stDone
				return stepFatal
			}
			z.copyDist = dist
			z.copyRemaining = z.pendingLength
			z.ss5 = ss5Copy

		case ss5Copy:
			for z.copyRemaining > 0 {
				b := z.windowByteAt(z.copyDist)
				if !z.emitByte(b) {
					return stepNeedTgt
				}
				z.copyRemaining--
			}
			z.ss5 = ss5Symbol
		}
	}
}
