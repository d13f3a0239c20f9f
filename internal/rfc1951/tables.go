// Package rfc1951 holds the read-only wire-format tables shared by the
// inflator and deflator packages: the length/distance base and extra-bit
// tables, the fixed precode transmission order, the bit-reverse lookup,
// and the static (fixed) Huffman code lengths.
//
// None of these tables are copied byte-for-byte from any single source;
// they are synthesized from the canonical assignment in RFC 1951 section
// 3.2.5/3.2.6, per the note in spec.md section 9 about a stray marker
// value in one of the reference sources.
package rfc1951

const (
	MaxCodeLen = 15 // maximum Huffman code length for literal/length and distance codes
	PCodeLen   = 7  // maximum Huffman code length for the precode alphabet

	NumLitCodes  = 288 // literal/length alphabet size (286 used, 2 reserved)
	NumDistCodes = 32  // distance alphabet size (30 used, 2 reserved)
	NumPCodes    = 19  // precode alphabet size

	EndBlockSymbol = 256

	MinMatchLen = 3
	MaxMatchLen = 258

	WindowSize = 1 << 15 // 32768
	WindowMask = WindowSize - 1
)

// LengthBase and LengthExtra describe length symbols 257..285 (29 codes),
// indexed from 0. Symbol 285 is the single exception carrying 0 extra bits
// for the maximum length 258.
var LengthBase = [29]uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13,
	15, 17, 19, 23, 27, 31, 35, 43, 51, 59,
	67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var LengthExtra = [29]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1,
	1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// DistBase and DistExtra describe all 30 valid distance symbols.
var DistBase = [30]uint16{
	1, 2, 3, 4, 5, 7, 9, 13,
	17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073,
	4097, 6145, 8193, 12289, 16385, 24577,
}

var DistExtra = [30]uint8{
	0, 0, 0, 0, 1, 1, 2, 2,
	3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10,
	11, 11, 12, 12, 13, 13,
}

// CodeOrder is the fixed order in which precode (code-length) code lengths
// are transmitted for a dynamic block, per RFC 1951 section 3.2.7.
var CodeOrder = [NumPCodes]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// BitReverse8 reverses the low 8 bits of its argument, used to flip
// canonical (MSB-first) Huffman codes into the LSB-first order DEFLATE
// transmits them in.
var BitReverse8 [256]byte

func init() {
	for i := range BitReverse8 {
		var r byte
		v := byte(i)
		for b := 0; b < 8; b++ {
			r <<= 1
			r |= v & 1
			v >>= 1
		}
		BitReverse8[i] = r
	}
}

// ReverseBits reverses the low n bits of code (n in [0, 16]).
func ReverseBits(code uint32, n uint) uint32 {
	lo := BitReverse8[code&0xff]
	hi := BitReverse8[(code>>8)&0xff]
	full := uint32(lo)<<8 | uint32(hi)
	return full >> (16 - n)
}

// FixedLitLengths and FixedDistLengths are the static Huffman code lengths
// defined in RFC 1951 section 3.2.6, used by BTYPE=1 (fixed) blocks.
var FixedLitLengths [NumLitCodes]int
var FixedDistLengths [NumDistCodes]int

func init() {
	for i := 0; i < 144; i++ {
		FixedLitLengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		FixedLitLengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		FixedLitLengths[i] = 7
	}
	for i := 280; i < NumLitCodes; i++ {
		FixedLitLengths[i] = 8
	}
	// All 32 distance symbols get 5-bit codes, which makes the code complete;
	// symbols 30 and 31 are reserved and never occur in valid data.
	for i := 0; i < NumDistCodes; i++ {
		FixedDistLengths[i] = 5
	}
}
