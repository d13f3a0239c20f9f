package deflator

import (
	"math/bits"

	"github.com/Jpn666/jdeflate/internal/rfc1951"
)

// token is one emitted unit: either a literal byte (length==0) or a
// length/distance back-reference. This is the Go-shaped equivalent of the
// packed 16-bit LZ cell: separate fields instead of packed bits, since
// the encoder builds a whole block's tokens in memory before emission
// rather than threading a suspend point through every cell.
type token struct {
	lit    byte
	length int // 0 for a literal
	dist   int
}

// levelParam holds the match-finder tuning for one compression level,
// mirroring the good/nice/chain tables long used by DEFLATE encoders.
type levelParam struct {
	good, nice, chain int
	lazy              bool
}

var levelTable = [10]levelParam{
	0: {0, 0, 0, false},
	1: {4, 8, 4, false},
	2: {4, 16, 8, false},
	3: {4, 32, 32, false},
	4: {4, 16, 16, false},
	5: {8, 32, 32, false},
	6: {8, 128, 128, true},
	7: {8, 128, 256, true},
	8: {32, 258, 1024, true},
	9: {32, 258, 4096, true},
}

const hashBits = 16
const hashSize = 1 << hashBits

func hash4(buf []byte, i int) uint32 {
	v := uint32(buf[i]) | uint32(buf[i+1])<<8 | uint32(buf[i+2])<<16 | uint32(buf[i+3])<<24
	return (v * 0x1e35a7bd) >> (32 - hashBits)
}

// matcher is the hash-chain match finder. prev holds, for each absolute
// input position, the previous position sharing the same 4-byte hash (or
// -1); chains never cross more than rfc1951.WindowSize apart since a
// match distance beyond that is illegal.
type matcher struct {
	head [hashSize]int32
	prev []int32
}

func newMatcher() *matcher {
	m := &matcher{}
	for i := range m.head {
		m.head[i] = -1
	}
	return m
}

func (m *matcher) grow(n int) {
	for len(m.prev) < n {
		m.prev = append(m.prev, -1)
	}
}

func (m *matcher) insert(buf []byte, pos int) {
	if pos+4 > len(buf) {
		return
	}
	h := hash4(buf, pos)
	m.grow(pos + 1)
	m.prev[pos] = m.head[h]
	m.head[h] = int32(pos)
}

// find returns the longest match at pos (length, distance), or length 0
// if nothing useful was found. limit is the index one past the last byte
// considered available (bufEnd); pos+4<=limit is assumed by the caller.
func (m *matcher) find(buf []byte, pos, limit int, p levelParam) (int, int) {
	if p.chain == 0 {
		return 0, 0
	}
	h := hash4(buf, pos)
	cand := m.head[h]
	bestLen, bestDist := 0, 0
	maxLen := limit - pos
	if maxLen > rfc1951.MaxMatchLen {
		maxLen = rfc1951.MaxMatchLen
	}
	tries := p.chain
	minDistOK := pos - rfc1951.WindowSize
	for cand >= 0 && int(cand) > minDistOK && tries > 0 {
		c := int(cand)
		if bestLen == 0 || (pos+bestLen < limit && buf[c+bestLen] == buf[pos+bestLen]) {
			l := matchLen(buf, c, pos, maxLen)
			if l > bestLen {
				bestLen = l
				bestDist = pos - c
				if l >= p.nice || l >= maxLen {
					break
				}
			}
		}
		cand = m.prev[c]
		tries--
	}
	if bestLen < rfc1951.MinMatchLen {
		return 0, 0
	}
	return bestLen, bestDist
}

func matchLen(buf []byte, a, b, max int) int {
	n := 0
	for n < max && buf[a+n] == buf[b+n] {
		n++
	}
	return n
}

// buildTokens runs the greedy (levels 1-5) or lazy (levels 6-9) parser
// over buf[pos:limit], inserting every visited position into m, stopping
// once maxTokens tokens have been produced or limit is reached. It returns
// the tokens and the new position.
func buildTokens(buf []byte, pos, limit int, m *matcher, level int, maxTokens int) ([]token, int) {
	p := levelTable[level]
	var toks []token

	emitLiteral := func(i int) {
		toks = append(toks, token{lit: buf[i]})
	}

	for pos < limit && len(toks) < maxTokens {
		if limit-pos < rfc1951.MinMatchLen+1 {
			// Not enough lookahead for a 4-byte hash; fall back to literals
			// for the remaining tail of this block.
			emitLiteral(pos)
			m.insert(buf, pos)
			pos++
			continue
		}

		length, dist := m.find(buf, pos, limit, p)
		m.insert(buf, pos)

		if length == 0 {
			emitLiteral(pos)
			pos++
			continue
		}

		if p.lazy && pos+1 < limit && limit-(pos+1) >= rfc1951.MinMatchLen+1 {
			nlen, ndist := m.find(buf, pos+1, limit, p)
			if nlen > 0 && preferLazy(length, dist, nlen, ndist) {
				// Defer: emit pos as a literal and let the next iteration
				// re-discover (and accept) the better match at pos+1.
				emitLiteral(pos)
				pos++
				continue
			}
		}

		toks = append(toks, token{length: length, dist: dist})
		end := pos + length
		for pos++; pos < end && pos < limit; pos++ {
			m.insert(buf, pos)
		}
	}
	return toks, pos
}

// preferLazy implements the lazy-matching acceptance rule: prefer the
// one-byte-ahead match M2 over the current M1 when it is meaningfully
// longer, trading off the extra literal against the saved match bits.
func preferLazy(len1, dist1, len2, dist2 int) bool {
	d := len2 - len1
	if d > 4 {
		return true
	}
	if d <= 0 {
		return false
	}
	score := 4*d + (bits.Len(uint(dist1)) - bits.Len(uint(dist2)))
	return score >= 2
}
