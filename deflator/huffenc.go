package deflator

import "github.com/Jpn666/jdeflate/internal/rfc1951"

// huffmanDepths returns the unbounded-depth canonical code length for
// every symbol with a nonzero frequency, plus the deepest length found.
// Depths are derived by repeatedly merging the two lowest-frequency
// items (the textbook Huffman construction) and then chasing each leaf's
// parent chain to measure its depth.
func huffmanDepths(freq []int) ([]int, int) {
	lengths := make([]int, len(freq))

	type item struct {
		freq int
		id   int // >=0: leaf symbol index; <0: -(internal index)-1
	}
	var items []item
	for sym, f := range freq {
		if f > 0 {
			items = append(items, item{freq: f, id: sym})
		}
	}
	if len(items) == 0 {
		return lengths, 0
	}
	if len(items) == 1 {
		lengths[items[0].id] = 1
		return lengths, 1
	}

	parent := make(map[int]int, 2*len(items))
	internalCount := 0
	for len(items) > 1 {
		// Two smallest first, insertion-sort style (block alphabets are
		// at most a few hundred symbols, so this is cheap).
		minI, minJ := 0, 1
		if items[minJ].freq < items[minI].freq {
			minI, minJ = minJ, minI
		}
		for k := 2; k < len(items); k++ {
			if items[k].freq < items[minI].freq {
				minI, minJ = k, minI
			} else if items[k].freq < items[minJ].freq {
				minJ = k
			}
		}
		a, b := items[minI], items[minJ]
		// remove minI and minJ (minI<minJ after the swaps above is not
		// guaranteed, so delete the larger index first).
		hi, lo := minI, minJ
		if lo > hi {
			hi, lo = lo, hi
		}
		items = append(items[:hi], items[hi+1:]...)
		items = append(items[:lo], items[lo+1:]...)

		idx := internalCount
		internalCount++
		parent[a.id] = idx
		parent[b.id] = idx
		items = append(items, item{freq: a.freq + b.freq, id: -(idx + 1)})
	}

	maxDepth := 0
	for sym, f := range freq {
		if f == 0 {
			continue
		}
		d := 0
		id := sym
		for {
			p, ok := parent[id]
			if !ok {
				break
			}
			d++
			id = -(p + 1)
		}
		lengths[sym] = d
		if d > maxDepth {
			maxDepth = d
		}
	}
	return lengths, maxDepth
}

// buildLengths derives canonical code lengths bounded by maxLen. Skewed
// frequency distributions can otherwise produce unbounded-depth trees
// deeper than DEFLATE's 15-bit limit; rather than reassign the overflow
// by hand, this rescales the frequency distribution (halving it) and
// rebuilds until the tree fits, which always converges since a fully
// flattened distribution yields a balanced tree of depth ceil(log2 n).
func buildLengths(freq []int, maxLen int) []int {
	work := append([]int(nil), freq...)
	for {
		lengths, maxDepth := huffmanDepths(work)
		if maxDepth <= maxLen {
			return lengths
		}
		for i, f := range work {
			if f > 0 {
				nf := (f + 1) / 2
				if nf == 0 {
					nf = 1
				}
				work[i] = nf
			}
		}
	}
}

// canonicalCodes assigns RFC 1951 section 3.2.2 canonical codes (in MSB-
// first numeric form) given a set of code lengths.
func canonicalCodes(lengths []int) []uint32 {
	var count [rfc1951.MaxCodeLen + 1]int
	max := 0
	for _, n := range lengths {
		if n > 0 {
			count[n]++
			if n > max {
				max = n
			}
		}
	}
	var nextCode [rfc1951.MaxCodeLen + 2]int
	code := 0
	for n := 1; n <= max; n++ {
		code = (code + count[n-1]) << 1
		nextCode[n] = code
	}
	codes := make([]uint32, len(lengths))
	for sym, n := range lengths {
		if n == 0 {
			continue
		}
		codes[sym] = uint32(nextCode[n])
		nextCode[n]++
	}
	return codes
}

// codeTable pairs canonical codes with their lengths for one alphabet.
type codeTable struct {
	lengths []int
	codes   []uint32
}

func newCodeTable(freq []int, maxLen int) codeTable {
	lengths := buildLengths(freq, maxLen)
	return codeTable{lengths: lengths, codes: canonicalCodes(lengths)}
}
