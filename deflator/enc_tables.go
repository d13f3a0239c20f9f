package deflator

import "github.com/Jpn666/jdeflate/internal/rfc1951"

// lengthSymFor/lengthExtraOf and distSymFor/distExtraOf are the encoder's
// reverse lookups: given a match length or distance, which symbol and
// extra-bit value represents it. Built once from the same base/extra
// tables the decoder uses, so the two engines never disagree about the
// wire format.
var (
	lengthSymFor   [rfc1951.MaxMatchLen + 1]int
	lengthExtraOf  [rfc1951.MaxMatchLen + 1]uint32
	distSymFor     [rfc1951.WindowSize + 1]int
	distExtraOf    [rfc1951.WindowSize + 1]uint32
)

func init() {
	length := rfc1951.MinMatchLen
	for idx := 0; idx < 29 && length <= rfc1951.MaxMatchLen; idx++ {
		count := 1 << rfc1951.LengthExtra[idx]
		for j := 0; j < count && length <= rfc1951.MaxMatchLen; j++ {
			lengthSymFor[length] = 257 + idx
			lengthExtraOf[length] = uint32(j)
			length++
		}
	}

	dist := 1
	for idx := 0; idx < 30 && dist <= rfc1951.WindowSize; idx++ {
		count := 1 << rfc1951.DistExtra[idx]
		for j := 0; j < count && dist <= rfc1951.WindowSize; j++ {
			distSymFor[dist] = idx
			distExtraOf[dist] = uint32(j)
			dist++
		}
	}
}
