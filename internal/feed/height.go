package feed

import (
	"math"
	"unicode/utf16"
)

// Display height bounds in pixels, inclusive.
const (
	MinHeight = 280
	MaxHeight = 450
)

// HeightFor maps an id to a stable pseudo-random card height in [MinHeight, MaxHeight].
// The id is folded with h = h*31 + c over its UTF-16 code units in 32-bit two's complement,
// so the same id yields the same height in every process.
func HeightFor(id string) int {
	var h int32
	for _, c := range utf16.Encode([]rune(id)) {
		h = h*31 + int32(c)
	}
	norm := math.Abs(float64(h)) / math.MaxInt32
	if norm >= 1 {
		// |MinInt32| and MaxInt32 itself
		norm = math.Nextafter(1, 0)
	}
	return MinHeight + int(math.Floor(norm*float64(MaxHeight-MinHeight+1)))
}
