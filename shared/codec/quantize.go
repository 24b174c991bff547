package codec

import (
	"math"

	"golang.org/x/exp/constraints"
)

// ZigZag maps signed values onto unsigned ones so small magnitudes of either
// sign stay small.
func ZigZag[S constraints.Signed](v S) uint64 {
	x := int64(v)
	return uint64((x << 1) ^ (x >> 63))
}

func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// Quantize converts v to fixed point: round(v * factor), saturated to int32.
func Quantize(v float64, factor int32) int32 {
	q := math.Round(v * float64(factor))
	switch {
	case math.IsNaN(q):
		return 0
	case q > math.MaxInt32:
		return math.MaxInt32
	case q < math.MinInt32:
		return math.MinInt32
	}
	return int32(q)
}

func Dequantize(q int32, factor int32) float64 {
	return float64(q) / float64(factor)
}
