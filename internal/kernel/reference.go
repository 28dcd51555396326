package kernel

import (
	"math"

	"github.com/born-ml/invsqrt/internal/parallel"
)

// Reference applies the kernel body to one value on the CPU.
// Zero (of either sign) maps to NaN, everything else to 1/sqrt(x).
func Reference(x float32) float32 {
	if x == 0 {
		return float32(math.NaN())
	}
	return float32(1 / math.Sqrt(float64(x)))
}

// Apply returns a new slice with Reference applied to every element.
func Apply(values []float32, cfg parallel.Config) []float32 {
	out := make([]float32, len(values))
	parallel.For(len(values), cfg, func(i int) {
		out[i] = Reference(values[i])
	})
	return out
}
