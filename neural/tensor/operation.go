package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax applies the softmax function over the last axis, shifting by the
// row maximum for numerical stability.
func Softmax(t *Tensor) *Tensor {
	lastDim := t.Shape[len(t.Shape)-1]
	out := NewTensor(t.Shape, make([]float64, len(t.Data)), false)
	if lastDim == 0 {
		return out
	}
	for i := 0; i < len(t.Data); i += lastDim {
		row := t.Data[i : i+lastDim]
		outRow := out.Data[i : i+lastDim]
		maxVal := floats.Max(row)
		for j, v := range row {
			outRow[j] = math.Exp(v - maxVal)
		}
		floats.Scale(1/floats.Sum(outRow), outRow)
	}
	return out
}

// Mean returns the mean of all elements. Empty tensors yield 0.
func Mean(t *Tensor) float64 {
	if len(t.Data) == 0 {
		return 0
	}
	return floats.Sum(t.Data) / float64(len(t.Data))
}
