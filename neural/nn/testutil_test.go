package nn_test

import (
	"math/rand"

	"github.com/golangast/egonet/neural/tensor"
)

func randTensor(shape ...int) *tensor.Tensor {
	t := tensor.Zeros(shape...)
	rng := rand.New(rand.NewSource(42))
	for i := range t.Data {
		t.Data[i] = rng.NormFloat64()
	}
	return t
}
