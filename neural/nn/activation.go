package nn

import (
	"math"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/tensor"
)

// Activation is an elementwise nonlinearity applied after each hidden
// affine transform.
type Activation func(*tensor.Tensor) *tensor.Tensor

// ActivationByName resolves a configured activation name. Unknown names
// fail construction.
func ActivationByName(name string) (Activation, error) {
	switch name {
	case "RELU":
		return ReLU, nil
	case "TANH":
		return Tanh, nil
	default:
		return nil, &config.Error{Key: "activation", Msg: "unknown activation " + name}
	}
}

// ReLU returns max(0, x) elementwise.
func ReLU(t *tensor.Tensor) *tensor.Tensor {
	out := t.Clone()
	for i, v := range out.Data {
		if v < 0 {
			out.Data[i] = 0
		}
	}
	return out
}

// Tanh returns tanh(x) elementwise.
func Tanh(t *tensor.Tensor) *tensor.Tensor {
	out := t.Clone()
	for i, v := range out.Data {
		out.Data[i] = math.Tanh(v)
	}
	return out
}
