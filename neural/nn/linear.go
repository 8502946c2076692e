package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/golangast/egonet/neural/tensor"
)

// Linear is a fully connected affine layer. With a 3-D input it applies the
// same transform to every entity, so one instance can serve both flat
// batches and per-entity batches.
type Linear struct {
	Weights *tensor.Tensor // (in, out)
	Biases  *tensor.Tensor // (out), nil for bias-free projections
}

// NewLinear creates a linear layer with He-initialized weights and zero
// biases.
func NewLinear(inputDim, outputDim int) *Linear {
	l := newLinear(inputDim, outputDim)
	l.Biases = tensor.NewTensor([]int{outputDim}, nil, true)
	return l
}

// NewLinearNoBias creates a bias-free linear projection, as used by the
// attention query/key/value/combine transforms.
func NewLinearNoBias(inputDim, outputDim int) *Linear {
	return newLinear(inputDim, outputDim)
}

func newLinear(inputDim, outputDim int) *Linear {
	stdDev := math.Sqrt(2.0 / float64(inputDim))
	weightsData := make([]float64, inputDim*outputDim)
	for i := range weightsData {
		weightsData[i] = rand.NormFloat64() * stdDev
	}
	return &Linear{
		Weights: tensor.NewTensor([]int{inputDim, outputDim}, weightsData, true),
	}
}

// InputDim returns the expected feature width.
func (l *Linear) InputDim() int { return l.Weights.Shape[0] }

// OutputDim returns the produced feature width.
func (l *Linear) OutputDim() int { return l.Weights.Shape[1] }

// Forward applies the affine transform to a (batch, in) or
// (batch, entities, in) input.
func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	in, out := l.InputDim(), l.OutputDim()
	switch len(input.Shape) {
	case 2:
		if input.Shape[1] != in {
			return nil, widthError(in, input.Shape)
		}
		product, err := input.MatMul(l.Weights)
		if err != nil {
			return nil, err
		}
		l.addBias(product)
		return product, nil
	case 3:
		batch, entities := input.Shape[0], input.Shape[1]
		if input.Shape[2] != in {
			return nil, widthError(in, input.Shape)
		}
		if batch*entities == 0 {
			return tensor.Zeros(batch, entities, out), nil
		}
		flat, err := input.Reshape(batch*entities, in)
		if err != nil {
			return nil, err
		}
		product, err := flat.MatMul(l.Weights)
		if err != nil {
			return nil, err
		}
		l.addBias(product)
		return product.Reshape(batch, entities, out)
	default:
		return nil, widthError(in, input.Shape)
	}
}

func (l *Linear) addBias(product *tensor.Tensor) {
	if l.Biases == nil {
		return
	}
	out := l.OutputDim()
	for i := range product.Data {
		product.Data[i] += l.Biases.Data[i%out]
	}
}

// Parameters returns the learnable tensors of the layer.
func (l *Linear) Parameters() []*tensor.Tensor {
	if l.Biases == nil {
		return []*tensor.Tensor{l.Weights}
	}
	return []*tensor.Tensor{l.Weights, l.Biases}
}

func widthError(want int, got []int) error {
	return &tensor.ShapeError{
		Op:  "Linear",
		Msg: fmt.Sprintf("input feature width does not match configured width %d (input shape %v)", want, got),
	}
}
