package nn

import (
	"fmt"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/tensor"
)

// MultiLayerPerceptron is a stack of fully connected layers with a shared
// activation, optionally followed by a bare affine projection to "out"
// features. With reshape disabled it applies per-entity, which is how the
// ego-attention network uses it as an embedding block.
type MultiLayerPerceptron struct {
	Layers  []*Linear
	Predict *Linear // nil unless "out" is configured

	activation Activation
	reshape    bool
	in         int
}

// MLPDefaults returns the recognized keys and defaults of the block.
// "in" and "out" have no default; "in" must be resolvable by composition
// time.
func MLPDefaults() config.Config {
	return config.Config{
		"layers":     []int{64, 64},
		"activation": "RELU",
		"reshape":    true,
	}
}

// NewMultiLayerPerceptron builds the block from its configuration tree.
func NewMultiLayerPerceptron(cfg config.Config) (*MultiLayerPerceptron, error) {
	cfg = config.WithDefaults(cfg, MLPDefaults())
	in, err := cfg.Int("in")
	if err != nil {
		return nil, fmt.Errorf("MultiLayerPerceptron: %w", err)
	}
	layers, err := cfg.Ints("layers")
	if err != nil {
		return nil, fmt.Errorf("MultiLayerPerceptron: %w", err)
	}
	if len(layers) == 0 {
		return nil, &config.Error{Key: "layers", Msg: "at least one hidden layer is required"}
	}
	actName, err := cfg.String("activation")
	if err != nil {
		return nil, fmt.Errorf("MultiLayerPerceptron: %w", err)
	}
	activation, err := ActivationByName(actName)
	if err != nil {
		return nil, err
	}

	m := &MultiLayerPerceptron{
		activation: activation,
		reshape:    cfg.BoolOr("reshape", true),
		in:         in,
	}
	sizes := append([]int{in}, layers...)
	for i := 0; i < len(sizes)-1; i++ {
		m.Layers = append(m.Layers, NewLinear(sizes[i], sizes[i+1]))
	}
	if cfg.Has("out") {
		out, err := cfg.Int("out")
		if err != nil {
			return nil, fmt.Errorf("MultiLayerPerceptron: %w", err)
		}
		m.Predict = NewLinear(sizes[len(sizes)-1], out)
	}
	return m, nil
}

// OutputDim returns the width of the produced feature vectors.
func (m *MultiLayerPerceptron) OutputDim() int {
	if m.Predict != nil {
		return m.Predict.OutputDim()
	}
	return m.Layers[len(m.Layers)-1].OutputDim()
}

// Forward runs the stack. With reshape enabled, all non-batch dimensions are
// flattened into one feature vector per batch element first; the flattened
// width must equal the configured "in".
func (m *MultiLayerPerceptron) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if m.reshape && len(x.Shape) > 2 {
		batch := x.Shape[0]
		flat, err := x.Reshape(batch, x.Size()/batch)
		if err != nil {
			return nil, err
		}
		x = flat
	}
	var err error
	for _, layer := range m.Layers {
		x, err = layer.Forward(x)
		if err != nil {
			return nil, err
		}
		x = m.activation(x)
	}
	if m.Predict != nil {
		return m.Predict.Forward(x)
	}
	return x, nil
}

// Parameters returns all learnable tensors of the stack.
func (m *MultiLayerPerceptron) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, layer := range m.Layers {
		params = append(params, layer.Parameters()...)
	}
	if m.Predict != nil {
		params = append(params, m.Predict.Parameters()...)
	}
	return params
}
