package nn

import (
	"fmt"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/tensor"
)

// DuelingNetwork decomposes action values into a state value and per-action
// advantages: Q = V + A - mean(A). Subtracting the mean advantage removes
// the free degree of freedom between the two heads.
type DuelingNetwork struct {
	Base      Model
	Advantage *Linear // (repr, out)
	Value     *Linear // (repr, 1)

	out int
}

// DuelingDefaults returns the recognized keys and defaults of the network.
func DuelingDefaults() config.Config {
	return config.Config{
		"base_module": config.Config{
			"type": "MultiLayerPerceptron",
		},
	}
}

// NewDuelingNetwork builds the network. The base module's "in" is force-set
// to the network's "in" on a derived copy of its configuration.
func NewDuelingNetwork(cfg config.Config) (*DuelingNetwork, error) {
	cfg = config.WithDefaults(cfg, DuelingDefaults())
	in, err := cfg.Int("in")
	if err != nil {
		return nil, fmt.Errorf("DuelingNetwork: %w", err)
	}
	out, err := cfg.Int("out")
	if err != nil {
		return nil, fmt.Errorf("DuelingNetwork: %w", err)
	}

	baseCfg := cfg.Sub("base_module").With("in", in)
	base, err := Build(baseCfg)
	if err != nil {
		return nil, fmt.Errorf("DuelingNetwork: base module: %w", err)
	}
	repr, err := reprWidth(baseCfg)
	if err != nil {
		return nil, err
	}

	return &DuelingNetwork{
		Base:      base,
		Advantage: NewLinear(repr, out),
		Value:     NewLinear(repr, 1),
		out:       out,
	}, nil
}

// reprWidth resolves the width of the base module's representation: its
// "out" when projected, otherwise the last hidden layer.
func reprWidth(baseCfg config.Config) (int, error) {
	if baseCfg.Has("out") {
		return baseCfg.Int("out")
	}
	merged := config.WithDefaults(baseCfg, MLPDefaults())
	layers, err := merged.Ints("layers")
	if err != nil || len(layers) == 0 {
		return 0, &config.Error{Key: "base_module", Msg: "cannot resolve representation width (set out or layers)"}
	}
	return layers[len(layers)-1], nil
}

// Forward computes Q-values of shape (batch, out).
func (d *DuelingNetwork) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	repr, err := d.Base.Forward(x)
	if err != nil {
		return nil, err
	}
	advantage, err := d.Advantage.Forward(repr)
	if err != nil {
		return nil, err
	}
	value, err := d.Value.Forward(repr)
	if err != nil {
		return nil, err
	}

	batch := advantage.Shape[0]
	q := tensor.Zeros(batch, d.out)
	for b := 0; b < batch; b++ {
		row := advantage.Data[b*d.out : (b+1)*d.out]
		mean := 0.0
		for _, a := range row {
			mean += a
		}
		mean /= float64(d.out)
		v := value.Data[b]
		for j, a := range row {
			q.Data[b*d.out+j] = v + a - mean
		}
	}
	return q, nil
}

// Parameters returns the base module and head parameters.
func (d *DuelingNetwork) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	params = append(params, d.Base.Parameters()...)
	params = append(params, d.Advantage.Parameters()...)
	params = append(params, d.Value.Parameters()...)
	return params
}
