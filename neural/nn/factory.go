package nn

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/tensor"
)

// Model is a network component built from a configuration tree. Forward is a
// pure function of the input given fixed parameters; Parameters exposes the
// learnable tensors for an optimizer to consume. Concurrent Forward calls on
// the same instance are safe as long as parameters are not being updated.
type Model interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor
}

// Builder constructs a component from its configuration tree.
type Builder func(cfg config.Config) (Model, error)

var registry = map[string]Builder{}

// Register installs a builder for a configuration type tag. Composite
// components resolve their sub-blocks through the same registry.
func Register(name string, b Builder) {
	registry[name] = b
}

// Build constructs the component named by the tree's "type" key.
func Build(cfg config.Config) (Model, error) {
	typ, err := cfg.String("type")
	if err != nil {
		return nil, fmt.Errorf("building model: %w", err)
	}
	b, ok := registry[typ]
	if !ok {
		known := maps.Keys(registry)
		sort.Strings(known)
		return nil, &config.Error{Key: "type", Msg: fmt.Sprintf("unknown model type %q (known: %v)", typ, known)}
	}
	return b(cfg)
}

func init() {
	Register("MultiLayerPerceptron", func(cfg config.Config) (Model, error) {
		return NewMultiLayerPerceptron(cfg)
	})
	Register("DuelingNetwork", func(cfg config.Config) (Model, error) {
		return NewDuelingNetwork(cfg)
	})
	Register("EgoAttentionNetwork", func(cfg config.Config) (Model, error) {
		return NewEgoAttentionNetwork(cfg)
	})
}
