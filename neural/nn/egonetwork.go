package nn

import (
	"fmt"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/tensor"
)

// EgoAttentionNetwork embeds a variable-size set of entities, attends the
// ego over them, and projects the attended ego representation to the output
// width. Entity 0 of the input is the ego by convention. One embedding block
// serves both the ego and the others, so the two roles always share weights.
type EgoAttentionNetwork struct {
	Embedding Model // shared between the ego and others paths
	Attention *EgoAttention
	Output    Model

	presenceIdx int
}

// EgoAttentionNetworkDefaults returns the recognized keys and defaults of
// the network.
func EgoAttentionNetworkDefaults() config.Config {
	return config.Config{
		"presence_feature_idx": 0,
		"embedding_layer": config.Config{
			"type":    "MultiLayerPerceptron",
			"layers":  []int{128, 128, 128},
			"reshape": false,
		},
		"attention_layer": config.Config{
			"type":         "EgoAttention",
			"feature_size": 128,
			"heads":        4,
		},
		"output_layer": config.Config{
			"type":    "MultiLayerPerceptron",
			"layers":  []int{128, 128, 128},
			"reshape": false,
		},
	}
}

// NewEgoAttentionNetwork builds the network. Child configurations are
// derived copies: the embedding block inherits the network's "in" when its
// own is unset, and the output block's "in"/"out" are always overwritten to
// the attention feature size and the network's "out".
func NewEgoAttentionNetwork(cfg config.Config) (*EgoAttentionNetwork, error) {
	cfg = config.WithDefaults(cfg, EgoAttentionNetworkDefaults())

	embCfg := cfg.Sub("embedding_layer")
	if !embCfg.Has("in") && cfg.Has("in") {
		in, err := cfg.Int("in")
		if err != nil {
			return nil, fmt.Errorf("EgoAttentionNetwork: %w", err)
		}
		embCfg = embCfg.With("in", in)
	}

	attCfg := cfg.Sub("attention_layer")
	attention, err := NewEgoAttention(attCfg)
	if err != nil {
		return nil, fmt.Errorf("EgoAttentionNetwork: %w", err)
	}

	out, err := cfg.Int("out")
	if err != nil {
		return nil, fmt.Errorf("EgoAttentionNetwork: %w", err)
	}
	outCfg := cfg.Sub("output_layer").
		With("in", attention.FeatureSize).
		With("out", out)

	embedding, err := Build(embCfg)
	if err != nil {
		return nil, fmt.Errorf("EgoAttentionNetwork: embedding layer: %w", err)
	}
	output, err := Build(outCfg)
	if err != nil {
		return nil, fmt.Errorf("EgoAttentionNetwork: output layer: %w", err)
	}

	return &EgoAttentionNetwork{
		Embedding:   embedding,
		Attention:   attention,
		Output:      output,
		presenceIdx: cfg.IntOr("presence_feature_idx", 0),
	}, nil
}

// SplitInput separates a (batch, entities, features) batch into the ego row,
// the remaining entities, and the presence mask over the full entity set. An
// entity whose presence feature is below 0.5 is flagged absent.
func (n *EgoAttentionNetwork) SplitInput(x *tensor.Tensor) (ego, others, mask *tensor.Tensor, err error) {
	if len(x.Shape) != 3 {
		return nil, nil, nil, &tensor.ShapeError{Op: "EgoAttentionNetwork", Msg: fmt.Sprintf("input must be (batch, entities, features), got %v", x.Shape)}
	}
	batch, entities, features := x.Shape[0], x.Shape[1], x.Shape[2]
	if entities < 1 {
		return nil, nil, nil, &tensor.ShapeError{Op: "EgoAttentionNetwork", Msg: "at least the ego entity is required"}
	}
	if n.presenceIdx < 0 || n.presenceIdx >= features {
		return nil, nil, nil, &tensor.ShapeError{Op: "EgoAttentionNetwork", Msg: fmt.Sprintf("presence_feature_idx %d out of range for %d features", n.presenceIdx, features)}
	}

	ego = tensor.Zeros(batch, 1, features)
	others = tensor.Zeros(batch, entities-1, features)
	mask = tensor.Zeros(batch, entities)
	for b := 0; b < batch; b++ {
		row := x.Data[b*entities*features : (b+1)*entities*features]
		copy(ego.Data[b*features:(b+1)*features], row[:features])
		copy(others.Data[b*(entities-1)*features:(b+1)*(entities-1)*features], row[features:])
		for e := 0; e < entities; e++ {
			if row[e*features+n.presenceIdx] < 0.5 {
				mask.Data[b*entities+e] = 1
			}
		}
	}
	return ego, others, mask, nil
}

// Forward embeds the split entities, attends, and runs the output block.
func (n *EgoAttentionNetwork) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	attended, _, err := n.attend(x)
	if err != nil {
		return nil, err
	}
	return n.Output.Forward(attended)
}

// AttentionMatrix runs the split/embed/attend pipeline and returns only the
// per-head attention probabilities, shaped (batch, heads, 1, entities).
// Read-only introspection: repeated calls do not touch any parameters.
func (n *EgoAttentionNetwork) AttentionMatrix(x *tensor.Tensor) (*tensor.Tensor, error) {
	_, weights, err := n.attend(x)
	return weights, err
}

func (n *EgoAttentionNetwork) attend(x *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	ego, others, mask, err := n.SplitInput(x)
	if err != nil {
		return nil, nil, err
	}
	egoEmbedded, err := n.Embedding.Forward(ego)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding ego: %w", err)
	}
	othersEmbedded, err := n.Embedding.Forward(others)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding others: %w", err)
	}
	return n.Attention.Forward(egoEmbedded, othersEmbedded, mask)
}

// Parameters returns the shared embedding parameters once, followed by the
// attention and output parameters.
func (n *EgoAttentionNetwork) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	params = append(params, n.Embedding.Parameters()...)
	params = append(params, n.Attention.Parameters()...)
	params = append(params, n.Output.Parameters()...)
	return params
}
