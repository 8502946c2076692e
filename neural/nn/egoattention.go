package nn

import (
	"fmt"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/tensor"
)

// EgoAttention lets one distinguished ego entity attend over itself and a
// variable number of other entities. Keys and values are projected from the
// whole entity sequence, the query from the ego alone, and the attended
// result is blended with the raw ego features so weak attention cannot wipe
// them out.
type EgoAttention struct {
	FeatureSize int
	Heads       int

	Key     *Linear // bias-free, over concat(ego, others)
	Value   *Linear // bias-free, over concat(ego, others)
	Query   *Linear // bias-free, over ego only
	Combine *Linear // bias-free, over merged head outputs

	dropout         *Dropout
	featuresPerHead int
}

// EgoAttentionDefaults returns the recognized keys and defaults of the
// layer.
func EgoAttentionDefaults() config.Config {
	return config.Config{
		"feature_size":   64,
		"heads":          4,
		"dropout_factor": 0.0,
	}
}

// NewEgoAttention builds the layer from its configuration tree. The feature
// width must divide evenly into the configured number of heads.
func NewEgoAttention(cfg config.Config) (*EgoAttention, error) {
	cfg = config.WithDefaults(cfg, EgoAttentionDefaults())
	featureSize, err := cfg.Int("feature_size")
	if err != nil {
		return nil, fmt.Errorf("EgoAttention: %w", err)
	}
	heads, err := cfg.Int("heads")
	if err != nil {
		return nil, fmt.Errorf("EgoAttention: %w", err)
	}
	if heads <= 0 || featureSize%heads != 0 {
		return nil, &config.Error{
			Key: "heads",
			Msg: fmt.Sprintf("feature_size %d is not divisible by heads %d", featureSize, heads),
		}
	}
	return &EgoAttention{
		FeatureSize:     featureSize,
		Heads:           heads,
		Key:             NewLinearNoBias(featureSize, featureSize),
		Value:           NewLinearNoBias(featureSize, featureSize),
		Query:           NewLinearNoBias(featureSize, featureSize),
		Combine:         NewLinearNoBias(featureSize, featureSize),
		dropout:         NewDropout(cfg.FloatOr("dropout_factor", 0)),
		featuresPerHead: featureSize / heads,
	}, nil
}

// SetTraining toggles dropout on the attention probabilities. Off by
// default; inference never drops.
func (e *EgoAttention) SetTraining(training bool) {
	e.dropout.Training = training
}

// Forward attends the ego over the combined entity sequence.
//
// ego is (batch, 1, feature_size) or (batch, feature_size); others is
// (batch, nOthers, feature_size), where nOthers may be zero. mask is
// optional and marks absent entities with non-zero values, shaped either
// (batch, nOthers+1) over the full sequence or (batch, nOthers) over the
// others only (the ego is then implicitly present).
//
// It returns the blended ego result (batch, feature_size) and the attention
// probabilities (batch, heads, 1, nOthers+1) for introspection.
func (e *EgoAttention) Forward(ego, others, mask *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	ego, others, err := e.checkShapes(ego, others)
	if err != nil {
		return nil, nil, err
	}
	batch := ego.Shape[0]
	nOthers := others.Shape[1]

	mask, err = e.fullMask(mask, batch, nOthers)
	if err != nil {
		return nil, nil, err
	}

	all, err := tensor.Concat(1, ego, others)
	if err != nil {
		return nil, nil, err
	}

	keyAll, err := e.project(e.Key, all)
	if err != nil {
		return nil, nil, err
	}
	valueAll, err := e.project(e.Value, all)
	if err != nil {
		return nil, nil, err
	}
	queryEgo, err := e.project(e.Query, ego)
	if err != nil {
		return nil, nil, err
	}

	attended, weights, err := Attend(queryEgo, keyAll, valueAll, mask, e.dropout)
	if err != nil {
		return nil, nil, err
	}

	merged, err := tensor.MergeHeads(attended) // (batch, 1, feature_size)
	if err != nil {
		return nil, nil, err
	}
	flat, err := merged.Reshape(batch, e.FeatureSize)
	if err != nil {
		return nil, nil, err
	}
	combined, err := e.Combine.Forward(flat)
	if err != nil {
		return nil, nil, err
	}

	// Residual-style blend with the raw ego features.
	result := tensor.Zeros(batch, e.FeatureSize)
	for i := range result.Data {
		result.Data[i] = (combined.Data[i] + ego.Data[i]) / 2
	}
	return result, weights, nil
}

func (e *EgoAttention) checkShapes(ego, others *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	if len(ego.Shape) == 2 {
		reshaped, err := ego.Reshape(ego.Shape[0], 1, ego.Shape[1])
		if err != nil {
			return nil, nil, err
		}
		ego = reshaped
	}
	if len(ego.Shape) != 3 || ego.Shape[1] != 1 {
		return nil, nil, &tensor.ShapeError{Op: "EgoAttention", Msg: fmt.Sprintf("ego must be (batch, 1, %d), got %v", e.FeatureSize, ego.Shape)}
	}
	if ego.Shape[2] != e.FeatureSize {
		return nil, nil, &tensor.ShapeError{Op: "EgoAttention", Msg: fmt.Sprintf("ego feature width %d does not match feature_size %d", ego.Shape[2], e.FeatureSize)}
	}
	if len(others.Shape) != 3 || others.Shape[2] != e.FeatureSize {
		return nil, nil, &tensor.ShapeError{Op: "EgoAttention", Msg: fmt.Sprintf("others must be (batch, n, %d), got %v", e.FeatureSize, others.Shape)}
	}
	if others.Shape[0] != ego.Shape[0] {
		return nil, nil, &tensor.ShapeError{Op: "EgoAttention", Msg: "ego and others batch sizes differ"}
	}
	return ego, others, nil
}

// fullMask normalizes an optional mask to cover the full entity sequence.
func (e *EgoAttention) fullMask(mask *tensor.Tensor, batch, nOthers int) (*tensor.Tensor, error) {
	if mask == nil {
		return nil, nil
	}
	if len(mask.Shape) != 2 || mask.Shape[0] != batch {
		return nil, &tensor.ShapeError{Op: "EgoAttention", Msg: fmt.Sprintf("mask must be (batch, n) with batch %d, got %v", batch, mask.Shape)}
	}
	switch mask.Shape[1] {
	case nOthers + 1:
		return mask, nil
	case nOthers:
		egoPresent := tensor.Zeros(batch, 1)
		return tensor.Concat(1, egoPresent, mask)
	default:
		return nil, &tensor.ShapeError{Op: "EgoAttention", Msg: fmt.Sprintf("mask width %d matches neither %d nor %d entities", mask.Shape[1], nOthers, nOthers+1)}
	}
}

func (e *EgoAttention) project(l *Linear, x *tensor.Tensor) (*tensor.Tensor, error) {
	projected, err := l.Forward(x)
	if err != nil {
		return nil, err
	}
	return projected.SplitHeads(e.Heads)
}

// Parameters returns the four projection weight matrices.
func (e *EgoAttention) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	params = append(params, e.Key.Parameters()...)
	params = append(params, e.Value.Parameters()...)
	params = append(params, e.Query.Parameters()...)
	params = append(params, e.Combine.Parameters()...)
	return params
}
