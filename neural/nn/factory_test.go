package nn_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/nn"
)

func TestBuildByType(t *testing.T) {
	m, err := nn.Build(config.Config{
		"type": "MultiLayerPerceptron",
		"in":   3, "layers": []int{4}, "out": 2,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := m.(*nn.MultiLayerPerceptron); !ok {
		t.Fatalf("Build returned %T, want *nn.MultiLayerPerceptron", m)
	}

	m, err = nn.Build(config.Config{"type": "DuelingNetwork", "in": 3, "out": 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := m.(*nn.DuelingNetwork); !ok {
		t.Fatalf("Build returned %T, want *nn.DuelingNetwork", m)
	}
}

func TestBuildUnknownType(t *testing.T) {
	_, err := nn.Build(config.Config{"type": "ConvNet"})
	var cerr *config.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *config.Error, got %v", err)
	}
	if !strings.Contains(cerr.Msg, "MultiLayerPerceptron") {
		t.Errorf("error should list known types, got %q", cerr.Msg)
	}
}

func TestBuildMissingType(t *testing.T) {
	if _, err := nn.Build(config.Config{"in": 3}); err == nil {
		t.Fatal("expected error when the type tag is missing")
	}
}

func TestBuildFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
type: EgoAttentionNetwork
in: 3
out: 2
embedding_layer:
  layers: [8]
  reshape: false
attention_layer:
  feature_size: 8
  heads: 2
output_layer:
  layers: [8]
  reshape: false
`))
	if err != nil {
		t.Fatalf("parsing yaml: %v", err)
	}
	m, err := nn.Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	net, ok := m.(*nn.EgoAttentionNetwork)
	if !ok {
		t.Fatalf("Build returned %T, want *nn.EgoAttentionNetwork", m)
	}
	y, err := net.Forward(scene([]float64{1, 1}, [][]float64{{0.1, 0.2}, {0.3, 0.4}}))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if y.Shape[1] != 2 {
		t.Errorf("output width %d, want 2", y.Shape[1])
	}
}
