package persist_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/nn"
	"github.com/golangast/egonet/neural/persist"
	"github.com/golangast/egonet/neural/tensor"
)

func mlpConfig() config.Config {
	return config.Config{
		"type": "MultiLayerPerceptron",
		"in":   3, "layers": []int{6}, "out": 2,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.gob")

	src, err := nn.Build(mlpConfig())
	if err != nil {
		t.Fatalf("building source model: %v", err)
	}
	if err := persist.SaveParameters(path, src.Parameters()); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh model from the same configuration has different random
	// weights until the file is loaded into it.
	dst, err := nn.Build(mlpConfig())
	if err != nil {
		t.Fatalf("building destination model: %v", err)
	}
	if err := persist.LoadParameters(path, dst.Parameters()); err != nil {
		t.Fatalf("load: %v", err)
	}

	x := tensor.NewTensor([]int{2, 3}, []float64{0.1, -0.2, 0.3, 1, 2, 3}, false)
	want, err := src.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dst.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want.Data {
		if math.Abs(want.Data[i]-got.Data[i]) > 1e-12 {
			t.Fatalf("output[%d] = %v after load, want %v", i, got.Data[i], want.Data[i])
		}
	}
}

func TestLoadCountMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.gob")

	src, err := nn.Build(mlpConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := persist.SaveParameters(path, src.Parameters()); err != nil {
		t.Fatal(err)
	}

	// A model without the projection head has fewer parameters.
	dst, err := nn.Build(config.Config{
		"type": "MultiLayerPerceptron",
		"in":   3, "layers": []int{6},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := persist.LoadParameters(path, dst.Parameters()); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestLoadShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.gob")

	src, err := nn.Build(mlpConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := persist.SaveParameters(path, src.Parameters()); err != nil {
		t.Fatal(err)
	}

	dst, err := nn.Build(config.Config{
		"type": "MultiLayerPerceptron",
		"in":   3, "layers": []int{9}, "out": 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := persist.LoadParameters(path, dst.Parameters()); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if err := persist.LoadParameters(filepath.Join(t.TempDir(), "nope.gob"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}
