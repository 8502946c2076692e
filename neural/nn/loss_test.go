package nn_test

import (
	"errors"
	"math"
	"testing"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/nn"
	"github.com/golangast/egonet/neural/tensor"
)

func TestL2Loss(t *testing.T) {
	pred := tensor.NewTensor([]int{1, 2}, []float64{1, 3}, false)
	target := tensor.NewTensor([]int{1, 2}, []float64{0, 1}, false)

	loss, grad, err := nn.L2Loss(pred, target)
	if err != nil {
		t.Fatal(err)
	}
	// ((1)^2 + (2)^2) / 2 = 2.5
	if math.Abs(loss-2.5) > 1e-12 {
		t.Errorf("loss = %v, want 2.5", loss)
	}
	want := []float64{1, 2} // 2*diff/n
	for i := range want {
		if math.Abs(grad.Data[i]-want[i]) > 1e-12 {
			t.Errorf("grad[%d] = %v, want %v", i, grad.Data[i], want[i])
		}
	}
}

func TestL1Loss(t *testing.T) {
	pred := tensor.NewTensor([]int{1, 2}, []float64{1, -2}, false)
	target := tensor.NewTensor([]int{1, 2}, []float64{0, 0}, false)

	loss, grad, err := nn.L1Loss(pred, target)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss-1.5) > 1e-12 {
		t.Errorf("loss = %v, want 1.5", loss)
	}
	if grad.Data[0] != 0.5 || grad.Data[1] != -0.5 {
		t.Errorf("grad = %v, want [0.5 -0.5]", grad.Data)
	}
}

func TestBCELoss(t *testing.T) {
	pred := tensor.NewTensor([]int{1, 2}, []float64{0.9, 0.1}, false)
	target := tensor.NewTensor([]int{1, 2}, []float64{1, 0}, false)

	loss, grad, err := nn.BCELoss(pred, target)
	if err != nil {
		t.Fatal(err)
	}
	want := -math.Log(0.9)
	if math.Abs(loss-want) > 1e-9 {
		t.Errorf("loss = %v, want %v", loss, want)
	}
	if grad.Data[0] >= 0 {
		t.Error("gradient for an under-confident true positive should be negative")
	}
	if grad.Data[1] <= 0 {
		t.Error("gradient for an over-confident false positive should be positive")
	}

	// Saturated predictions must stay finite through the clamp.
	satPred := tensor.NewTensor([]int{1, 2}, []float64{0, 1}, false)
	loss, grad, err = nn.BCELoss(satPred, target)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsInf(loss, 0) || math.IsNaN(loss) {
		t.Errorf("saturated loss not finite: %v", loss)
	}
	for i, g := range grad.Data {
		if math.IsInf(g, 0) || math.IsNaN(g) {
			t.Errorf("saturated grad[%d] not finite: %v", i, g)
		}
	}
}

func TestLossShapeMismatch(t *testing.T) {
	pred := tensor.Zeros(1, 2)
	target := tensor.Zeros(1, 3)
	_, _, err := nn.L2Loss(pred, target)
	var serr *tensor.ShapeError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *tensor.ShapeError, got %v", err)
	}
}

func TestLossByName(t *testing.T) {
	for _, name := range []string{"l2", "l1", "bce"} {
		if _, err := nn.LossByName(name); err != nil {
			t.Errorf("LossByName(%q): %v", name, err)
		}
	}
	_, err := nn.LossByName("huber")
	var cerr *config.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *config.Error for unknown loss, got %v", err)
	}
}
