package nn_test

import (
	"errors"
	"math"
	"testing"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/nn"
	"github.com/golangast/egonet/neural/tensor"
)

func paramWithGrad(values, grads []float64) *tensor.Tensor {
	p := tensor.NewTensor([]int{len(values)}, values, true)
	g := p.EnsureGrad()
	copy(g.Data, grads)
	return p
}

func TestAdamStepMovesAgainstGradient(t *testing.T) {
	p := paramWithGrad([]float64{1, -1}, []float64{0.5, -0.5})
	opt := nn.NewAdam([]*tensor.Tensor{p}, 1e-2, 0)
	opt.Step()

	if p.Data[0] >= 1 {
		t.Errorf("positive gradient should lower the parameter, got %v", p.Data[0])
	}
	if p.Data[1] <= -1 {
		t.Errorf("negative gradient should raise the parameter, got %v", p.Data[1])
	}
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	// Minimize (x - 3)^2 by hand-feeding the analytic gradient.
	p := paramWithGrad([]float64{0}, []float64{0})
	opt := nn.NewAdam([]*tensor.Tensor{p}, 0.1, 0)
	for i := 0; i < 500; i++ {
		p.Grad.Data[0] = 2 * (p.Data[0] - 3)
		opt.Step()
	}
	if math.Abs(p.Data[0]-3) > 0.05 {
		t.Errorf("Adam did not converge: x = %v, want 3", p.Data[0])
	}
}

func TestRMSPropStep(t *testing.T) {
	p := paramWithGrad([]float64{2}, []float64{1})
	opt := nn.NewRMSProp([]*tensor.Tensor{p}, 1e-2, 0)
	opt.Step()
	if p.Data[0] >= 2 {
		t.Errorf("positive gradient should lower the parameter, got %v", p.Data[0])
	}
}

func TestOptimizerSkipsNilGrad(t *testing.T) {
	p := tensor.NewTensor([]int{2}, []float64{1, 2}, true)
	opt := nn.NewAdam([]*tensor.Tensor{p}, 1e-2, 0)
	opt.Step()
	if p.Data[0] != 1 || p.Data[1] != 2 {
		t.Error("parameter without gradient must not move")
	}
}

func TestZeroGrad(t *testing.T) {
	p := paramWithGrad([]float64{1}, []float64{5})
	opt := nn.NewAdam([]*tensor.Tensor{p}, 1e-2, 0)
	opt.ZeroGrad()
	if p.Grad.Data[0] != 0 {
		t.Errorf("gradient after ZeroGrad = %v, want 0", p.Grad.Data[0])
	}
}

func TestWeightDecayPullsTowardZero(t *testing.T) {
	// Zero gradient: with decay the parameter still shrinks.
	withDecay := paramWithGrad([]float64{1}, []float64{0})
	opt := nn.NewAdam([]*tensor.Tensor{withDecay}, 1e-2, 0.1)
	opt.Step()
	if withDecay.Data[0] >= 1 {
		t.Errorf("weight decay should shrink the parameter, got %v", withDecay.Data[0])
	}
}

func TestOptimizerByName(t *testing.T) {
	p := paramWithGrad([]float64{1}, []float64{1})
	for _, name := range []string{"ADAM", "RMS_PROP"} {
		if _, err := nn.OptimizerByName(name, []*tensor.Tensor{p}, 1e-3, 0); err != nil {
			t.Errorf("OptimizerByName(%q): %v", name, err)
		}
	}
	_, err := nn.OptimizerByName("SGD", []*tensor.Tensor{p}, 1e-3, 0)
	var cerr *config.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *config.Error for unknown optimizer, got %v", err)
	}
}
