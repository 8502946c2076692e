package nn

import (
	"math"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/tensor"
)

// Loss computes a scalar loss and its gradient with respect to the
// prediction. The gradient is what a training loop writes into parameter
// Grad tensors after backpropagation; the blocks themselves never call it.
type Loss func(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error)

// LossByName resolves a configured loss name: "l2", "l1" or "bce".
func LossByName(name string) (Loss, error) {
	switch name {
	case "l2":
		return L2Loss, nil
	case "l1":
		return L1Loss, nil
	case "bce":
		return BCELoss, nil
	default:
		return nil, &config.Error{Key: "loss", Msg: "unknown loss function " + name}
	}
}

// L2Loss is the mean squared error.
func L2Loss(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	if err := sameShape("L2Loss", pred, target); err != nil {
		return 0, nil, err
	}
	n := float64(len(pred.Data))
	grad := tensor.NewTensor(pred.Shape, nil, false)
	loss := 0.0
	for i, p := range pred.Data {
		diff := p - target.Data[i]
		loss += diff * diff
		grad.Data[i] = 2 * diff / n
	}
	return loss / n, grad, nil
}

// L1Loss is the mean absolute error.
func L1Loss(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	if err := sameShape("L1Loss", pred, target); err != nil {
		return 0, nil, err
	}
	n := float64(len(pred.Data))
	grad := tensor.NewTensor(pred.Shape, nil, false)
	loss := 0.0
	for i, p := range pred.Data {
		diff := p - target.Data[i]
		loss += math.Abs(diff)
		switch {
		case diff > 0:
			grad.Data[i] = 1 / n
		case diff < 0:
			grad.Data[i] = -1 / n
		}
	}
	return loss / n, grad, nil
}

// BCELoss is the binary cross-entropy over probabilities in (0, 1).
// Predictions are clamped away from 0 and 1 for numerical stability.
func BCELoss(pred, target *tensor.Tensor) (float64, *tensor.Tensor, error) {
	if err := sameShape("BCELoss", pred, target); err != nil {
		return 0, nil, err
	}
	const eps = 1e-9
	n := float64(len(pred.Data))
	grad := tensor.NewTensor(pred.Shape, nil, false)
	loss := 0.0
	for i, p := range pred.Data {
		p = math.Min(math.Max(p, eps), 1-eps)
		t := target.Data[i]
		loss -= t*math.Log(p) + (1-t)*math.Log(1-p)
		grad.Data[i] = (p - t) / (p * (1 - p) * n)
	}
	return loss / n, grad, nil
}

func sameShape(op string, a, b *tensor.Tensor) error {
	if len(a.Data) != len(b.Data) {
		return &tensor.ShapeError{Op: op, Msg: "prediction and target sizes differ"}
	}
	return nil
}
