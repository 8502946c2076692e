package nn

import (
	"math"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/tensor"
)

// Optimizer updates learnable parameters from their accumulated gradients.
// Gradient production is the training loop's job; Step only consumes Grad.
type Optimizer interface {
	Step()
	ZeroGrad()
}

// OptimizerByName resolves a configured optimizer name: "ADAM" or
// "RMS_PROP".
func OptimizerByName(name string, params []*tensor.Tensor, lr, weightDecay float64) (Optimizer, error) {
	switch name {
	case "ADAM":
		return NewAdam(params, lr, weightDecay), nil
	case "RMS_PROP":
		return NewRMSProp(params, lr, weightDecay), nil
	default:
		return nil, &config.Error{Key: "optimizer", Msg: "unknown optimizer type " + name}
	}
}

// Adam is the Adam optimizer with optional L2 weight decay.
type Adam struct {
	parameters   []*tensor.Tensor
	learningRate float64
	weightDecay  float64
	beta1        float64
	beta2        float64
	epsilon      float64
	t            int
	m            map[*tensor.Tensor]*tensor.Tensor // 1st moment
	v            map[*tensor.Tensor]*tensor.Tensor // 2nd moment
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam(parameters []*tensor.Tensor, learningRate, weightDecay float64) *Adam {
	return &Adam{
		parameters:   parameters,
		learningRate: learningRate,
		weightDecay:  weightDecay,
		beta1:        0.9,
		beta2:        0.999,
		epsilon:      1e-8,
		m:            make(map[*tensor.Tensor]*tensor.Tensor),
		v:            make(map[*tensor.Tensor]*tensor.Tensor),
	}
}

// Step performs one update over all parameters that have gradients.
func (o *Adam) Step() {
	o.t++
	bc1 := 1 - math.Pow(o.beta1, float64(o.t))
	bc2 := 1 - math.Pow(o.beta2, float64(o.t))
	for _, p := range o.parameters {
		if p.Grad == nil {
			continue
		}
		if _, ok := o.m[p]; !ok {
			o.m[p] = tensor.NewTensor(p.Shape, nil, false)
			o.v[p] = tensor.NewTensor(p.Shape, nil, false)
		}
		m, v := o.m[p], o.v[p]
		for i := range p.Data {
			g := p.Grad.Data[i]
			if o.weightDecay != 0 {
				g += o.weightDecay * p.Data[i]
			}
			m.Data[i] = o.beta1*m.Data[i] + (1-o.beta1)*g
			v.Data[i] = o.beta2*v.Data[i] + (1-o.beta2)*g*g
			mHat := m.Data[i] / bc1
			vHat := v.Data[i] / bc2
			p.Data[i] -= o.learningRate * mHat / (math.Sqrt(vHat) + o.epsilon)
		}
	}
}

// ZeroGrad resets the gradients of all parameters.
func (o *Adam) ZeroGrad() {
	for _, p := range o.parameters {
		p.ZeroGrad()
	}
}

// RMSProp is the RMSProp optimizer with optional L2 weight decay.
type RMSProp struct {
	parameters   []*tensor.Tensor
	learningRate float64
	weightDecay  float64
	alpha        float64
	epsilon      float64
	cache        map[*tensor.Tensor]*tensor.Tensor // running squared gradient
}

// NewRMSProp creates an RMSProp optimizer over the given parameters.
func NewRMSProp(parameters []*tensor.Tensor, learningRate, weightDecay float64) *RMSProp {
	return &RMSProp{
		parameters:   parameters,
		learningRate: learningRate,
		weightDecay:  weightDecay,
		alpha:        0.99,
		epsilon:      1e-8,
		cache:        make(map[*tensor.Tensor]*tensor.Tensor),
	}
}

// Step performs one update over all parameters that have gradients.
func (o *RMSProp) Step() {
	for _, p := range o.parameters {
		if p.Grad == nil {
			continue
		}
		if _, ok := o.cache[p]; !ok {
			o.cache[p] = tensor.NewTensor(p.Shape, nil, false)
		}
		sq := o.cache[p]
		for i := range p.Data {
			g := p.Grad.Data[i]
			if o.weightDecay != 0 {
				g += o.weightDecay * p.Data[i]
			}
			sq.Data[i] = o.alpha*sq.Data[i] + (1-o.alpha)*g*g
			p.Data[i] -= o.learningRate * g / (math.Sqrt(sq.Data[i]) + o.epsilon)
		}
	}
}

// ZeroGrad resets the gradients of all parameters.
func (o *RMSProp) ZeroGrad() {
	for _, p := range o.parameters {
		p.ZeroGrad()
	}
}
