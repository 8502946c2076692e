// Package tensor implements the small dense-tensor runtime the network
// blocks are built on: a flat float64 buffer with a shape, plus the handful
// of operations attention and feed-forward layers need. Matrix products are
// delegated to gonum.
package tensor

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a multi-dimensional array of float64 values stored row-major.
// Grad holds the accumulated gradient for learnable parameters; it is
// populated by an external training loop, never by the forward passes here.
type Tensor struct {
	Data         []float64
	Shape        []int
	Grad         *Tensor
	RequiresGrad bool
}

// ShapeError reports an input tensor whose shape violates an operation's
// contract. It is surfaced immediately and never recovered internally.
type ShapeError struct {
	Op  string
	Msg string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("tensor: %s: %s", e.Op, e.Msg)
}

func shapeErrorf(op, format string, args ...any) *ShapeError {
	return &ShapeError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NewTensor creates a tensor with the given shape. A nil data slice
// allocates a zero-filled buffer.
func NewTensor(shape []int, data []float64, requiresGrad bool) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if data == nil {
		data = make([]float64, size)
	}
	if len(data) != size {
		panic(fmt.Sprintf("tensor: shape %v needs %d values, got %d", shape, size, len(data)))
	}
	shp := make([]int, len(shape))
	copy(shp, shape)
	return &Tensor{Data: data, Shape: shp, RequiresGrad: requiresGrad}
}

// Zeros creates a zero-filled tensor.
func Zeros(shape ...int) *Tensor {
	return NewTensor(shape, nil, false)
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.Shape {
		size *= dim
	}
	return size
}

// Clone returns a deep copy. Gradient state is not carried over.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return NewTensor(t.Shape, data, t.RequiresGrad)
}

// Reshape returns a tensor sharing this tensor's buffer under a new shape.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	if size != t.Size() {
		return nil, shapeErrorf("Reshape", "cannot view %v as %v", t.Shape, shape)
	}
	shp := make([]int, len(shape))
	copy(shp, shape)
	return &Tensor{Data: t.Data, Shape: shp, RequiresGrad: t.RequiresGrad}, nil
}

// ZeroGrad clears the accumulated gradient.
func (t *Tensor) ZeroGrad() {
	if t.Grad == nil {
		return
	}
	for i := range t.Grad.Data {
		t.Grad.Data[i] = 0
	}
}

// EnsureGrad returns the gradient tensor, allocating it on first use.
func (t *Tensor) EnsureGrad() *Tensor {
	if t.Grad == nil {
		t.Grad = NewTensor(t.Shape, nil, false)
	}
	return t.Grad
}

// MatMul computes the 2-D matrix product t @ other via gonum.
func (t *Tensor) MatMul(other *Tensor) (*Tensor, error) {
	if len(t.Shape) != 2 || len(other.Shape) != 2 {
		return nil, shapeErrorf("MatMul", "need 2-D operands, got %v and %v", t.Shape, other.Shape)
	}
	r, k := t.Shape[0], t.Shape[1]
	k2, c := other.Shape[0], other.Shape[1]
	if k != k2 {
		return nil, shapeErrorf("MatMul", "inner dimensions differ: %v vs %v", t.Shape, other.Shape)
	}
	out := Zeros(r, c)
	if r == 0 || c == 0 || k == 0 {
		return out, nil
	}
	a := mat.NewDense(r, k, t.Data)
	b := mat.NewDense(k2, c, other.Data)
	res := mat.NewDense(r, c, out.Data)
	res.Mul(a, b)
	return out, nil
}

// Concat concatenates tensors of equal rank along axis. All dimensions
// except axis must match. Zero-width operands are permitted.
func Concat(axis int, tensors ...*Tensor) (*Tensor, error) {
	if len(tensors) == 0 {
		return nil, shapeErrorf("Concat", "no operands")
	}
	first := tensors[0]
	rank := len(first.Shape)
	if axis < 0 || axis >= rank {
		return nil, shapeErrorf("Concat", "axis %d out of range for rank %d", axis, rank)
	}
	outShape := make([]int, rank)
	copy(outShape, first.Shape)
	outShape[axis] = 0
	for _, t := range tensors {
		if len(t.Shape) != rank {
			return nil, shapeErrorf("Concat", "rank mismatch: %v vs %v", first.Shape, t.Shape)
		}
		for d := 0; d < rank; d++ {
			if d != axis && t.Shape[d] != first.Shape[d] {
				return nil, shapeErrorf("Concat", "shape mismatch on axis %d: %v vs %v", d, first.Shape, t.Shape)
			}
		}
		outShape[axis] += t.Shape[axis]
	}
	out := Zeros(outShape...)

	outer := 1
	for d := 0; d < axis; d++ {
		outer *= outShape[d]
	}
	inner := 1
	for d := axis + 1; d < rank; d++ {
		inner *= outShape[d]
	}
	outRow := outShape[axis] * inner
	offset := 0
	for _, t := range tensors {
		row := t.Shape[axis] * inner
		for o := 0; o < outer; o++ {
			copy(out.Data[o*outRow+offset:o*outRow+offset+row], t.Data[o*row:(o+1)*row])
		}
		offset += row
	}
	return out, nil
}

// SplitHeads reshapes a (batch, entities, heads*depth) tensor into the
// per-head layout (batch, heads, entities, depth) used by attention.
func (t *Tensor) SplitHeads(heads int) (*Tensor, error) {
	if len(t.Shape) != 3 {
		return nil, shapeErrorf("SplitHeads", "need 3-D input, got %v", t.Shape)
	}
	batch, entities, features := t.Shape[0], t.Shape[1], t.Shape[2]
	if heads <= 0 || features%heads != 0 {
		return nil, shapeErrorf("SplitHeads", "feature width %d not divisible by %d heads", features, heads)
	}
	depth := features / heads
	out := Zeros(batch, heads, entities, depth)
	for b := 0; b < batch; b++ {
		for e := 0; e < entities; e++ {
			for h := 0; h < heads; h++ {
				src := (b*entities+e)*features + h*depth
				dst := ((b*heads+h)*entities + e) * depth
				copy(out.Data[dst:dst+depth], t.Data[src:src+depth])
			}
		}
	}
	return out, nil
}

// MergeHeads is the inverse of SplitHeads: (batch, heads, entities, depth)
// back to (batch, entities, heads*depth).
func MergeHeads(t *Tensor) (*Tensor, error) {
	if len(t.Shape) != 4 {
		return nil, shapeErrorf("MergeHeads", "need 4-D input, got %v", t.Shape)
	}
	batch, heads, entities, depth := t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]
	features := heads * depth
	out := Zeros(batch, entities, features)
	for b := 0; b < batch; b++ {
		for h := 0; h < heads; h++ {
			for e := 0; e < entities; e++ {
				src := ((b*heads+h)*entities + e) * depth
				dst := (b*entities+e)*features + h*depth
				copy(out.Data[dst:dst+depth], t.Data[src:src+depth])
			}
		}
	}
	return out, nil
}

// GobEncode implements gob.GobEncoder. Gradient state is not persisted.
func (t *Tensor) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(t.Shape); err != nil {
		return nil, err
	}
	if err := enc.Encode(t.Data); err != nil {
		return nil, err
	}
	if err := enc.Encode(t.RequiresGrad); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (t *Tensor) GobDecode(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&t.Shape); err != nil {
		return err
	}
	if err := dec.Decode(&t.Data); err != nil {
		return err
	}
	return dec.Decode(&t.RequiresGrad)
}
