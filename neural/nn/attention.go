package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/golangast/egonet/neural/tensor"
)

// maskSentinel is added to masked attention scores before softmax so their
// probability underflows to zero.
const maskSentinel = -1e9

// Dropout zeroes attention probabilities at the configured rate, rescaling
// the survivors. It only acts while Training is set; the owner of the layer
// controls that flag.
type Dropout struct {
	Rate     float64
	Training bool

	rng *rand.Rand
}

// NewDropout creates a dropout with the given rate, inactive until Training
// is enabled.
func NewDropout(rate float64) *Dropout {
	return &Dropout{Rate: rate, rng: rand.New(rand.NewSource(rand.Int63()))}
}

func (d *Dropout) apply(row []float64) {
	if d == nil || !d.Training || d.Rate <= 0 {
		return
	}
	keep := 1 - d.Rate
	for i := range row {
		if d.rng.Float64() < d.Rate {
			row[i] = 0
		} else {
			row[i] /= keep
		}
	}
}

// Attend computes masked multi-head scaled dot-product attention.
//
// query is (batch, heads, qEntities, d) and key/value are
// (batch, heads, kvEntities, d). mask is optional; a non-zero value at
// (batch, kvEntity) excludes that entity for every head and query row.
// It returns the attended output (batch, heads, qEntities, d) and the
// probability tensor (batch, heads, qEntities, kvEntities).
//
// Scores are scaled by 1/sqrt(d) to keep softmax inputs in a stable range
// as d grows. A query row whose key positions are all masked yields zero
// probabilities and zero output.
func Attend(query, key, value, mask *tensor.Tensor, dropout *Dropout) (*tensor.Tensor, *tensor.Tensor, error) {
	if len(query.Shape) != 4 || len(key.Shape) != 4 || len(value.Shape) != 4 {
		return nil, nil, &tensor.ShapeError{Op: "Attend", Msg: "query, key and value must be 4-D (batch, heads, entities, depth)"}
	}
	batch, heads, nq, depth := query.Shape[0], query.Shape[1], query.Shape[2], query.Shape[3]
	nk := key.Shape[2]
	if key.Shape[0] != batch || key.Shape[1] != heads || key.Shape[3] != depth {
		return nil, nil, &tensor.ShapeError{Op: "Attend", Msg: "key shape incompatible with query"}
	}
	if value.Shape[0] != batch || value.Shape[1] != heads || value.Shape[2] != nk || value.Shape[3] != depth {
		return nil, nil, &tensor.ShapeError{Op: "Attend", Msg: "value shape incompatible with key"}
	}
	if mask != nil && (len(mask.Shape) != 2 || mask.Shape[0] != batch || mask.Shape[1] != nk) {
		return nil, nil, &tensor.ShapeError{Op: "Attend", Msg: "mask must be (batch, kvEntities)"}
	}

	out := tensor.Zeros(batch, heads, nq, depth)
	weights := tensor.Zeros(batch, heads, nq, nk)
	scale := 1 / math.Sqrt(float64(depth))
	scores := make([]float64, nq*nk)

	for b := 0; b < batch; b++ {
		var maskRow []float64
		if mask != nil {
			maskRow = mask.Data[b*nk : (b+1)*nk]
		}
		for h := 0; h < heads; h++ {
			qOff := ((b*heads + h) * nq) * depth
			kvOff := ((b*heads + h) * nk) * depth
			q := mat.NewDense(nq, depth, query.Data[qOff:qOff+nq*depth])
			k := mat.NewDense(nk, depth, key.Data[kvOff:kvOff+nk*depth])
			v := mat.NewDense(nk, depth, value.Data[kvOff:kvOff+nk*depth])

			s := mat.NewDense(nq, nk, scores)
			s.Mul(q, k.T())
			s.Scale(scale, s)

			wOff := (b*heads + h) * nq * nk
			for i := 0; i < nq; i++ {
				row := scores[i*nk : (i+1)*nk]
				probs := weights.Data[wOff+i*nk : wOff+(i+1)*nk]
				softmaxMasked(row, maskRow, probs)
				dropout.apply(probs)
			}

			w := mat.NewDense(nq, nk, weights.Data[wOff:wOff+nq*nk])
			o := mat.NewDense(nq, depth, out.Data[qOff:qOff+nq*depth])
			o.Mul(w, v)
		}
	}
	return out, weights, nil
}

// softmaxMasked writes softmax(row) into probs, excluding masked positions.
// A fully masked row produces all-zero probabilities.
func softmaxMasked(row, maskRow, probs []float64) {
	allMasked := maskRow != nil
	if maskRow != nil {
		for j := range row {
			if maskRow[j] != 0 {
				row[j] = maskSentinel
			} else {
				allMasked = false
			}
		}
	}
	if allMasked {
		for j := range probs {
			probs[j] = 0
		}
		return
	}
	maxVal := math.Inf(-1)
	for _, v := range row {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	for j, v := range row {
		probs[j] = math.Exp(v - maxVal)
		sum += probs[j]
	}
	for j := range probs {
		probs[j] /= sum
	}
}
