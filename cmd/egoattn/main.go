// Command egoattn builds an ego-attention network from a YAML configuration,
// runs a forward pass over a small synthetic driving scene, and dumps the
// per-head attention matrix.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/davecgh/go-spew/spew"

	"github.com/golangast/egonet/neural/config"
	"github.com/golangast/egonet/neural/nn"
	"github.com/golangast/egonet/neural/tensor"
)

const defaultConfig = `
type: EgoAttentionNetwork
in: 7
out: 5
embedding_layer:
  type: MultiLayerPerceptron
  layers: [64, 64]
  reshape: false
attention_layer:
  type: EgoAttention
  feature_size: 64
  heads: 2
output_layer:
  type: MultiLayerPerceptron
  layers: [64, 64]
  reshape: false
`

func main() {
	configPath := flag.String("config", "", "path to a YAML network configuration (builtin default if empty)")
	entities := flag.Int("entities", 4, "number of entities in the scene, ego included")
	seed := flag.Int64("seed", 1, "random seed for the synthetic scene")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	model, err := nn.Build(cfg)
	if err != nil {
		log.Fatal(err)
	}
	net, ok := model.(*nn.EgoAttentionNetwork)
	if !ok {
		log.Fatalf("config builds a %T, expected an EgoAttentionNetwork", model)
	}

	in, err := cfg.Int("in")
	if err != nil {
		log.Fatal(err)
	}
	x := syntheticScene(rand.New(rand.NewSource(*seed)), *entities, in)

	q, err := net.Forward(x)
	if err != nil {
		log.Fatal(err)
	}
	weights, err := net.AttentionMatrix(x)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("q-values (%v): %v\n", q.Shape, q.Data)
	fmt.Println("attention matrix:")
	spew.Dump(weights.Shape, weights.Data)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.FromYAML([]byte(defaultConfig))
	}
	return config.FromFile(path)
}

// syntheticScene builds one batch of entities with the presence feature at
// index 0 set, and the last entity marked absent to show masking.
func syntheticScene(rng *rand.Rand, entities, features int) *tensor.Tensor {
	x := tensor.Zeros(1, entities, features)
	for e := 0; e < entities; e++ {
		x.Data[e*features] = 1 // present
		for f := 1; f < features; f++ {
			x.Data[e*features+f] = rng.NormFloat64()
		}
	}
	if entities > 1 {
		x.Data[(entities-1)*features] = 0 // absent, excluded from attention
	}
	return x
}
