// Package persist saves and loads network parameters using gob encoding.
// Only the parameter tensors travel; the network structure itself is rebuilt
// from its configuration tree, so a file can be loaded into any network
// constructed from the same configuration.
package persist

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/golangast/egonet/neural/tensor"
)

// SaveParameters writes the given parameter tensors to path.
func SaveParameters(filePath string, params []*tensor.Tensor) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("persist: creating %s: %w", filePath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(params); err != nil {
		return fmt.Errorf("persist: encoding parameters: %w", err)
	}
	return nil
}

// LoadParameters reads parameters from path into the given tensors, which
// must match the file in count and shape. Gradient state is untouched.
func LoadParameters(filePath string, params []*tensor.Tensor) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("persist: opening %s: %w", filePath, err)
	}
	defer file.Close()

	var loaded []*tensor.Tensor
	if err := gob.NewDecoder(file).Decode(&loaded); err != nil {
		return fmt.Errorf("persist: decoding parameters: %w", err)
	}
	if len(loaded) != len(params) {
		return fmt.Errorf("persist: parameter count mismatch: file has %d, network has %d", len(loaded), len(params))
	}
	for i, p := range params {
		if len(loaded[i].Data) != len(p.Data) {
			return fmt.Errorf("persist: parameter %d shape mismatch: file %v, network %v", i, loaded[i].Shape, p.Shape)
		}
		copy(p.Data, loaded[i].Data)
	}
	return nil
}
