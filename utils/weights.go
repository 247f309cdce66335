package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"ballpolicy/nn"
	"ballpolicy/tensor"
)

// WeightsVersion tags the JSON layout written by SaveWeights.
const WeightsVersion = "1.0"

// WeightData represents serializable data for one parameter
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all parameters of a model, in state dict order.
type ModelWeights struct {
	Version string        `json:"version"`
	Params  []*WeightData `json:"params"`
}

// NewModelWeights copies a state dict into its serializable form.
func NewModelWeights(params []nn.Param) *ModelWeights {
	w := &ModelWeights{Version: WeightsVersion, Params: make([]*WeightData, len(params))}
	for i, p := range params {
		w.Params[i] = TensorToWeightData(p.Name, p.Tensor)
	}
	return w
}

// StateDict returns the weights keyed by name, ready for nn.LoadStateDict.
func (w *ModelWeights) StateDict() (map[string]*tensor.Tensor, error) {
	out := make(map[string]*tensor.Tensor, len(w.Params))
	for _, wd := range w.Params {
		if _, dup := out[wd.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", wd.Name)
		}
		t, err := WeightDataToTensor(wd)
		if err != nil {
			return nil, err
		}
		out[wd.Name] = t
	}
	return out, nil
}

// NumParams counts the scalars across all parameters.
func (w *ModelWeights) NumParams() int {
	n := 0
	for _, wd := range w.Params {
		n += len(wd.Data)
	}
	return n
}

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return &weights, nil
}

// TensorToWeightData converts a tensor to serializable weight data
func TensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: append([]int{}, t.Shape...),
		Data:  append([]float64{}, t.Data...), // copy
	}
}

// WeightDataToTensor converts weight data back to a tensor
func WeightDataToTensor(wd *WeightData) (*tensor.Tensor, error) {
	for _, d := range wd.Shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: %s has shape %v", tensor.ErrShapeMismatch, wd.Name, wd.Shape)
		}
	}
	t := tensor.New(wd.Shape...)
	if len(t.Data) != len(wd.Data) {
		return nil, fmt.Errorf("%w: %s has %d values for shape %v", tensor.ErrShapeMismatch, wd.Name, len(wd.Data), wd.Shape)
	}
	copy(t.Data, wd.Data)
	return t, nil
}
