package bench

import (
	"fmt"
	"time"

	"ballpolicy/nn"
	"ballpolicy/nn/layers"
	"ballpolicy/tensor"
)

// LayerTime is the mean forward time of one top-level layer.
type LayerTime struct {
	Index int
	Key   string
	Fwd   time.Duration
}

// TimeForward returns the mean wall time of numRuns forward passes.
func TimeForward(m layers.Stage, x *tensor.Tensor, numRuns int) (time.Duration, error) {
	if numRuns < 1 {
		numRuns = 1
	}
	var sum time.Duration
	for i := 0; i < numRuns; i++ {
		start := time.Now()
		if _, err := m.Forward(x); err != nil {
			return 0, fmt.Errorf("%s: %w", m.Tag(), err)
		}
		sum += time.Since(start)
	}
	return sum / time.Duration(numRuns), nil
}

func layerKey(m nn.Module) string {
	switch l := m.(type) {
	case *layers.Linear:
		return fmt.Sprintf("Linear(%d,%d)", l.InDim(), l.OutDim())
	case *layers.ResidualBlock:
		return fmt.Sprintf("ResidualBlock(%d,%d)", l.InDim(), l.OutDim())
	default:
		return m.Tag()
	}
}

// TimeLayers times each top-level layer of mlp in turn, feeding each the
// previous layer's output.
func TimeLayers(mlp *nn.MLP, x *tensor.Tensor, numRuns int) ([]LayerTime, error) {
	out := make([]LayerTime, 0, mlp.NumBlocks()+1)
	for i, l := range mlp.Layers() {
		fwd, err := TimeForward(l, x, numRuns)
		if err != nil {
			return nil, err
		}
		out = append(out, LayerTime{Index: i, Key: layerKey(l), Fwd: fwd})
		if x, err = l.Forward(x); err != nil {
			return nil, err
		}
	}
	return out, nil
}
