package nn

import (
	"fmt"
	"strconv"
	"strings"

	"ballpolicy/nn/layers"
	"ballpolicy/tensor"
)

var (
	// ErrInvalidConfig is returned for widths or options that cannot build a network.
	ErrInvalidConfig = layers.ErrInvalidConfig
	// ErrShapeMismatch is returned when an input's width disagrees with a module.
	ErrShapeMismatch = tensor.ErrShapeMismatch
)

// Module defines a single layer/unit in the network.
type Module interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	Tag() string
}

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// NewSequential returns a Sequential over the given modules.
func NewSequential(mods ...Module) *Sequential {
	return &Sequential{Layers: mods}
}

// Append adds a module to the end of the chain.
func (s *Sequential) Append(m Module) {
	s.Layers = append(s.Layers, m)
}

// Forward applies each layer in sequence, feeding each output to the next.
func (s *Sequential) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := x
	var err error
	for i, layer := range s.Layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, layer.Tag(), err)
		}
	}
	return out, nil
}

// Children names each layer by its position in the chain.
func (s *Sequential) Children() []layers.Named {
	named := make([]layers.Named, len(s.Layers))
	for i, m := range s.Layers {
		named[i] = layers.Named{Name: strconv.Itoa(i), Stage: m}
	}
	return named
}

func (s *Sequential) Tag() string {
	tags := make([]string, len(s.Layers))
	for i, m := range s.Layers {
		tags[i] = m.Tag()
	}
	return "Sequential[" + strings.Join(tags, ",") + "]"
}
