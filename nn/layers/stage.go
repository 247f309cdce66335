package layers

import (
	"errors"

	"ballpolicy/tensor"
)

// ErrInvalidConfig is returned when a layer is constructed with dimensions
// or options that cannot describe a valid transform.
var ErrInvalidConfig = errors.New("invalid configuration")

// Stage is a single transform in a chain: its output feeds the next stage.
type Stage interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	Tag() string
}

// Named pairs a stage with its name inside the parent that owns it.
type Named struct {
	Name  string
	Stage Stage
}

// Parent is implemented by stages that own sub-stages.
type Parent interface {
	Children() []Named
}

// Wrapper is implemented by stages whose Forward is exactly the Forward of
// a single inner stage.
type Wrapper interface {
	Inner() Named
}
