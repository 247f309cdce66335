package layers

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ballpolicy/tensor"
)

// ActivationKind selects an elementwise nonlinearity.
type ActivationKind string

const (
	ReLU      ActivationKind = "relu"
	Tanh      ActivationKind = "tanh"
	Sigmoid   ActivationKind = "sigmoid"
	GELU      ActivationKind = "gelu"
	SiLU      ActivationKind = "silu"
	LeakyReLU ActivationKind = "leaky_relu"
	ELU       ActivationKind = "elu"
)

// leakySlope matches torch.nn.LeakyReLU's default negative slope.
const leakySlope = 0.01

// SupportedActivations maps each kind to its scalar function.
var SupportedActivations = map[ActivationKind]func(float64) float64{
	ReLU: func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	},
	Tanh: math.Tanh,
	Sigmoid: func(v float64) float64 {
		return 1 / (1 + math.Exp(-v))
	},
	// exact erf form, as torch.nn.GELU() defaults to
	GELU: func(v float64) float64 {
		return 0.5 * v * (1 + math.Erf(v/math.Sqrt2))
	},
	SiLU: func(v float64) float64 {
		return v / (1 + math.Exp(-v))
	},
	LeakyReLU: func(v float64) float64 {
		if v > 0 {
			return v
		}
		return leakySlope * v
	},
	ELU: func(v float64) float64 {
		if v > 0 {
			return v
		}
		return math.Expm1(v)
	},
}

// ActivationKinds lists the supported kinds in a stable order.
func ActivationKinds() []ActivationKind {
	kinds := make([]ActivationKind, 0, len(SupportedActivations))
	for k := range SupportedActivations {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ParseActivation resolves a case-insensitive name such as "ReLU" or "gelu".
func ParseActivation(name string) (ActivationKind, error) {
	k := ActivationKind(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := SupportedActivations[k]; !ok {
		return "", fmt.Errorf("%w: unsupported activation %q (want one of %v)", ErrInvalidConfig, name, ActivationKinds())
	}
	return k, nil
}

// Activation is a parameter-free layer applying one nonlinearity elementwise.
type Activation struct {
	kind ActivationKind
	fn   func(float64) float64
}

// NewActivation creates a new activation layer.
func NewActivation(kind ActivationKind) (*Activation, error) {
	fn, ok := SupportedActivations[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported activation %q", ErrInvalidConfig, kind)
	}
	return &Activation{kind: kind, fn: fn}, nil
}

// Kind returns the selected nonlinearity.
func (a *Activation) Kind() ActivationKind { return a.kind }

// Forward applies the nonlinearity to every element; the shape is kept.
func (a *Activation) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if err := x.Validate(); err != nil {
		return nil, err
	}
	return tensor.Map(x, a.fn), nil
}

func (a *Activation) Tag() string {
	return "Activation_" + string(a.kind)
}
