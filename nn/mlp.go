package nn

import (
	"fmt"

	"ballpolicy/nn/layers"
	"ballpolicy/tensor"

	"golang.org/x/exp/rand"
)

// MLP is a stack of residual blocks closed by a plain linear projection.
// Widths [w0, w1, ..., wn] give blocks w0→w1, ..., w(n-2)→w(n-1) and a
// final Linear w(n-1)→wn with no activation.
type MLP struct {
	net    *Sequential
	widths []int
	kind   layers.ActivationKind
}

// ValidateWidths checks that widths hold at least an input and an output
// and that every entry is positive.
func ValidateWidths(widths []int) error {
	if len(widths) < 2 {
		return fmt.Errorf("%w: need at least 2 widths (input and output), got %d", ErrInvalidConfig, len(widths))
	}
	for i, w := range widths {
		if w <= 0 {
			return fmt.Errorf("%w: width %d at position %d must be positive", ErrInvalidConfig, w, i)
		}
	}
	return nil
}

// NewMLP builds the stack and initialises its parameters from src. A nil
// src leaves every parameter at zero.
func NewMLP(widths []int, kind layers.ActivationKind, src rand.Source) (*MLP, error) {
	if err := ValidateWidths(widths); err != nil {
		return nil, err
	}
	if _, err := layers.NewActivation(kind); err != nil {
		return nil, err
	}

	net := NewSequential()
	c := widths[0]
	for _, w := range widths[1 : len(widths)-1] {
		block, err := layers.NewResidualBlock(c, w, kind)
		if err != nil {
			return nil, err
		}
		if src != nil {
			block.Reset(src)
		}
		net.Append(block)
		c = w
	}
	head, err := layers.NewLinear(c, widths[len(widths)-1])
	if err != nil {
		return nil, err
	}
	if src != nil {
		head.Reset(src)
	}
	net.Append(head)

	return &MLP{
		net:    net,
		widths: append([]int(nil), widths...),
		kind:   kind,
	}, nil
}

// Widths returns a copy of the width specification.
func (m *MLP) Widths() []int { return append([]int(nil), m.widths...) }

// Activation returns the nonlinearity used inside the residual blocks.
func (m *MLP) Activation() layers.ActivationKind { return m.kind }

// NumBlocks is the number of residual blocks before the final projection.
func (m *MLP) NumBlocks() int { return len(m.net.Layers) - 1 }

// Layers exposes the ordered stages.
func (m *MLP) Layers() []Module { return m.net.Layers }

// Forward runs x through every stage. The last dimension of x must equal
// the first width.
func (m *MLP) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Width() != m.widths[0] {
		return nil, fmt.Errorf("mlp: %w: input width %d, want %d", ErrShapeMismatch, x.Width(), m.widths[0])
	}
	return m.net.Forward(x)
}

// Inner exposes the stage chain under the name "net".
func (m *MLP) Inner() layers.Named {
	return layers.Named{Name: "net", Stage: m.net}
}

// Children implements layers.Parent.
func (m *MLP) Children() []layers.Named {
	return []layers.Named{m.Inner()}
}

func (m *MLP) Tag() string {
	return fmt.Sprintf("MLP%v", m.widths)
}
