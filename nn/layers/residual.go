package layers

import (
	"fmt"
	"strconv"
	"strings"

	"ballpolicy/tensor"

	"golang.org/x/exp/rand"
)

// ResidualBlock computes main(x) + skip(x), where the main path is
// Linear(in→out), act, Linear(out→out), act and the skip path is a single
// Linear(in→out) projection.
type ResidualBlock struct {
	Main []Stage
	Skip *Linear
}

// NewResidualBlock builds a block mapping inDim to outDim.
func NewResidualBlock(inDim, outDim int, kind ActivationKind) (*ResidualBlock, error) {
	first, err := NewLinear(inDim, outDim)
	if err != nil {
		return nil, err
	}
	second, err := NewLinear(outDim, outDim)
	if err != nil {
		return nil, err
	}
	skip, err := NewLinear(inDim, outDim)
	if err != nil {
		return nil, err
	}
	act, err := NewActivation(kind)
	if err != nil {
		return nil, err
	}
	// the activation carries no parameters, so both slots share one instance
	return &ResidualBlock{
		Main: []Stage{first, act, second, act},
		Skip: skip,
	}, nil
}

// Reset re-initialises every Linear in the block from src.
func (r *ResidualBlock) Reset(src rand.Source) {
	for _, m := range r.Main {
		if l, ok := m.(*Linear); ok {
			l.Reset(src)
		}
	}
	r.Skip.Reset(src)
}

// InDim is the expected width of the input.
func (r *ResidualBlock) InDim() int { return r.Skip.InDim() }

// OutDim is the width of the output.
func (r *ResidualBlock) OutDim() int { return r.Skip.OutDim() }

// Forward runs the main path and the skip projection and sums them.
func (r *ResidualBlock) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Width() != r.InDim() {
		return nil, fmt.Errorf("%s: %w: input width %d, want %d", r.Tag(), tensor.ErrShapeMismatch, x.Width(), r.InDim())
	}
	out := x
	var err error
	for _, m := range r.Main {
		out, err = m.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Tag(), err)
		}
	}
	skip, err := r.Skip.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Tag(), err)
	}
	return tensor.Add(out, skip)
}

// MainPath returns the main-path stages named by position ("net.0", ...).
func (r *ResidualBlock) MainPath() []Named {
	named := make([]Named, len(r.Main))
	for i, m := range r.Main {
		named[i] = Named{Name: "net." + strconv.Itoa(i), Stage: m}
	}
	return named
}

// SkipPath returns the skip projection.
func (r *ResidualBlock) SkipPath() Named {
	return Named{Name: "res_connect", Stage: r.Skip}
}

// Children lists the main path followed by the skip path.
func (r *ResidualBlock) Children() []Named {
	return append(r.MainPath(), r.SkipPath())
}

func (r *ResidualBlock) Tag() string {
	tags := make([]string, 0, len(r.Main)+1)
	for _, m := range r.Main {
		tags = append(tags, m.Tag())
	}
	tags = append(tags, "+"+r.Skip.Tag())
	return "ResidualBlock[" + strings.Join(tags, ",") + "]"
}
