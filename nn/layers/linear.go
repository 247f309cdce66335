package layers

import (
	"fmt"
	"math"

	"ballpolicy/tensor"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Linear is a fully-connected layer computing y = x·Wᵀ + B.
type Linear struct {
	// W is [outDim, inDim]; B is [outDim].
	W, B *tensor.Tensor
}

// NewLinear(inDim→outDim) allocates zeroed W and B.
func NewLinear(inDim, outDim int) (*Linear, error) {
	if inDim <= 0 || outDim <= 0 {
		return nil, fmt.Errorf("%w: linear layer %d→%d needs positive widths", ErrInvalidConfig, inDim, outDim)
	}
	return &Linear{W: tensor.New(outDim, inDim), B: tensor.New(outDim)}, nil
}

// InDim is the expected width of the input.
func (l *Linear) InDim() int { return l.W.Shape[1] }

// OutDim is the width of the output.
func (l *Linear) OutDim() int { return l.W.Shape[0] }

// Reset draws W and B from U(-1/√in, 1/√in), the same bound torch's
// nn.Linear uses by default.
func (l *Linear) Reset(src rand.Source) {
	bound := 1 / math.Sqrt(float64(l.InDim()))
	u := distuv.Uniform{Min: -bound, Max: bound, Src: src}
	for i := range l.W.Data {
		l.W.Data[i] = u.Rand()
	}
	for i := range l.B.Data {
		l.B.Data[i] = u.Rand()
	}
}

// Forward computes y = Wx + B for a single vector or a [batch, in] matrix.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	y, err := tensor.Affine(x, l.W, l.B)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Tag(), err)
	}
	return y, nil
}

func (l *Linear) Tag() string {
	return fmt.Sprintf("Linear_%d_%d", l.InDim(), l.OutDim())
}
