package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when operand shapes are incompatible.
var ErrShapeMismatch = errors.New("shape mismatch")

// Tensor is a simple n-D array backed by a flat, row-major []float64.
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a zeroed Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	total := 1
	for _, d := range shape {
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// NewWithData creates a 1-D tensor from a copy of data.
func NewWithData(data []float64) *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), data...),
		Shape: []int{len(data)},
	}
}

// FromRows builds a [len(rows), width] tensor. All rows must share a width.
func FromRows(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrShapeMismatch)
	}
	w := len(rows[0])
	out := New(len(rows), w)
	for i, r := range rows {
		if len(r) != w {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrShapeMismatch, i, len(r), w)
		}
		copy(out.Data[i*w:], r)
	}
	return out, nil
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// Width is the size of the last dimension, or 0 for a scalar-shaped tensor.
func (t *Tensor) Width() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[len(t.Shape)-1]
}

// Rows is the number of width-sized rows held by t.
func (t *Tensor) Rows() int {
	w := t.Width()
	if w == 0 {
		return 0
	}
	return len(t.Data) / w
}

// Validate checks that Data holds exactly the number of elements Shape implies.
func (t *Tensor) Validate() error {
	total := 1
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", ErrShapeMismatch, t.Shape)
		}
		total *= d
	}
	if total != len(t.Data) {
		return fmt.Errorf("%w: shape %v needs %d elements, have %d", ErrShapeMismatch, t.Shape, total, len(t.Data))
	}
	return nil
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b *Tensor) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return true
}

// Add returns a+b (same shape), or error if shapes differ.
func Add(a, b *Tensor) (*Tensor, error) {
	if !SameShape(a, b) {
		return nil, fmt.Errorf("%w: %v vs %v", ErrShapeMismatch, a.Shape, b.Shape)
	}
	out := New(a.Shape...)
	floats.AddTo(out.Data, a.Data, b.Data)
	return out, nil
}

// Affine computes x·Wᵀ + b row by row, where w is [out, in] and b is [out].
// x may be a single [in] vector or a [batch, in] matrix; the result keeps
// x's rank with the last dimension replaced by out.
func Affine(x, w, b *Tensor) (*Tensor, error) {
	if len(w.Shape) != 2 {
		return nil, fmt.Errorf("%w: weight must be 2-D, got %v", ErrShapeMismatch, w.Shape)
	}
	outDim, inDim := w.Shape[0], w.Shape[1]
	if len(b.Shape) != 1 || b.Shape[0] != outDim {
		return nil, fmt.Errorf("%w: bias %v does not match weight %v", ErrShapeMismatch, b.Shape, w.Shape)
	}
	if len(x.Shape) != 1 && len(x.Shape) != 2 {
		return nil, fmt.Errorf("%w: input must be 1-D or 2-D, got %v", ErrShapeMismatch, x.Shape)
	}
	if x.Width() != inDim {
		return nil, fmt.Errorf("%w: input width %d, want %d", ErrShapeMismatch, x.Width(), inDim)
	}
	if err := x.Validate(); err != nil {
		return nil, err
	}

	batch := x.Rows()
	var out *Tensor
	if len(x.Shape) == 1 {
		out = New(outDim)
	} else {
		out = New(batch, outDim)
	}
	if batch == 0 || outDim == 0 {
		return out, nil
	}

	xm := mat.NewDense(batch, inDim, x.Data)
	wm := mat.NewDense(outDim, inDim, w.Data)
	mat.NewDense(batch, outDim, out.Data).Mul(xm, wm.T())
	for r := 0; r < batch; r++ {
		floats.Add(out.Data[r*outDim:(r+1)*outDim], b.Data)
	}
	return out, nil
}

// Map returns a new tensor with f applied to every element.
func Map(a *Tensor, f func(float64) float64) *Tensor {
	out := New(a.Shape...)
	for i, v := range a.Data {
		out.Data[i] = f(v)
	}
	return out
}

// AllClose reports whether a and b share a shape and agree elementwise
// within tol.
func AllClose(a, b *Tensor, tol float64) bool {
	if !SameShape(a, b) {
		return false
	}
	return floats.EqualApprox(a.Data, b.Data, tol)
}
