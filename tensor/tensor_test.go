package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShape(t *testing.T) {
	t1 := New(2, 3)
	if len(t1.Data) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(t1.Data))
	}
	if len(t1.Shape) != 2 || t1.Shape[0] != 2 || t1.Shape[1] != 3 {
		t.Fatalf("unexpected shape: %v", t1.Shape)
	}
	if t1.Width() != 3 || t1.Rows() != 2 {
		t.Fatalf("width/rows = %d/%d, want 3/2", t1.Width(), t1.Rows())
	}
}

func TestAdd(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3}, Shape: []int{3}}
	b := &Tensor{Data: []float64{4, 5, 6}, Shape: []int{3}}
	c, err := Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{5, 7, 9}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}

func TestAddShapeMismatch(t *testing.T) {
	_, err := Add(New(3), New(1, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestAffineVector(t *testing.T) {
	// W = [[1 2 3] [4 5 6]], b = [0.5 -1]
	w := &Tensor{Data: []float64{1, 2, 3, 4, 5, 6}, Shape: []int{2, 3}}
	b := &Tensor{Data: []float64{0.5, -1}, Shape: []int{2}}
	x := NewWithData([]float64{1, 0, -1})

	y, err := Affine(x, w, b)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, y.Shape)
	assert.Equal(t, []float64{-1.5, -3}, y.Data)
}

func TestAffineBatch(t *testing.T) {
	w := &Tensor{Data: []float64{1, 2, 3, 4, 5, 6}, Shape: []int{2, 3}}
	b := &Tensor{Data: []float64{0, 1}, Shape: []int{2}}
	x, err := FromRows([][]float64{{1, 1, 1}, {0, 0, 0}})
	require.NoError(t, err)

	y, err := Affine(x, w, b)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, y.Shape)
	assert.Equal(t, []float64{6, 16, 0, 1}, y.Data)
}

func TestAffineWidthMismatch(t *testing.T) {
	w := New(2, 3)
	b := New(2)
	_, err := Affine(New(4), w, b)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Affine(New(3), w, New(3))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	bad := &Tensor{Data: make([]float64, 5), Shape: []int{2, 3}}
	_, err = Affine(bad, w, b)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFromRowsRagged(t *testing.T) {
	_, err := FromRows([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestCloneIsDeep(t *testing.T) {
	a := NewWithData([]float64{1, 2})
	c := a.Clone()
	c.Data[0] = 9
	c.Shape[0] = 7
	assert.Equal(t, 1.0, a.Data[0])
	assert.Equal(t, 2, a.Shape[0])
}

func TestAllClose(t *testing.T) {
	a := NewWithData([]float64{1, 2})
	b := NewWithData([]float64{1, 2 + 1e-12})
	assert.True(t, AllClose(a, b, 1e-9))
	assert.False(t, AllClose(a, NewWithData([]float64{1, 3}), 1e-9))
	assert.False(t, AllClose(a, New(1, 2), 1e-9))
}
