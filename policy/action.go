package policy

import (
	"fmt"
	"math"

	"ballpolicy/nn"
	"ballpolicy/tensor"

	"gonum.org/v1/gonum/floats"
)

// MovementActions is the number of scores DecodeMovement expects.
const MovementActions = 4

// Movement is the set of direction keys the player ball presses this tick.
type Movement struct {
	Up, Down, Left, Right bool
}

// DecodeMovement thresholds sigmoid(score) at 0.5 for each of the four
// scores, ordered up, down, left, right.
func DecodeMovement(scores []float64) (Movement, error) {
	if len(scores) != MovementActions {
		return Movement{}, fmt.Errorf("%w: movement needs %d scores, got %d", tensor.ErrShapeMismatch, MovementActions, len(scores))
	}
	pressed := func(s float64) bool { return 1/(1+math.Exp(-s)) > 0.5 }
	return Movement{
		Up:    pressed(scores[0]),
		Down:  pressed(scores[1]),
		Left:  pressed(scores[2]),
		Right: pressed(scores[3]),
	}, nil
}

// DecodeMovements decodes each row of a [batch, 4] score tensor.
func DecodeMovements(scores *tensor.Tensor) ([]Movement, error) {
	if scores.Width() != MovementActions {
		return nil, fmt.Errorf("%w: movement needs %d scores per row, got %d", tensor.ErrShapeMismatch, MovementActions, scores.Width())
	}
	out := make([]Movement, scores.Rows())
	for r := range out {
		m, err := DecodeMovement(scores.Data[r*MovementActions : (r+1)*MovementActions])
		if err != nil {
			return nil, err
		}
		out[r] = m
	}
	return out, nil
}

// Direction returns the unit (dx, dz) the keys point to, or (0, 0) when
// they cancel out. Up is -z and right is +x.
func (m Movement) Direction() (dx, dz float64) {
	dz = b2f(m.Down) - b2f(m.Up)
	dx = b2f(m.Right) - b2f(m.Left)
	if n := math.Hypot(dx, dz); n > 0 {
		return dx / n, dz / n
	}
	return 0, 0
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Greedy returns the index of the highest score.
func Greedy(scores []float64) (int, error) {
	if len(scores) == 0 {
		return 0, fmt.Errorf("%w: no scores", tensor.ErrShapeMismatch)
	}
	return floats.MaxIdx(scores), nil
}

// Probabilities normalises raw scores into a distribution per row.
func Probabilities(scores *tensor.Tensor) *tensor.Tensor {
	return nn.Softmax(scores)
}
