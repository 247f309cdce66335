package nn

import (
	"math"

	"ballpolicy/tensor"

	"gonum.org/v1/gonum/floats"
)

// Softmax normalises each row of logits (the last dimension) into a
// probability distribution. It is applied by callers; networks emit raw scores.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(logits.Shape...)
	w := logits.Width()
	if w == 0 {
		return out
	}
	for r := 0; r < logits.Rows(); r++ {
		row := logits.Data[r*w : (r+1)*w]
		dst := out.Data[r*w : (r+1)*w]
		maxLogit := floats.Max(row)
		for i, v := range row {
			dst[i] = math.Exp(v - maxLogit)
		}
		floats.Scale(1/floats.Sum(dst), dst)
	}
	return out
}
