package policy

import (
	"fmt"

	"ballpolicy/tensor"
)

// Ball is the planar kinematic state of one ball on the table.
type Ball struct {
	VX, VZ float64
	X, Z   float64
	// Target is the quadrant a scoring ball should reach; nil for the player.
	Target *Quadrant
}

// Quadrant is a target corner expressed as signs along x and z.
type Quadrant struct {
	X, Z int8
}

// features returns vx, vz, x, z followed by the target quadrant when set.
func (b Ball) features() []float64 {
	f := []float64{b.VX, b.VZ, b.X, b.Z}
	if b.Target != nil {
		f = append(f, float64(b.Target.X), float64(b.Target.Z))
	}
	return f
}

// EncodeState flattens the player ball and the other balls into a state
// vector with nbFeatures slots per ball, player first. Features beyond
// nbFeatures are dropped; missing ones are zero.
func EncodeState(player Ball, balls []Ball, nbFeatures int) (*tensor.Tensor, error) {
	if nbFeatures < 1 {
		return nil, fmt.Errorf("%w: nb_features must be positive, got %d", ErrInvalidConfig, nbFeatures)
	}
	out := tensor.New((len(balls) + 1) * nbFeatures)
	put := func(slot int, b Ball) {
		f := b.features()
		if len(f) > nbFeatures {
			f = f[:nbFeatures]
		}
		copy(out.Data[slot*nbFeatures:], f)
	}
	put(0, player)
	for i, b := range balls {
		put(i+1, b)
	}
	return out, nil
}

// EncodeBatch stacks one encoded state per scene into a [scenes, width]
// batch. Every scene must hold the same number of balls.
func EncodeBatch(players []Ball, balls [][]Ball, nbFeatures int) (*tensor.Tensor, error) {
	if len(players) != len(balls) {
		return nil, fmt.Errorf("%w: %d players for %d scenes", tensor.ErrShapeMismatch, len(players), len(balls))
	}
	rows := make([][]float64, len(players))
	for i := range players {
		s, err := EncodeState(players[i], balls[i], nbFeatures)
		if err != nil {
			return nil, err
		}
		rows[i] = s.Data
	}
	return tensor.FromRows(rows)
}
