package volume

import (
	"fmt"

	"voxrender/internal/signal"
)

// Selection is a fractional voxel mask over a 3D shape. Values lie in
// [0, 1], where 0 means unselected and 1 fully selected; intermediate
// values arise from soft-edged selection brushes.
//
// Edits are block-wise and tracked: after any mutation, LastChange
// reports the overwritten block, the new block and its offset, which
// the selection texture uses to perform a partial GPU update. A bulk
// clear or replace reports nil blocks, forcing a full texture refresh.
type Selection struct {
	data  []float64
	shape [3]int

	changed    signal.Signal[Change]
	lastChange Change
}

// NewSelection creates an empty (all-zero) selection of the given shape.
func NewSelection(shape [3]int) (*Selection, error) {
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return nil, fmt.Errorf("selection shape must be positive, got %v", shape)
		}
		n *= s
	}
	return &Selection{
		data:  make([]float64, n),
		shape: shape,
	}, nil
}

// Shape returns the selection dimensions.
func (s *Selection) Shape() [3]int { return s.shape }

// Data returns the underlying mask buffer (column-major, first axis
// fastest). Callers must not mutate it directly.
func (s *Selection) Data() []float64 { return s.data }

// At returns the mask value at voxel (x, y, z).
func (s *Selection) At(x, y, z int) float64 {
	return s.data[(z*s.shape[1]+y)*s.shape[0]+x]
}

// SetBlock overwrites the sub-block of the given shape at the given
// offset. Values are clamped to [0, 1]. Subscribers are notified
// synchronously with the old and new block contents.
func (s *Selection) SetBlock(block []float64, blockShape, offset [3]int) error {
	n := blockShape[0] * blockShape[1] * blockShape[2]
	if len(block) != n {
		return fmt.Errorf("block length %d does not match shape %v", len(block), blockShape)
	}
	for i := 0; i < 3; i++ {
		if offset[i] < 0 || offset[i]+blockShape[i] > s.shape[i] {
			return fmt.Errorf("block %v at offset %v exceeds selection shape %v",
				blockShape, offset, s.shape)
		}
	}

	old := make([]float64, n)
	clamped := make([]float64, n)
	i := 0
	for z := 0; z < blockShape[2]; z++ {
		for y := 0; y < blockShape[1]; y++ {
			for x := 0; x < blockShape[0]; x++ {
				idx := ((offset[2]+z)*s.shape[1]+offset[1]+y)*s.shape[0] + offset[0] + x
				old[i] = s.data[idx]
				val := block[i]
				if val < 0 {
					val = 0
				} else if val > 1 {
					val = 1
				}
				clamped[i] = val
				s.data[idx] = val
				i++
			}
		}
	}

	s.lastChange = Change{Old: old, New: clamped, BlockShape: blockShape, Offset: offset}
	s.changed.Emit(s.lastChange)
	return nil
}

// Clear resets the whole selection to zero. Subscribers receive a
// full-replace notification (nil old/new blocks).
func (s *Selection) Clear() {
	for i := range s.data {
		s.data[i] = 0
	}
	s.lastChange = Change{}
	s.changed.Emit(s.lastChange)
}

// Subscribe registers fn to be called synchronously on every edit.
func (s *Selection) Subscribe(fn func(Change)) signal.Handle {
	return s.changed.Subscribe(fn)
}

// Unsubscribe removes an edit subscription.
func (s *Selection) Unsubscribe(h signal.Handle) {
	s.changed.Unsubscribe(h)
}

// LastChange returns the most recent change notification.
func (s *Selection) LastChange() Change { return s.lastChange }
