package gerber

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageContext_DefaultState(t *testing.T) {
	ic := NewImageContext()
	assert.Equal(t, UnitsInch, ic.Units)
	assert.Equal(t, DefaultFormat(), ic.Format)
	assert.False(t, ic.ImageNegative)
	assert.False(t, ic.LayerNegative)
	assert.False(t, ic.Polarity())
}

func TestImageContext_PolarityXOR(t *testing.T) {
	ic := NewImageContext()
	ic.LayerNegative = true
	assert.True(t, ic.Polarity())
	ic.ImageNegative = true
	assert.False(t, ic.Polarity(), "both negative cancels out")
	ic.LayerNegative = false
	assert.True(t, ic.Polarity())
}

func TestImageContext_PolarityIsNotRetroactive(t *testing.T) {
	// spec.md §8 invariant: a later LP must not change the polarity already
	// recorded on earlier DrawItems. Polarity() is read at emit time only,
	// so capturing it into a local before flipping LayerNegative proves the
	// earlier snapshot is unaffected by a subsequent flip.
	ic := NewImageContext()
	first := ic.Polarity()
	ic.LayerNegative = true
	second := ic.Polarity()
	assert.False(t, first)
	assert.True(t, second)
}

func TestUnits_ToInternal(t *testing.T) {
	assert.Equal(t, int64(10000), UnitsInch.ToInternal(1.0))
	assert.InDelta(t, 10000, UnitsMM.ToInternal(25.4), 1)
}
