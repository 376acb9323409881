package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClock_Now(t *testing.T) {
	c := SystemClock{}

	before := time.Now()
	got := c.Now(nil)
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestSystemClock_NowInLocation(t *testing.T) {
	c := SystemClock{}

	got := c.Now(ChinaTZ)

	assert.Equal(t, "CST", got.Location().String())
}

func TestFrozenClock_IgnoresLocation(t *testing.T) {
	frozen := time.Date(2024, 1, 15, 14, 30, 0, 0, ChinaTZ)
	c := NewFrozen(frozen)

	assert.Equal(t, frozen, c.Now(nil))
	assert.Equal(t, frozen, c.Now(time.UTC))
}

func TestShiftClock_Offset(t *testing.T) {
	frozen := time.Date(2024, 1, 15, 14, 30, 0, 0, ChinaTZ)
	c := NewShift(NewFrozen(frozen), 30*time.Minute)

	assert.Equal(t, frozen.Add(30*time.Minute), c.Now(nil))

	c.SetOffset(-time.Hour)
	assert.Equal(t, frozen.Add(-time.Hour), c.Now(nil))
	assert.Equal(t, -time.Hour, c.Offset())
}

func TestSlot_SetAndReset(t *testing.T) {
	defer Reset()

	frozen := time.Date(2024, 1, 15, 9, 30, 0, 0, ChinaTZ)
	Set(NewFrozen(frozen))

	assert.Equal(t, frozen, Now(nil))
	assert.Equal(t, frozen, NowChina())

	Reset()
	_, ok := Get().(SystemClock)
	assert.True(t, ok)
}
