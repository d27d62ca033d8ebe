package vent_test

import (
	"testing"

	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/errors"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/gpio"
	"github.com/jcdoll/purpleAirRelayControl-sub000/internal/vent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newController(t *testing.T) *vent.Controller {
	t.Helper()

	c, err := vent.NewController(120, 130)
	require.NoError(t, err)

	return c
}

func TestNewControllerRejectsInvertedThresholds(t *testing.T) {
	_, err := vent.NewController(130, 120)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidThresholds))

	_, err = vent.NewController(125, 125)
	require.Error(t, err, "Expected an equal band to be rejected")
}

func TestHysteresisSequence(t *testing.T) {
	c := newController(t)

	indexes := []int{150, 100, 125, 140}
	want := []bool{false, true, true, false}

	previous := false
	for i, index := range indexes {
		decision := c.Next(gpio.SwitchAuto, index, previous)
		assert.Equal(t, want[i], decision.Ventilating, "Expected ventilating %v at index %d", want[i], index)
		previous = decision.Ventilating
	}
}

func TestHysteresisHoldsInsideBand(t *testing.T) {
	c := newController(t)

	decision := c.Next(gpio.SwitchAuto, 125, true)
	assert.True(t, decision.Ventilating, "Expected the band to hold a true state")
	assert.Equal(t, vent.ReasonNoChange, decision.Reason)

	decision = c.Next(gpio.SwitchAuto, 125, false)
	assert.False(t, decision.Ventilating, "Expected the band to hold a false state")
	assert.Equal(t, vent.ReasonNoChange, decision.Reason)
}

func TestThresholdEdges(t *testing.T) {
	c := newController(t)

	decision := c.Next(gpio.SwitchAuto, 119, false)
	assert.True(t, decision.Ventilating)
	assert.Equal(t, vent.ReasonIndexLow, decision.Reason)

	decision = c.Next(gpio.SwitchAuto, 120, false)
	assert.False(t, decision.Ventilating, "Expected the enable threshold itself to fall inside the band")
	assert.Equal(t, vent.ReasonNoChange, decision.Reason)

	decision = c.Next(gpio.SwitchAuto, 130, true)
	assert.False(t, decision.Ventilating, "Expected the disable threshold to stop ventilation")
	assert.Equal(t, vent.ReasonIndexHigh, decision.Reason)
}

func TestForcedStatesIgnoreIndex(t *testing.T) {
	c := newController(t)

	for _, index := range []int{-1, 0, 125, 500} {
		for _, previous := range []bool{false, true} {
			decision := c.Next(gpio.SwitchOn, index, previous)
			assert.Equal(t, vent.Decision{Ventilating: true, Reason: vent.ReasonForcedOn}, decision,
				"Expected forced on at index %d", index)

			decision = c.Next(gpio.SwitchOff, index, previous)
			assert.Equal(t, vent.Decision{Ventilating: false, Reason: vent.ReasonForcedOff}, decision,
				"Expected forced off at index %d", index)
		}
	}
}

func TestInvalidIndexPreservesState(t *testing.T) {
	c := newController(t)

	decision := c.Next(gpio.SwitchAuto, -1, true)
	assert.True(t, decision.Ventilating, "Expected a missing reading to preserve a running fan")
	assert.Equal(t, vent.ReasonNoChange, decision.Reason)

	decision = c.Next(gpio.SwitchAuto, -1, false)
	assert.False(t, decision.Ventilating, "Expected a missing reading to preserve a stopped fan")
}

func TestUnknownPositionIsSafe(t *testing.T) {
	c := newController(t)

	decision := c.Next(gpio.SwitchPosition(99), 50, true)
	assert.False(t, decision.Ventilating, "Expected an unknown position to behave like Off")
	assert.Equal(t, vent.ReasonForcedOff, decision.Reason)
}

func TestReasonStrings(t *testing.T) {
	assert.Equal(t, "forced_on", vent.ReasonForcedOn.String())
	assert.Equal(t, "forced_off", vent.ReasonForcedOff.String())
	assert.Equal(t, "index_low", vent.ReasonIndexLow.String())
	assert.Equal(t, "index_high", vent.ReasonIndexHigh.String())
	assert.Equal(t, "no_change", vent.ReasonNoChange.String())
}
