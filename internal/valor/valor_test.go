package valor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator_EnergyIsSumOfPowerTimesElapsed(t *testing.T) {
	acc := NewAccumulator(1e-6)

	// 5000 mW for 10 s then 10000 mW for 10 s.
	energy, _ := acc.Update(5000, 10*time.Second)
	assert.Equal(t, 50000.0, energy)

	energy, _ = acc.Update(10000, 10*time.Second)
	assert.Equal(t, 150000.0, energy)
	assert.Equal(t, 150.0, acc.EnergyJoules())
}

func TestAccumulator_NegativeInputsContributeNothing(t *testing.T) {
	acc := NewAccumulator(1e-6)
	acc.Update(5000, 10*time.Second)

	energy, _ := acc.Update(-5000, 10*time.Second)
	assert.Equal(t, 50000.0, energy)

	energy, _ = acc.Update(5000, -10*time.Second)
	assert.Equal(t, 50000.0, energy)
}

func TestAccumulator_EnergyNeverDecreases(t *testing.T) {
	acc := NewAccumulator(1e-6)
	var prev float64
	inputs := []float64{0, 1200, 0, 800.5, 30000, 0.001}
	for _, mw := range inputs {
		energy, _ := acc.Update(mw, time.Second)
		assert.GreaterOrEqual(t, energy, prev)
		prev = energy
	}
}

func TestAccumulator_ValorIsLinearInEnergy(t *testing.T) {
	acc := NewAccumulator(0.5)

	_, score := acc.Update(2000, time.Second) // 2 J
	assert.Equal(t, 1.0, score)

	_, score = acc.Update(2000, time.Second) // 4 J
	assert.Equal(t, 2.0, score)
}

func TestAccumulator_ValorMonotonicForFixedRate(t *testing.T) {
	acc := NewAccumulator(1e-6)
	var prev float64
	for i := 0; i < 100; i++ {
		_, score := acc.Update(float64(i*100), time.Second)
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestWindow_RollingAverage(t *testing.T) {
	w := NewWindow(3)
	assert.Equal(t, 0.0, w.Average())

	w.Push(100)
	w.Push(200)
	assert.Equal(t, 150.0, w.Average())
	assert.False(t, w.Full())

	w.Push(300)
	assert.True(t, w.Full())
	assert.Equal(t, 200.0, w.Average())

	// Oldest value evicted.
	w.Push(600)
	assert.Equal(t, 3, w.Count())
	assert.InDelta(t, 366.6667, w.Average(), 0.001)
	assert.Equal(t, 200.0, w.Min())
	assert.Equal(t, 600.0, w.Max())
}
