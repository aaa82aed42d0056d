// Package valor turns a stream of power readings into an energy-over-time
// integral and maps it to the Valor score.
package valor

import "time"

// Accumulator integrates power over elapsed time. Energy is tracked in
// mW·s and never decreases; it resets only when the process restarts.
type Accumulator struct {
	energyMWs float64
	rate      float64
}

// NewAccumulator creates an accumulator with the given Valor rate constant.
// The score is the placeholder linear transform valor = joules * rate; no
// authoritative scoring formula has been published, so the rate is kept
// configurable rather than baked in.
func NewAccumulator(rate float64) *Accumulator {
	return &Accumulator{rate: rate}
}

// Update adds powerMW * elapsed to the running energy total and returns the
// new total (mW·s) together with the Valor score. Negative power or elapsed
// values contribute nothing.
func (a *Accumulator) Update(powerMW float64, elapsed time.Duration) (float64, float64) {
	if powerMW > 0 && elapsed > 0 {
		a.energyMWs += powerMW * elapsed.Seconds()
	}
	return a.energyMWs, a.Valor()
}

// EnergyMWs returns the accumulated energy in mW·s.
func (a *Accumulator) EnergyMWs() float64 { return a.energyMWs }

// EnergyJoules returns the accumulated energy in joules (1 J = 1000 mW·s).
func (a *Accumulator) EnergyJoules() float64 { return a.energyMWs / 1000 }

// Valor returns the current score for the accumulated energy.
func (a *Accumulator) Valor() float64 { return a.EnergyJoules() * a.rate }
