package model

import "time"

// Source identifies how a power reading was obtained.
type Source string

const (
	// SourcePhysical means the reading came from a hardware power meter
	// (Apple Silicon powermetrics).
	SourcePhysical Source = "physical"
	// SourceSimulated means the reading was estimated from CPU load.
	SourceSimulated Source = "simulated"
)

// Reading is a single instantaneous power-draw measurement.
type Reading struct {
	Timestamp       time.Time
	PowerMilliwatts float64
	Source          Source
}

// Sample is one derived telemetry datapoint: a reading plus the running
// energy integral and Valor score at the moment it was taken.
type Sample struct {
	Timestamp time.Time
	NodeID    string
	Source    Source
	PowerMW   float64
	// EnergyMWs is accumulated energy since process start, in mW·s.
	EnergyMWs float64
	Valor     float64
}

// Node is a fleet member as seen by the core server.
type Node struct {
	UUID       string
	Name       string
	AvgPowerMW float64
	Valor      float64
	LastSeenAt time.Time
	Status     string
}
