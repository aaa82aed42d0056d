// Package monitor runs the node telemetry loop: sample power at a fixed
// interval, accumulate energy, derive the Valor score, and display it.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HW-25/Project-QLX/internal/api"
	"github.com/HW-25/Project-QLX/internal/broker"
	"github.com/HW-25/Project-QLX/internal/config"
	"github.com/HW-25/Project-QLX/internal/model"
	"github.com/HW-25/Project-QLX/internal/power"
	"github.com/HW-25/Project-QLX/internal/telemetry"
	"github.com/HW-25/Project-QLX/internal/valor"
)

// Options wires the monitor's collaborators. Client and Publisher may be
// nil to disable uplink and broker output.
type Options struct {
	Sampler   power.Sampler
	Client    *api.Client
	Publisher *broker.Publisher
	Out       io.Writer
}

// Monitor holds the loop state: one instance, one goroutine, no shared
// mutable state. Explicit so tests can drive single ticks.
type Monitor struct {
	cfg       config.Config
	sampler   power.Sampler
	client    *api.Client
	pub       *broker.Publisher
	out       io.Writer
	acc       *valor.Accumulator
	window    *valor.Window
	ticks     int
	last      time.Time
	sessionID string
}

func New(cfg config.Config, opts Options) *Monitor {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = config.DefaultWindowSize
	}
	return &Monitor{
		cfg:       cfg,
		sampler:   opts.Sampler,
		client:    opts.Client,
		pub:       opts.Publisher,
		out:       opts.Out,
		acc:       valor.NewAccumulator(cfg.ValorRate),
		window:    valor.NewWindow(cfg.WindowSize),
		sessionID: newSessionID(),
	}
}

// Run drives the sampling loop until ctx is cancelled. Cancellation is a
// clean shutdown: a final summary is printed and nil returned. The only
// fatal sampling condition is a missing privilege for physical readings.
func (m *Monitor) Run(ctx context.Context) error {
	m.banner()

	interval := time.Duration(m.cfg.SampleIntervalSec * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.last = time.Now()
	for {
		select {
		case <-ctx.Done():
			m.finalUplink()
			m.summary()
			return nil
		case now := <-ticker.C:
			if err := m.tick(ctx, now); err != nil {
				return err
			}
		}
	}
}

// tick performs one sample → accumulate → display → export cycle.
func (m *Monitor) tick(ctx context.Context, now time.Time) error {
	elapsed := now.Sub(m.last)
	m.last = now

	reading, err := m.sampler.Sample(ctx)
	if err != nil {
		if errors.Is(err, power.ErrPrivilege) {
			return err
		}
		log.Printf("monitor: sample failed: %v", err)
		return nil
	}

	energy, score := m.acc.Update(reading.PowerMilliwatts, elapsed)
	m.window.Push(reading.PowerMilliwatts)
	m.ticks++

	fmt.Fprintf(m.out, "\r [LIVE] Power: %5.0fmW | Avg: %5.0fmW | Energy: %8.1fJ | Yield: %.8f QLX",
		reading.PowerMilliwatts, m.window.Average(), energy/1000, score)

	sample := model.Sample{
		Timestamp: reading.Timestamp,
		NodeID:    m.cfg.NodeID,
		Source:    reading.Source,
		PowerMW:   reading.PowerMilliwatts,
		EnergyMWs: energy,
		Valor:     score,
	}

	if m.cfg.TelemetryCSV != "" {
		if err := telemetry.AppendCSV(m.cfg.TelemetryCSV, []model.Sample{sample}); err != nil {
			log.Printf("monitor: append telemetry failed: %v", err)
		}
	}
	if m.pub != nil {
		if err := m.pub.Publish(sample); err != nil {
			log.Printf("monitor: broker publish failed: %v", err)
		}
	}
	if m.client != nil && m.ticks%m.cfg.WindowSize == 0 {
		m.uplink(ctx)
	}

	return nil
}

// uplink reports the windowed summary. Failures are logged, never fatal:
// the uplink URL may still be the shipped placeholder.
func (m *Monitor) uplink(ctx context.Context) {
	_, err := m.client.Uplink(ctx, api.UplinkRequest{
		Auth:      api.Auth{UUID: m.cfg.NodeID},
		Telemetry: api.Telemetry{AvgMW: m.window.Average(), TotalValor: m.acc.Valor()},
		Timestamp: float64(time.Now().UTC().UnixMilli()) / 1000,
	})
	if err != nil {
		log.Printf("monitor: uplink failed: %v", err)
	}
}

func (m *Monitor) finalUplink() {
	if m.client == nil || m.ticks == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.uplink(ctx)
}

func (m *Monitor) banner() {
	line := strings.Repeat("═", 60)
	fmt.Fprintf(m.out, "\n%s\n", line)
	fmt.Fprintf(m.out, " PROJECT: QLX | EON MONITOR\n")
	fmt.Fprintf(m.out, " NODE_ID: %s | SESSION: %s\n", m.cfg.NodeID, m.sessionID)
	fmt.Fprintf(m.out, " PLATFORM: %s | MODE: %s\n", runtime.GOOS, strings.ToUpper(string(m.sampler.Mode())))
	fmt.Fprintf(m.out, "%s\n", line)
	fmt.Fprintf(m.out, " [STATUS] Telemetry streaming active...\n")
	fmt.Fprintf(m.out, " [ACTION] Press Ctrl+C to disconnect node\n\n")
}

func (m *Monitor) summary() {
	fmt.Fprintf(m.out, "\n\n [INFO] Node %s disconnected safely.\n", m.cfg.NodeID)
	fmt.Fprintf(m.out, " [SESSION] samples=%d energy=%.1fJ avg=%.0fmW yield=%.8f QLX\n",
		m.ticks, m.acc.EnergyJoules(), m.window.Average(), m.acc.Valor())
}

func newSessionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:6])
}
