package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HW-25/Project-QLX/internal/config"
	"github.com/HW-25/Project-QLX/internal/model"
	"github.com/HW-25/Project-QLX/internal/power"
	"github.com/HW-25/Project-QLX/internal/telemetry"
)

type fixedSampler struct {
	mw  float64
	err error
}

func (f *fixedSampler) Sample(context.Context) (model.Reading, error) {
	if f.err != nil {
		return model.Reading{}, f.err
	}
	return model.Reading{
		Timestamp:       time.Now().UTC(),
		PowerMilliwatts: f.mw,
		Source:          model.SourceSimulated,
	}, nil
}

func (f *fixedSampler) Mode() model.Source { return model.SourceSimulated }

func testConfig() config.Config {
	cfg := config.Config{NodeID: "QLX-TESTNODE", SampleIntervalSec: 1, WindowSize: 3, ValorRate: 1e-6}
	return cfg
}

func TestTick_AccumulatesEnergy(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := New(testConfig(), Options{Sampler: &fixedSampler{mw: 5000}, Out: &out})

	start := time.Unix(1000, 0)
	m.last = start
	for i := 1; i <= 10; i++ {
		if err := m.tick(context.Background(), start.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	// 5000 mW for 10 s = 50000 mW·s = 50 J.
	if got := m.acc.EnergyJoules(); got != 50 {
		t.Fatalf("energy=%vJ", got)
	}
	if !strings.Contains(out.String(), "[LIVE]") {
		t.Fatalf("no live line in output: %q", out.String())
	}
}

func TestTick_PrivilegeErrorIsFatal(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sampler := &fixedSampler{err: fmt.Errorf("powermetrics: %w", power.ErrPrivilege)}
	m := New(testConfig(), Options{Sampler: sampler, Out: &out})

	m.last = time.Unix(1000, 0)
	err := m.tick(context.Background(), time.Unix(1001, 0))
	if !errors.Is(err, power.ErrPrivilege) {
		t.Fatalf("expected ErrPrivilege, got %v", err)
	}
}

func TestTick_TransientSampleErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sampler := &fixedSampler{err: errors.New("transient")}
	m := New(testConfig(), Options{Sampler: sampler, Out: &out})

	m.last = time.Unix(1000, 0)
	if err := m.tick(context.Background(), time.Unix(1001, 0)); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if m.ticks != 0 {
		t.Fatalf("ticks=%d after failed sample", m.ticks)
	}
}

func TestTick_AppendsTelemetryCSV(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	cfg := testConfig()
	cfg.TelemetryCSV = filepath.Join(tmp, "telemetry.csv")

	var out bytes.Buffer
	m := New(cfg, Options{Sampler: &fixedSampler{mw: 7000}, Out: &out})

	m.last = time.Unix(1000, 0)
	if err := m.tick(context.Background(), time.Unix(1002, 0)); err != nil {
		t.Fatalf("tick: %v", err)
	}

	samples, err := telemetry.ReadCSV(cfg.TelemetryCSV)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("samples=%d", len(samples))
	}
	if samples[0].NodeID != "QLX-TESTNODE" || samples[0].PowerMW != 7000 {
		t.Fatalf("sample=%+v", samples[0])
	}
	// 7000 mW over the 2 s gap.
	if samples[0].EnergyMWs != 14000 {
		t.Fatalf("energy=%v", samples[0].EnergyMWs)
	}
}

func TestRun_CancelPrintsSummary(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cfg := testConfig()
	cfg.SampleIntervalSec = 0.01
	m := New(cfg, Options{Sampler: &fixedSampler{mw: 5000}, Out: &out})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "disconnected safely") {
		t.Fatalf("no summary in output: %q", out.String())
	}
	if !strings.Contains(out.String(), "MODE: SIMULATED") {
		t.Fatalf("no banner in output: %q", out.String())
	}
}
