package power

import (
	"context"
	"errors"
	"testing"

	"github.com/HW-25/Project-QLX/internal/model"
)

// fakeRunner returns canned output keyed by command name.
type fakeRunner struct {
	output map[string]string
	err    map[string]error
}

func (f *fakeRunner) Run(name string, args ...string) error {
	return f.err[name]
}

func (f *fakeRunner) Output(name string, args ...string) (string, error) {
	return f.OutputContext(context.Background(), name, args...)
}

func (f *fakeRunner) OutputContext(_ context.Context, name string, _ ...string) (string, error) {
	if err := f.err[name]; err != nil {
		return "", err
	}
	return f.output[name], nil
}

const powermetricsOutput = `Machine model: Mac14,2
OS version: 23E224

*** Sampled system activity (1000ms elapsed) ***

**** Processor usage ****

E-Cluster Power: 127 mW
P-Cluster Power: 891 mW
ANE Power: 0 mW
Combined Power (CPU + GPU + ANE): 1482 mW
`

func TestPhysicalSampler_ParsesCombinedPower(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: map[string]string{powermetricsPath: powermetricsOutput}}
	s := NewPhysicalSampler(runner)

	reading, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if reading.PowerMilliwatts != 1482 {
		t.Fatalf("power=%v", reading.PowerMilliwatts)
	}
	if reading.Source != model.SourcePhysical {
		t.Fatalf("source=%q", reading.Source)
	}
	if reading.Timestamp.IsZero() {
		t.Fatalf("timestamp not set")
	}
}

func TestPhysicalSampler_PrivilegeError(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: map[string]error{
		powermetricsPath: errors.New("powermetrics must be invoked as the superuser"),
	}}
	s := NewPhysicalSampler(runner)

	_, err := s.Sample(context.Background())
	if !errors.Is(err, ErrPrivilege) {
		t.Fatalf("expected ErrPrivilege, got %v", err)
	}
}

func TestPhysicalSampler_NoPowerLine_FallsBackToSimulated(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{output: map[string]string{powermetricsPath: "*** Sampled system activity ***"}}
	s := NewPhysicalSampler(runner)

	reading, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if reading.Source != model.SourceSimulated {
		t.Fatalf("source=%q", reading.Source)
	}
	if reading.PowerMilliwatts < idleMilliwatts {
		t.Fatalf("power=%v below idle", reading.PowerMilliwatts)
	}
}

func TestSimulatedSampler_NeverFails(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: map[string]error{"sysctl": errors.New("boom")}}
	s := NewSimulatedSampler(runner)

	reading, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if reading.PowerMilliwatts < idleMilliwatts || reading.PowerMilliwatts > peakMilliwatts {
		t.Fatalf("power=%v outside envelope", reading.PowerMilliwatts)
	}
}

func TestEstimate_Envelope(t *testing.T) {
	t.Parallel()

	if got := Estimate(0); got != idleMilliwatts {
		t.Fatalf("idle=%v", got)
	}
	if got := Estimate(1); got != peakMilliwatts {
		t.Fatalf("peak=%v", got)
	}
	if got := Estimate(0.5); got != (idleMilliwatts+peakMilliwatts)/2 {
		t.Fatalf("mid=%v", got)
	}
	// Out-of-range inputs clamp.
	if got := Estimate(-1); got != idleMilliwatts {
		t.Fatalf("clamped low=%v", got)
	}
	if got := Estimate(7); got != peakMilliwatts {
		t.Fatalf("clamped high=%v", got)
	}
}

func TestParseLoad(t *testing.T) {
	t.Parallel()

	if load, ok := parseLoad("0.52 0.58 0.59 1/467 12345"); !ok || load != 0.52 {
		t.Fatalf("load=%v ok=%v", load, ok)
	}
	if load, ok := parseLoad("1.23 1.01 0.95"); !ok || load != 1.23 {
		t.Fatalf("load=%v ok=%v", load, ok)
	}
	if _, ok := parseLoad(""); ok {
		t.Fatalf("expected failure for empty input")
	}
	if _, ok := parseLoad("garbage"); ok {
		t.Fatalf("expected failure for non-numeric input")
	}
}
