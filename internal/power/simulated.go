package power

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/HW-25/Project-QLX/internal/execx"
	"github.com/HW-25/Project-QLX/internal/model"
)

// Wattage envelope for the load-based estimate: a typical laptop draws
// about 5 W idle and 30 W flat out.
const (
	idleMilliwatts = 5000
	peakMilliwatts = 30000
)

// SimulatedSampler estimates power draw from the 1-minute load average
// scaled between the idle and peak wattage constants. This path never
// fails: any error reading the load degrades to the idle figure.
type SimulatedSampler struct {
	runner execx.Runner
	ncpu   int
}

func NewSimulatedSampler(runner execx.Runner) *SimulatedSampler {
	return &SimulatedSampler{runner: runner, ncpu: runtime.NumCPU()}
}

func (s *SimulatedSampler) Mode() model.Source { return model.SourceSimulated }

func (s *SimulatedSampler) Sample(ctx context.Context) (model.Reading, error) {
	return model.Reading{
		Timestamp:       time.Now().UTC(),
		PowerMilliwatts: Estimate(s.loadFraction(ctx)),
		Source:          model.SourceSimulated,
	}, nil
}

// Estimate maps a load fraction in [0,1] onto the wattage envelope.
func Estimate(loadFraction float64) float64 {
	if loadFraction < 0 {
		loadFraction = 0
	}
	if loadFraction > 1 {
		loadFraction = 1
	}
	return idleMilliwatts + loadFraction*(peakMilliwatts-idleMilliwatts)
}

// loadFraction returns the 1-minute load average normalized by CPU count.
func (s *SimulatedSampler) loadFraction(ctx context.Context) float64 {
	load, ok := s.loadAverage(ctx)
	if !ok || s.ncpu <= 0 {
		return 0
	}
	return load / float64(s.ncpu)
}

func (s *SimulatedSampler) loadAverage(ctx context.Context) (float64, bool) {
	switch runtime.GOOS {
	case "linux":
		data, err := os.ReadFile("/proc/loadavg")
		if err != nil {
			return 0, false
		}
		return parseLoad(string(data))
	case "darwin":
		// "{ 1.23 1.01 0.95 }"
		out, err := s.runner.OutputContext(ctx, "sysctl", "-n", "vm.loadavg")
		if err != nil {
			return 0, false
		}
		return parseLoad(strings.Trim(out, "{} "))
	default:
		return 0, false
	}
}

func parseLoad(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || load < 0 {
		return 0, false
	}
	return load, true
}
