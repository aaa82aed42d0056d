package power

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/HW-25/Project-QLX/internal/execx"
	"github.com/HW-25/Project-QLX/internal/model"
)

const powermetricsPath = "/usr/bin/powermetrics"

// combinedPowerRe matches the summary line emitted by
// `powermetrics --samplers cpu_power`, e.g.
// "Combined Power (CPU + GPU + ANE): 1482 mW".
var combinedPowerRe = regexp.MustCompile(`Combined Power \(CPU \+ GPU \+ ANE\): (\d+) mW`)

// PhysicalSampler reads real milliwatt draw from Apple Silicon powermetrics.
type PhysicalSampler struct {
	runner   execx.Runner
	fallback *SimulatedSampler
	// windowMS is passed to powermetrics -i.
	windowMS int
}

func NewPhysicalSampler(runner execx.Runner) *PhysicalSampler {
	return &PhysicalSampler{
		runner:   runner,
		fallback: NewSimulatedSampler(runner),
		windowMS: 1000,
	}
}

func (p *PhysicalSampler) Mode() model.Source { return model.SourcePhysical }

// Sample invokes powermetrics once and parses the combined power line.
// Missing privilege is surfaced as ErrPrivilege. A run that succeeds but
// produces no parsable power line degrades to the load-based estimate so a
// powermetrics format change never stalls the monitor.
func (p *PhysicalSampler) Sample(ctx context.Context) (model.Reading, error) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := p.runner.OutputContext(runCtx, powermetricsPath,
		"--samplers", "cpu_power", "-i", strconv.Itoa(p.windowMS), "-n", "1")
	if err != nil {
		if isPrivilegeError(err) {
			return model.Reading{}, fmt.Errorf("powermetrics: %w", ErrPrivilege)
		}
		return model.Reading{}, fmt.Errorf("powermetrics: %w", err)
	}

	match := combinedPowerRe.FindStringSubmatch(out)
	if match == nil {
		return p.fallback.Sample(ctx)
	}

	mw, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return p.fallback.Sample(ctx)
	}

	return model.Reading{
		Timestamp:       time.Now().UTC(),
		PowerMilliwatts: mw,
		Source:          model.SourcePhysical,
	}, nil
}

func isPrivilegeError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "superuser") ||
		strings.Contains(msg, "must be run as root") ||
		strings.Contains(msg, "operation not permitted") ||
		strings.Contains(msg, "permission denied")
}
