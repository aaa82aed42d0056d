// Package power obtains instantaneous power-draw readings, either from the
// hardware power meter on Apple Silicon or estimated from CPU load.
package power

import (
	"context"
	"errors"
	"runtime"
	"strings"

	"github.com/HW-25/Project-QLX/internal/execx"
	"github.com/HW-25/Project-QLX/internal/model"
)

// ErrPrivilege indicates the physical power meter could not be read because
// the process lacks elevated privilege. Callers treat this as fatal: the
// capability is binary and will not change mid-run.
var ErrPrivilege = errors.New("physical power readings require elevated privilege (re-run with sudo)")

// Sampler produces one power reading per call.
type Sampler interface {
	Sample(ctx context.Context) (model.Reading, error)
	Mode() model.Source
}

// Detect picks the best sampler for the host: physical on Apple Silicon
// macOS, load-based simulation everywhere else.
func Detect(runner execx.Runner) Sampler {
	if runtime.GOOS == "darwin" && isAppleSilicon(runner) {
		return NewPhysicalSampler(runner)
	}
	return NewSimulatedSampler(runner)
}

func isAppleSilicon(runner execx.Runner) bool {
	out, err := runner.Output("sysctl", "-n", "machdep.cpu.brand_string")
	if err != nil {
		return false
	}
	return strings.Contains(out, "Apple")
}
