package sampler

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
)

// defaultDiagnosticRates caps repeated per-category warnings (timer-create
// failures, clock-unavailable notices) to a sane burst: at most once per
// second, and no more than 20 in any rolling minute. Thread churn or a
// misbehaving runtime collaborator can otherwise produce one warning per
// signal-handler-adjacent call, which would itself become a performance
// problem.
var defaultDiagnosticRates = map[time.Duration]int{
	time.Second: 1,
	time.Minute: 20,
}

// diagnostics applies a catrate.Limiter in front of Logger.Log so that a
// thread that repeatedly fails to get a timer doesn't flood the log.
// Grounded on the pack's catrate package (Limiter/Allow), which is a
// better fit here than hand-rolling a token bucket: the sampler already
// needs per-category rate limiting across an unbounded set of thread IDs,
// exactly what catrate's ring-buffer-backed categoryData is built for.
type diagnostics struct {
	logger  Logger
	limiter *catrate.Limiter
}

func newDiagnostics(logger Logger, rates map[time.Duration]int) *diagnostics {
	if rates == nil {
		rates = defaultDiagnosticRates
	}
	return &diagnostics{logger: logger, limiter: catrate.NewLimiter(rates)}
}

// warnf logs a formatted warning under category, subject to rate
// limiting. category is typically a static string ("timer-create",
// "timer-rearm", "thread-id"); catrate buckets by category value,
// not by the formatted message, so repeated failures for different
// threads still count against the same budget.
func (d *diagnostics) warnf(category string, format string, args ...any) {
	if d == nil || d.logger == nil {
		return
	}
	if _, allow := d.limiter.Allow(category); !allow {
		return
	}
	d.logger.Log(LevelWarn, category, fmt.Sprintf(format, args...), nil)
}
