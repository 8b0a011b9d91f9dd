package reconcile

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
	"time"
)

// Registry holds the timers of sync and push operations
var Registry = gometrics.NewRegistry()

var (
	fetchTimer = gometrics.GetOrRegisterTimer("sync.fetch", Registry)
	pushTimer  = gometrics.GetOrRegisterTimer("push.duration", Registry)
)

func countSync(status Status) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`blog_sync_total{status=%q}`, status.String())).Inc()
}

func countPush(outcome PushOutcome) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`blog_push_total{outcome=%q}`, outcome.String())).Inc()
}

// WriteTimers dumps the timers in the human readable format of go-metrics
func WriteTimers(w io.Writer) {
	gometrics.WriteOnce(Registry, w)
}

// timed runs fn and records its duration in timer
func timed(timer gometrics.Timer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	timer.Update(d)
	return d
}
