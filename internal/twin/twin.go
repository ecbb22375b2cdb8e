// Package twin orchestrates the digital twin: it owns the integrator
// and the bounded buffers, advances them tick by tick, and exposes
// snapshot views for the analytics consumers.
//
// The twin is the single writer of all simulation state. Accessors
// return copies computed under the lock, so readers never observe a
// torn buffer. Command updates take effect on the next tick boundary.
package twin

import (
	"context"
	"sync"
	"time"

	"github.com/sentomas/Digital-Twin-CNC/internal/cycle"
	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/logger"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
	"github.com/sentomas/Digital-Twin-CNC/internal/prognosis"
	"github.com/sentomas/Digital-Twin-CNC/internal/sampler"
	"github.com/sentomas/Digital-Twin-CNC/internal/spectrum"
)

// TelemetryWriter receives every emitted sample. Writers must not
// retain the sample past the call.
type TelemetryWriter interface {
	Write(machine.Sample) error
}

// ReportWriter optionally receives completed cycle reports.
type ReportWriter interface {
	WriteReport(cycle.Report) error
}

// Twin wires the integrator, telemetry ring, cycle reporter, and
// prognostics estimator together behind a single mutex.
type Twin struct {
	mu        sync.Mutex
	integ     *machine.Integrator
	ring      *sampler.Ring
	reporter  *cycle.Reporter
	estimator *prognosis.Estimator
	cmd       machine.Command
	writers   []TelemetryWriter
	reports   []cycle.Report
	log       *logger.Logger
}

func New(params machine.Parameters, cmd machine.Command, seed int64, log *logger.Logger) *Twin {
	if log == nil {
		log = logger.NewNop()
	}
	return &Twin{
		integ:     machine.NewIntegrator(params, seed),
		ring:      sampler.NewRing(sampler.DefaultCapacity),
		reporter:  cycle.NewReporter(),
		estimator: prognosis.NewEstimator(),
		cmd:       cmd,
		log:       log,
	}
}

func (t *Twin) AddWriter(w TelemetryWriter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writers = append(t.writers, w)
}

// UpdateCommand mutates the controller command. The change is visible
// to the integrator from the next tick on, never mid-tick.
func (t *Twin) UpdateCommand(fn func(*machine.Command)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.cmd)
}

func (t *Twin) Command() machine.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cmd
}

// Tick advances the simulation by one fixed timestep and fans the
// sample out to the attached writers.
func (t *Twin) Tick() machine.Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tick()
}

func (t *Twin) tick() machine.Sample {
	cmd := t.cmd
	sample := t.integ.Step(cmd)
	t.ring.Push(sample)

	if report, done := t.reporter.Observe(cmd.CycleActive, sample); done {
		t.reports = append(t.reports, report)
		t.log.Infow("cycle complete",
			"duration", report.Duration,
			"max_vibration", report.MaxVibration,
			"avg_load", report.AverageLoad,
			"wear_delta", report.WearDelta,
			"status", report.Status.String(),
		)
		for _, w := range t.writers {
			if rw, ok := w.(ReportWriter); ok {
				if err := rw.WriteReport(report); err != nil {
					t.log.Warnw("report write failed", "error", err)
				}
			}
		}
	}

	stats := health.Compute(t.ring.Recent(health.Window), cmd)
	t.estimator.Observe(sample.Time, stats.RMSVelocity)

	for _, w := range t.writers {
		if err := w.Write(sample); err != nil {
			t.log.Warnw("telemetry write failed", "error", err)
		}
	}
	return sample
}

// RunSteps advances n ticks as fast as possible, checking ctx between
// ticks.
func (t *Twin) RunSteps(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		t.Tick()
	}
	return nil
}

// Run drives the twin at a fixed wall-clock cadence until ctx is done.
// Each wall interval advances exactly one logical tick, so interval
// controls the real-time scale.
func (t *Twin) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.log.Infow("twin running", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			t.log.Infow("twin stopped")
			return ctx.Err()
		case <-ticker.C:
			t.Tick()
		}
	}
}

// State returns a copy of the simulation state.
func (t *Twin) State() machine.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.integ.State()
}

// Latest returns the most recent telemetry sample, if any.
func (t *Twin) Latest() (machine.Sample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ring.Latest()
}

// Telemetry returns a snapshot of the buffered samples, oldest first.
func (t *Twin) Telemetry() []machine.Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ring.Snapshot()
}

// Stats recomputes health statistics from the current window.
func (t *Twin) Stats() health.Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return health.Compute(t.ring.Recent(health.Window), t.cmd)
}

// Spectrum recomputes the vibration spectrum from the buffer.
func (t *Twin) Spectrum() []spectrum.Bin {
	t.mu.Lock()
	defer t.mu.Unlock()
	return spectrum.Compute(t.ring.Recent(spectrum.WindowSize), machine.SampleRate)
}

// Estimate recomputes the remaining-useful-life estimate.
func (t *Twin) Estimate() prognosis.Estimate {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := health.Compute(t.ring.Recent(health.Window), t.cmd)
	latest, ok := t.ring.Latest()
	if !ok {
		return prognosis.Estimate{Stable: true}
	}
	return t.estimator.Estimate(stats, latest)
}

// Trend returns the recorded RMS-velocity history, oldest first.
func (t *Twin) Trend() []prognosis.TrendPoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimator.History()
}

// Reports returns all cycle reports emitted so far.
func (t *Twin) Reports() []cycle.Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]cycle.Report, len(t.reports))
	copy(out, t.reports)
	return out
}
