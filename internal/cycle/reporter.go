// Package cycle accumulates per-cycle extremes and emits a summary
// report on each completed work cycle.
package cycle

import (
	"math"

	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

// Report summarizes one completed cycle. It is classified with the
// same thresholds as the health aggregator, applied to cycle-lifetime
// extremes instead of windowed RMS values.
type Report struct {
	Duration       float64
	MaxVibration   float64 // m, peak |displacement|
	MaxTemperature float64 // °C
	AverageLoad    float64 // %
	WearDelta      float64
	Status         health.Status
}

// Reporter watches the cycle-active flag and the telemetry stream. It
// emits exactly one report per true→false transition.
type Reporter struct {
	active    bool
	startTime float64
	startWear float64
	endTime   float64
	endWear   float64
	maxVib    float64
	maxTemp   float64
	loadSum   float64
	loadCount int
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Active reports whether a cycle is currently being accumulated.
func (r *Reporter) Active() bool { return r.active }

// Observe consumes one tick. On the rising edge of active the
// accumulators reset and the starting wear is captured; on the falling
// edge the finished report is returned with ok true.
func (r *Reporter) Observe(active bool, s machine.Sample) (Report, bool) {
	switch {
	case active && !r.active:
		r.active = true
		r.startTime = s.Time
		r.startWear = s.Wear
		r.maxVib = 0
		r.maxTemp = 0
		r.loadSum = 0
		r.loadCount = 0
	case !active && r.active:
		r.active = false
		report := Report{
			Duration:       r.endTime - r.startTime,
			MaxVibration:   r.maxVib,
			MaxTemperature: r.maxTemp,
			WearDelta:      r.endWear - r.startWear,
		}
		if r.loadCount > 0 {
			report.AverageLoad = r.loadSum / float64(r.loadCount)
		}
		report.Status = health.Classify(report.MaxVibration, report.AverageLoad)
		return report, true
	}

	if r.active {
		if v := math.Abs(s.Displacement); v > r.maxVib {
			r.maxVib = v
		}
		if s.Temperature > r.maxTemp {
			r.maxTemp = s.Temperature
		}
		r.loadSum += s.Load
		r.loadCount++
		r.endTime = s.Time
		r.endWear = s.Wear
	}
	return Report{}, false
}
