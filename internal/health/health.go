// Package health reduces a window of recent telemetry into rolling
// statistics and a three-level machine status.
package health

import (
	"math"

	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

// Status is the three-level machine condition classification.
type Status int

const (
	StatusOptimal Status = iota
	StatusWarning
	StatusCritical
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Window is the number of most recent samples the statistics cover.
const Window = 30

// Ordered threshold pairs for the classifier.
const (
	DisplacementWarn = 2.5e-5 // m
	DisplacementCrit = 6.0e-5 // m
	LoadWarn         = 70.0   // %
	LoadCrit         = 90.0   // %
)

// Statistics are derived read-only values, recomputed on demand from
// the sample window and never stored back into simulation state.
type Statistics struct {
	RMSDisplacement   float64
	RMSVelocity       float64
	PeakVelocity      float64
	RMSAcceleration   float64
	DominantFrequency float64 // Hz, from commanded speed, not measured
	AverageLoad       float64
	Status            Status
	SensorHealthy     bool
}

// Compute derives statistics from the most recent Window entries of
// samples. An empty window yields an all-zero optimal result rather
// than an error; callers treat it as "insufficient data".
func Compute(samples []machine.Sample, cmd machine.Command) Statistics {
	if len(samples) > Window {
		samples = samples[len(samples)-Window:]
	}

	stats := Statistics{
		DominantFrequency: cmd.CommandedSpeed() / 60,
		Status:            StatusOptimal,
		SensorHealthy:     true,
	}
	if len(samples) == 0 {
		return stats
	}

	var sumDisp, sumVel, sumAcc, sumLoad float64
	for _, s := range samples {
		sumDisp += s.Displacement * s.Displacement
		sumVel += s.Velocity * s.Velocity
		sumAcc += s.Acceleration * s.Acceleration
		sumLoad += s.Load
		if v := math.Abs(s.Velocity); v > stats.PeakVelocity {
			stats.PeakVelocity = v
		}
	}
	n := float64(len(samples))
	stats.RMSDisplacement = math.Sqrt(sumDisp / n)
	stats.RMSVelocity = math.Sqrt(sumVel / n)
	stats.RMSAcceleration = math.Sqrt(sumAcc / n)
	stats.AverageLoad = sumLoad / n
	stats.Status = Classify(stats.RMSDisplacement, stats.AverageLoad)

	return stats
}

// Classify applies the two-tier displacement/load thresholds. Either
// metric crossing its high threshold is critical; either crossing its
// low threshold is a warning.
func Classify(displacement, load float64) Status {
	if displacement > DisplacementCrit || load > LoadCrit {
		return StatusCritical
	}
	if displacement > DisplacementWarn || load > LoadWarn {
		return StatusWarning
	}
	return StatusOptimal
}
