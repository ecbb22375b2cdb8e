// Package prognosis estimates remaining useful life from rolling
// vibration statistics using an exponential degradation model with
// stress, viscosity, and temperature correction factors.
package prognosis

import (
	"math"

	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

const (
	// TrendInterval is the simulated-time spacing of the historical
	// trace; one record per floored time bucket, not per tick.
	TrendInterval = 0.5
	// TrendCap bounds the historical trace.
	TrendCap = 60

	// ForecastSteps and ForecastStep define the forecast horizon.
	ForecastSteps = 30
	ForecastStep  = 2.0

	// CriticalVelocity is the RMS-velocity failure threshold.
	CriticalVelocity = 1.2e-2 // m/s

	referenceTemperature = 65.0 // °C
)

// Stress factors keyed by machine status.
const (
	stressOptimal  = 0.012
	stressWarning  = 0.060
	stressCritical = 0.180
)

// TrendPoint is one record of the historical RMS-velocity trace.
type TrendPoint struct {
	Time        float64
	RMSVelocity float64
}

// ForecastPoint is one step of the projected degradation curve. Time
// is relative to the moment the estimate was made.
type ForecastPoint struct {
	Time  float64
	Value float64
}

// Estimate is the prognostics output. When Stable is true the growth
// rate is non-positive (or there is no usable signal) and the failure
// times carry no meaning. TimeToFailure is never negative or NaN.
type Estimate struct {
	Lambda        float64
	Current       float64
	TimeToFailure float64
	Stable        bool
	Forecast      []ForecastPoint
	CrossingIn    float64 // earliest forecast time at or past the limit
	Crosses       bool    // false when no crossing inside the horizon
}

// Estimator keeps the bounded trend history and produces estimates on
// demand. Not safe for concurrent use.
type Estimator struct {
	history    []TrendPoint
	pos        int
	full       bool
	lastBucket int64
}

func NewEstimator() *Estimator {
	return &Estimator{
		history:    make([]TrendPoint, TrendCap),
		lastBucket: -1,
	}
}

// Observe records (t, rmsVelocity) only when the floored TrendInterval
// bucket has advanced since the last record.
func (e *Estimator) Observe(t, rmsVelocity float64) {
	bucket := int64(math.Floor(t / TrendInterval))
	if bucket <= e.lastBucket {
		return
	}
	e.lastBucket = bucket
	e.history[e.pos] = TrendPoint{Time: t, RMSVelocity: rmsVelocity}
	e.pos++
	if e.pos >= TrendCap {
		e.pos = 0
		e.full = true
	}
}

// History returns the recorded trace, oldest first.
func (e *Estimator) History() []TrendPoint {
	n := e.pos
	if e.full {
		n = TrendCap
	}
	out := make([]TrendPoint, n)
	if e.full {
		copy(out, e.history[e.pos:])
		copy(out[TrendCap-e.pos:], e.history[:e.pos])
	} else {
		copy(out, e.history[:e.pos])
	}
	return out
}

// DecayRate computes the exponential growth rate λ from the current
// statistics and the latest sample's lubrication and thermal state.
func DecayRate(stats health.Statistics, latest machine.Sample) float64 {
	stress := stressOptimal
	switch stats.Status {
	case health.StatusWarning:
		stress = stressWarning
	case health.StatusCritical:
		stress = stressCritical
	}

	viscosity := math.Max(machine.ViscosityFloor, latest.Viscosity)
	viscosityFactor := math.Sqrt(machine.ViscosityRef / viscosity)
	temperatureFactor := math.Max(1, latest.Temperature/referenceTemperature)

	return stress * (1 + stats.RMSAcceleration/10) * viscosityFactor * temperatureFactor
}

// Estimate projects the current RMS velocity forward under λ and
// reports both the forecast-curve crossing and the closed-form time to
// failure t = ln(limit/V₀)/λ.
func (e *Estimator) Estimate(stats health.Statistics, latest machine.Sample) Estimate {
	return Forecast(DecayRate(stats, latest), stats.RMSVelocity)
}

// Forecast is the pure projection step given a growth rate and the
// current value.
func Forecast(lambda, v0 float64) Estimate {
	est := Estimate{Lambda: lambda, Current: v0}

	if lambda <= 0 || v0 <= 0 {
		est.Stable = true
		return est
	}
	if v0 >= CriticalVelocity {
		est.TimeToFailure = 0
		est.CrossingIn = 0
		est.Crosses = true
		return est
	}

	est.Forecast = make([]ForecastPoint, 0, ForecastSteps)
	for k := 1; k <= ForecastSteps; k++ {
		t := float64(k) * ForecastStep
		v := v0 * math.Exp(lambda*t)
		est.Forecast = append(est.Forecast, ForecastPoint{Time: t, Value: v})
		if !est.Crosses && v >= CriticalVelocity {
			est.CrossingIn = t
			est.Crosses = true
		}
	}

	est.TimeToFailure = math.Log(CriticalVelocity/v0) / lambda
	return est
}
