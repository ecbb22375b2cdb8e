package machine

import (
	"fmt"
	"math"
)

// Phase is one state of the work-cycle state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRapidDown
	PhaseCutting
	PhaseRetract
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRapidDown:
		return "rapid_down"
	case PhaseCutting:
		return "cutting"
	case PhaseRetract:
		return "retract"
	default:
		return "unknown"
	}
}

// Parameters are the fixed physical properties of one spindle assembly.
// They never change during a run.
type Parameters struct {
	Mass        float64 // kg
	Stiffness   float64 // N/m
	Damping     float64 // Ns/m
	BaseForce   float64 // N, nominal cutting force at 100% feed
	SensorNoise float64 // m, additive displacement noise amplitude
}

func DefaultParameters() Parameters {
	return Parameters{
		Mass:        120.0,
		Stiffness:   8.0e6,
		Damping:     2500.0,
		BaseForce:   450.0,
		SensorNoise: 5.0e-7,
	}
}

func (p Parameters) Validate() error {
	if p.Mass <= 0 {
		return fmt.Errorf("mass must be positive, got %f", p.Mass)
	}
	if p.Stiffness <= 0 {
		return fmt.Errorf("stiffness must be positive, got %f", p.Stiffness)
	}
	return nil
}

// NaturalFrequency returns the undamped natural frequency in Hz for a
// given effective stiffness.
func (p Parameters) NaturalFrequency(stiffness float64) float64 {
	return math.Sqrt(stiffness/p.Mass) / (2 * math.Pi)
}

// Command is the operator-side input. It is mutated externally and read
// once per tick; overrides outside [0, 1.5] are clamped on read.
type Command struct {
	CycleActive     bool
	FeedOverride    float64
	SpindleOverride float64
	TargetSpeed     float64 // rev/min
	CoolantActive   bool
}

func DefaultCommand() Command {
	return Command{
		CycleActive:     false,
		FeedOverride:    1.0,
		SpindleOverride: 1.0,
		TargetSpeed:     1800.0,
	}
}

// CommandedSpeed is the override-scaled spindle setpoint in rev/min.
func (c Command) CommandedSpeed() float64 {
	return c.TargetSpeed * clampOverride(c.SpindleOverride)
}

func clampOverride(v float64) float64 {
	return clamp(v, 0, 1.5)
}

// State is the full simulation state, owned exclusively by the
// Integrator and mutated once per tick.
type State struct {
	Time         float64
	ZPos         float64 // m, 0 at top, BottomZ at max cut depth
	AxisVel      float64 // m/s, positive is downward
	Phase        Phase
	SpindleSpeed float64 // rev/min, actual
	Temperature  float64 // °C
	Viscosity    float64 // cSt
	Wear         float64 // [0, 1], monotone
	Displacement float64 // m, instantaneous vibration
}

// Sample is one tick of telemetry, immutable once produced.
type Sample struct {
	Time         float64
	Displacement float64 // m
	Velocity     float64 // m/s
	Acceleration float64 // m/s²
	ZPos         float64 // m
	Torque       float64 // Nm
	SpindleSpeed float64 // rev/min
	Load         float64 // %, [0, 100]
	Temperature  float64 // °C
	Viscosity    float64 // cSt
	Phase        Phase
	Wear         float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
