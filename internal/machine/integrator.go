package machine

import (
	"math"
	"math/rand"
)

// Fixed logical timestep. The telemetry sample rate is its inverse.
const (
	Dt         = 0.005
	SampleRate = 1.0 / Dt
)

// Axis geometry and motion constants (m, m/s).
const (
	RetractZ = 0.02
	SurfaceZ = 0.10
	BottomZ  = 0.25

	rapidSpeed   = 0.25
	cuttingFeed  = 0.05
	retractSpeed = 0.50

	axisTau    = 0.02 // s, axis velocity exponential-approach constant
	spindleTau = 0.40 // s, spindle spin-up constant
)

// Structural and vibration model constants.
const (
	extensionFloor    = 0.25
	wearStiffnessLoss = 0.45 // stiffness lost at full wear

	unbalanceBase     = 0.05 // fraction of base force at zero wear
	unbalanceWearGain = 0.50
	cutHarmonicGain   = 0.35

	ChatterForceMin  = 300.0 // N
	ChatterRigidity  = 9.0e6 // N/m, effective stiffness below which chatter can start
	chatterGain      = 0.90

	dampingRef          = 5000.0 // Ns/m
	coolantDampingBoost = 1.20

	retractAttenuation = 0.05
)

// Motor, thermal, and lubrication constants.
const (
	RatedSpeed  = 3000.0 // rev/min
	ratedForce  = 600.0  // N
	ratedTorque = 95.0   // Nm

	idleLoadGain = 20.0 // % at rated speed
	cutLoadGain  = 65.0 // % at rated force

	ambientTemp  = 25.0
	tempLoadGain = 0.75 // °C per % load
	tempTauHot   = 40.0 // s
	coolantTemp  = 32.0
	tempTauCool  = 8.0 // s

	ViscosityRef   = 68.0 // cSt at 40°C (ISO VG 68)
	viscosityBeta  = 0.035
	ViscosityFloor = 5.0

	wearForceMin = 300.0 // N
	wearRate     = 0.004 // per second of engaged cutting
)

// Integrator advances the spindle simulation by one fixed timestep per
// Step call. It is a deterministic function of (state, parameters,
// command) apart from the seeded sensor noise, has no error paths, and
// never produces non-finite output.
type Integrator struct {
	params Parameters
	state  State
	rng    *rand.Rand
}

func NewIntegrator(params Parameters, seed int64) *Integrator {
	return &Integrator{
		params: params,
		state: State{
			Phase:       PhaseIdle,
			Temperature: ambientTemp,
			Viscosity:   viscosityAt(ambientTemp),
		},
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (g *Integrator) Params() Parameters { return g.params }

// State returns a copy of the current simulation state.
func (g *Integrator) State() State { return g.state }

// Step advances the simulation by Dt under the given command and emits
// the tick's telemetry sample. The command is read once; updates take
// effect only at tick boundaries.
func (g *Integrator) Step(cmd Command) Sample {
	p := g.params
	s := &g.state

	feed := clampOverride(cmd.FeedOverride)

	// Cycle state machine. Transitions only advance while the cycle is
	// active; a feed hold freezes the phase where it is.
	targetVel := 0.0
	cutForce := 0.0
	if cmd.CycleActive {
		switch s.Phase {
		case PhaseIdle:
			s.Phase = PhaseRapidDown
		case PhaseRapidDown:
			if s.ZPos >= SurfaceZ {
				s.Phase = PhaseCutting
			}
		case PhaseCutting:
			if s.ZPos >= BottomZ {
				s.Phase = PhaseRetract
			}
		case PhaseRetract:
			if s.ZPos <= RetractZ {
				s.Phase = PhaseRapidDown
			}
		}

		switch s.Phase {
		case PhaseRapidDown:
			targetVel = rapidSpeed * feed
		case PhaseCutting:
			targetVel = cuttingFeed * feed
			cutForce = p.BaseForce * feed
		case PhaseRetract:
			targetVel = -retractSpeed
		}
	}

	// Axis tracks its target with a first-order approach, not a PID.
	s.AxisVel += (targetVel - s.AxisVel) * Dt / axisTau
	s.ZPos = clamp(s.ZPos+s.AxisVel*Dt, 0, BottomZ)

	cmdSpeed := cmd.CommandedSpeed()
	s.SpindleSpeed += (cmdSpeed - s.SpindleSpeed) * Dt / spindleTau
	omega := s.SpindleSpeed * 2 * math.Pi / 60

	// Effective stiffness degrades with wear and axis extension. The
	// extension denominator is floored so it can never blow up.
	extension := math.Max(extensionFloor, s.ZPos/BottomZ)
	kEff := p.Stiffness * (1 - wearStiffnessLoss*s.Wear) / extension

	// Forcing: 1x unbalance always, 4x cutting harmonic while engaged,
	// and a near-natural-frequency chatter term when the cut is heavy
	// and the structure has lost rigidity.
	forcing := p.BaseForce * (unbalanceBase + unbalanceWearGain*s.Wear) * math.Sin(omega*s.Time)
	if s.Phase == PhaseCutting && cutForce > 0 {
		forcing += cutHarmonicGain * cutForce * math.Sin(4*omega*s.Time)
		if cutForce > ChatterForceMin && kEff < ChatterRigidity {
			fn := p.NaturalFrequency(kEff)
			forcing += chatterGain * cutForce * math.Sin(2*math.Pi*fn*s.Time)
		}
	}

	damping := math.Abs(p.Damping)
	if cmd.CoolantActive {
		damping *= coolantDampingBoost
	}
	reduction := 1 / (1 + damping/dampingRef)

	noise := p.SensorNoise * (2*g.rng.Float64() - 1)
	if s.Phase == PhaseRetract {
		// Tool disengaged: forced vibration and process noise collapse.
		forcing *= retractAttenuation
		noise *= retractAttenuation
	}

	disp := forcing/kEff*reduction + noise
	// Steady-state harmonic approximation: derive velocity and
	// acceleration algebraically rather than differentiating.
	vel := disp * omega
	acc := vel * omega
	s.Displacement = disp

	load := clamp(idleLoadGain*(cmdSpeed/RatedSpeed)+cutLoadGain*(cutForce/ratedForce), 0, 100)
	torque := load / 100 * ratedTorque

	tempTarget, tau := ambientTemp+tempLoadGain*load, tempTauHot
	if cmd.CoolantActive {
		tempTarget, tau = coolantTemp, tempTauCool
	}
	s.Temperature += (tempTarget - s.Temperature) * Dt / tau

	s.Viscosity = viscosityAt(s.Temperature)

	if s.Phase == PhaseCutting && cutForce > wearForceMin {
		s.Wear = math.Min(1, s.Wear+wearRate*Dt)
	}

	s.Time += Dt

	return Sample{
		Time:         s.Time,
		Displacement: disp,
		Velocity:     vel,
		Acceleration: acc,
		ZPos:         s.ZPos,
		Torque:       torque,
		SpindleSpeed: s.SpindleSpeed,
		Load:         load,
		Temperature:  s.Temperature,
		Viscosity:    s.Viscosity,
		Phase:        s.Phase,
		Wear:         s.Wear,
	}
}

func viscosityAt(temp float64) float64 {
	return math.Max(ViscosityFloor, ViscosityRef*math.Exp(-viscosityBeta*(temp-40)))
}
