package cycle

import (
	"math"
	"testing"

	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

func TestReportOnFallingEdgeOnly(t *testing.T) {
	r := NewReporter()

	if _, ok := r.Observe(false, machine.Sample{Time: 0}); ok {
		t.Fatal("no report expected while idle")
	}
	if _, ok := r.Observe(true, machine.Sample{Time: 1}); ok {
		t.Fatal("no report expected on the rising edge")
	}
	if !r.Active() {
		t.Fatal("reporter should be accumulating")
	}
	if _, ok := r.Observe(true, machine.Sample{Time: 2}); ok {
		t.Fatal("no report expected mid-cycle")
	}

	report, ok := r.Observe(false, machine.Sample{Time: 3})
	if !ok {
		t.Fatal("expected a report on the falling edge")
	}
	if report.Duration != 1 {
		t.Errorf("duration = %f, want 1 (t=1 to t=2)", report.Duration)
	}

	if _, ok := r.Observe(false, machine.Sample{Time: 4}); ok {
		t.Error("report must be emitted exactly once per cycle")
	}
}

func TestReportAccumulation(t *testing.T) {
	r := NewReporter()

	ticks := []machine.Sample{
		{Time: 1.0, Displacement: 1e-6, Temperature: 30, Load: 40, Wear: 0.10},
		{Time: 1.5, Displacement: -5e-6, Temperature: 45, Load: 60, Wear: 0.12},
		{Time: 2.0, Displacement: 3e-6, Temperature: 42, Load: 50, Wear: 0.15},
	}
	for _, s := range ticks {
		if _, ok := r.Observe(true, s); ok {
			t.Fatal("unexpected report mid-cycle")
		}
	}

	report, ok := r.Observe(false, machine.Sample{Time: 2.5})
	if !ok {
		t.Fatal("expected a report")
	}

	if report.Duration != 1.0 {
		t.Errorf("duration = %f, want 1.0", report.Duration)
	}
	if report.MaxVibration != 5e-6 {
		t.Errorf("max vibration = %e, want 5e-6 (absolute value)", report.MaxVibration)
	}
	if report.MaxTemperature != 45 {
		t.Errorf("max temperature = %f, want 45", report.MaxTemperature)
	}
	if report.AverageLoad != 50 {
		t.Errorf("average load = %f, want 50", report.AverageLoad)
	}
	if math.Abs(report.WearDelta-0.05) > 1e-12 {
		t.Errorf("wear delta = %f, want 0.05", report.WearDelta)
	}
	if report.Status != health.StatusOptimal {
		t.Errorf("status = %s, want optimal", report.Status)
	}
}

func TestReportStatusFromExtremes(t *testing.T) {
	r := NewReporter()

	// One critical vibration spike classifies the whole cycle even if
	// the rest was quiet.
	r.Observe(true, machine.Sample{Time: 0, Displacement: 1e-6, Load: 10})
	r.Observe(true, machine.Sample{Time: 1, Displacement: 7e-5, Load: 10})
	r.Observe(true, machine.Sample{Time: 2, Displacement: 1e-6, Load: 10})

	report, ok := r.Observe(false, machine.Sample{Time: 3})
	if !ok {
		t.Fatal("expected a report")
	}
	if report.Status != health.StatusCritical {
		t.Errorf("status = %s, want critical from the spike", report.Status)
	}
}

func TestReporterResetsBetweenCycles(t *testing.T) {
	r := NewReporter()

	r.Observe(true, machine.Sample{Time: 0, Displacement: 9e-5, Load: 95, Wear: 0.0})
	first, ok := r.Observe(false, machine.Sample{Time: 1})
	if !ok || first.Status != health.StatusCritical {
		t.Fatalf("first cycle should report critical, got %v %v", first.Status, ok)
	}

	// A quiet second cycle must not inherit the first cycle's extremes.
	r.Observe(true, machine.Sample{Time: 2, Displacement: 1e-6, Load: 20, Wear: 0.3})
	r.Observe(true, machine.Sample{Time: 3, Displacement: 2e-6, Load: 30, Wear: 0.3})
	second, ok := r.Observe(false, machine.Sample{Time: 4})
	if !ok {
		t.Fatal("expected a second report")
	}
	if second.Status != health.StatusOptimal {
		t.Errorf("second cycle status = %s, want optimal", second.Status)
	}
	if second.MaxVibration != 2e-6 {
		t.Errorf("second cycle max vibration = %e, leaked from the first", second.MaxVibration)
	}
	if second.WearDelta != 0 {
		t.Errorf("second cycle wear delta = %f, want 0", second.WearDelta)
	}
	if second.AverageLoad != 25 {
		t.Errorf("second cycle average load = %f, want 25", second.AverageLoad)
	}
}
