package twin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sentomas/Digital-Twin-CNC/internal/cycle"
	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
	"github.com/sentomas/Digital-Twin-CNC/internal/sampler"
	"github.com/sentomas/Digital-Twin-CNC/internal/spectrum"
)

func activeCommand() machine.Command {
	cmd := machine.DefaultCommand()
	cmd.CycleActive = true
	return cmd
}

type captureWriter struct {
	samples []machine.Sample
	reports []cycle.Report
}

func (c *captureWriter) Write(s machine.Sample) error {
	c.samples = append(c.samples, s)
	return nil
}

func (c *captureWriter) WriteReport(r cycle.Report) error {
	c.reports = append(c.reports, r)
	return nil
}

type failingWriter struct{ calls int }

func (f *failingWriter) Write(machine.Sample) error {
	f.calls++
	return errors.New("sink unavailable")
}

func TestTickAdvancesAndBuffers(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)

	var last machine.Sample
	for i := 0; i < 10; i++ {
		last = tw.Tick()
	}

	if got := tw.State().Time; got < 10*machine.Dt-1e-12 {
		t.Errorf("state time = %f after 10 ticks", got)
	}
	if latest, ok := tw.Latest(); !ok || latest != last {
		t.Error("latest buffered sample should match the last tick's return")
	}
	if got := len(tw.Telemetry()); got != 10 {
		t.Errorf("telemetry length = %d, want 10", got)
	}
}

func TestTelemetryBounded(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)
	for i := 0; i < sampler.DefaultCapacity+50; i++ {
		tw.Tick()
	}
	if got := len(tw.Telemetry()); got != sampler.DefaultCapacity {
		t.Errorf("telemetry length = %d, want capped at %d", got, sampler.DefaultCapacity)
	}
}

func TestWritersReceiveEverySample(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)
	cw := &captureWriter{}
	tw.AddWriter(cw)

	for i := 0; i < 25; i++ {
		tw.Tick()
	}
	if len(cw.samples) != 25 {
		t.Errorf("writer received %d samples, want 25", len(cw.samples))
	}
}

func TestFailingWriterDoesNotStopTheTwin(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)
	fw := &failingWriter{}
	cw := &captureWriter{}
	tw.AddWriter(fw)
	tw.AddWriter(cw)

	for i := 0; i < 5; i++ {
		tw.Tick()
	}
	if fw.calls != 5 {
		t.Errorf("failing writer called %d times, want 5", fw.calls)
	}
	if len(cw.samples) != 5 {
		t.Errorf("later writer starved after an error: got %d samples", len(cw.samples))
	}
}

func TestUpdateCommandAppliesAtTickBoundary(t *testing.T) {
	tw := New(machine.DefaultParameters(), machine.DefaultCommand(), 1, nil)

	// Inactive command: the axis must not move.
	for i := 0; i < 50; i++ {
		tw.Tick()
	}
	if tw.State().Phase != machine.PhaseIdle {
		t.Fatal("expected idle while cycle inactive")
	}

	tw.UpdateCommand(func(c *machine.Command) { c.CycleActive = true })
	if !tw.Command().CycleActive {
		t.Fatal("command update not visible")
	}

	tw.Tick()
	if tw.State().Phase == machine.PhaseIdle {
		t.Error("cycle should start on the first tick after activation")
	}
}

func TestReportEmittedOnCycleStop(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)
	cw := &captureWriter{}
	tw.AddWriter(cw)

	for i := 0; i < 400; i++ {
		tw.Tick()
	}
	if len(tw.Reports()) != 0 {
		t.Fatal("no report expected while the cycle is still running")
	}

	tw.UpdateCommand(func(c *machine.Command) { c.CycleActive = false })
	tw.Tick()

	reports := tw.Reports()
	if len(reports) != 1 {
		t.Fatalf("expected exactly one report after stop, got %d", len(reports))
	}
	if reports[0].Duration <= 0 {
		t.Errorf("report duration = %f, want positive", reports[0].Duration)
	}
	if len(cw.reports) != 1 {
		t.Errorf("report writer received %d reports, want 1", len(cw.reports))
	}

	// Staying inactive emits nothing further.
	for i := 0; i < 50; i++ {
		tw.Tick()
	}
	if len(tw.Reports()) != 1 {
		t.Error("extra reports emitted while idle")
	}
}

func TestStatsAndSpectrumFromBuffer(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)
	for i := 0; i < spectrum.WindowSize; i++ {
		tw.Tick()
	}

	stats := tw.Stats()
	if stats.RMSDisplacement <= 0 {
		t.Error("expected non-zero rms displacement from a running machine")
	}
	if stats.Status != health.StatusOptimal {
		t.Errorf("default setup should be optimal, got %s", stats.Status)
	}

	bins := tw.Spectrum()
	if len(bins) != spectrum.WindowSize/2 {
		t.Errorf("spectrum has %d bins, want %d", len(bins), spectrum.WindowSize/2)
	}
}

func TestEstimateOnEmptyTwin(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)
	if est := tw.Estimate(); !est.Stable {
		t.Error("estimate before any telemetry should be stable")
	}
}

func TestTrendAccumulates(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)
	// 2.5 simulated seconds spans five trend buckets.
	for i := 0; i < 500; i++ {
		tw.Tick()
	}
	trend := tw.Trend()
	if len(trend) < 4 {
		t.Errorf("trend has %d points after 2.5s, want at least 4", len(trend))
	}
	for i := 1; i < len(trend); i++ {
		if trend[i].Time <= trend[i-1].Time {
			t.Fatalf("trend not time-ordered at %d", i)
		}
	}
}

func TestRunStepsHonorsContext(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tw.RunSteps(ctx, 1000); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if got := len(tw.Telemetry()); got != 0 {
		t.Errorf("no ticks expected after cancellation, got %d", got)
	}

	if err := tw.RunSteps(context.Background(), 100); err != nil {
		t.Fatalf("RunSteps: %v", err)
	}
	if got := len(tw.Telemetry()); got != 100 {
		t.Errorf("telemetry length = %d, want 100", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	tw := New(machine.DefaultParameters(), activeCommand(), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tw.Run(ctx, time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if _, ok := tw.Latest(); !ok {
		t.Error("expected at least one tick before cancellation")
	}
}
