package storage

import (
	"testing"

	"github.com/sentomas/Digital-Twin-CNC/internal/cycle"
	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

func testTelemetry(n int) []machine.Sample {
	samples := make([]machine.Sample, n)
	for i := range samples {
		samples[i] = machine.Sample{
			Time:         float64(i) * machine.Dt,
			Displacement: float64(i) * 1e-6,
			Velocity:     float64(i) * 1e-4,
			ZPos:         0.1,
			SpindleSpeed: 1800,
			Load:         55,
			Temperature:  40,
			Viscosity:    68,
			Phase:        machine.PhaseCutting,
			Wear:         0.01,
		}
	}
	return samples
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	stats := health.Statistics{
		RMSDisplacement: 1.5e-5,
		AverageLoad:     55,
		Status:          health.StatusWarning,
	}
	reports := []cycle.Report{
		{Duration: 3.5, MaxVibration: 2e-5, MaxTemperature: 48, AverageLoad: 60, WearDelta: 0.012, Status: health.StatusOptimal},
		{Duration: 3.6, MaxVibration: 3e-5, MaxTemperature: 52, AverageLoad: 65, WearDelta: 0.013, Status: health.StatusWarning},
	}

	runID, err := st.Save(machine.DefaultParameters(), 42, 30, stats, 0.025, reports, testTelemetry(10))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.ID != runID || meta.Seed != 42 || meta.Duration != 30 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.FinalStatus != "warning" || meta.FinalWear != 0.025 {
		t.Errorf("final status/wear = %s/%f", meta.FinalStatus, meta.FinalWear)
	}
	if len(meta.Cycles) != 2 {
		t.Fatalf("cycles = %d, want 2", len(meta.Cycles))
	}
	if meta.Cycles[1].Status != "warning" || meta.Cycles[1].WearDelta != 0.013 {
		t.Errorf("second cycle = %+v", meta.Cycles[1])
	}
}

func TestLoadTelemetryRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	telemetry := testTelemetry(50)
	runID, err := st.Save(machine.DefaultParameters(), 1, 1, health.Statistics{}, 0, nil, telemetry)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := st.LoadTelemetry(runID)
	if err != nil {
		t.Fatalf("LoadTelemetry: %v", err)
	}
	if len(loaded) != len(telemetry) {
		t.Fatalf("loaded %d samples, want %d", len(loaded), len(telemetry))
	}
	for i := range telemetry {
		if loaded[i] != telemetry[i] {
			t.Fatalf("sample %d differs: %+v vs %+v", i, loaded[i], telemetry[i])
		}
	}
}

func TestList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty store, got %d runs", len(runs))
	}

	id1, err := st.Save(machine.DefaultParameters(), 1, 10, health.Statistics{}, 0.1, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := st.Save(machine.DefaultParameters(), 2, 20, health.Statistics{}, 0.2, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	found := map[string]bool{}
	for _, run := range runs {
		found[run.ID] = true
	}
	if !found[id1] || !found[id2] {
		t.Errorf("missing runs in listing: %v", found)
	}
}

func TestListOnMissingDirectory(t *testing.T) {
	st := New("/nonexistent/cnctwin-test-data")
	runs, err := st.List()
	if err != nil {
		t.Fatalf("List on a missing directory should not fail: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestLoadUnknownRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("run_0_deadbeef"); err == nil {
		t.Error("expected an error for an unknown run id")
	}
	if _, err := st.LoadTelemetry("run_0_deadbeef"); err == nil {
		t.Error("expected an error for unknown telemetry")
	}
}
