// Package storage persists completed run summaries and telemetry
// traces to a local data directory. Simulation state itself is never
// persisted; a stored run is an immutable record of outputs.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sentomas/Digital-Twin-CNC/internal/cycle"
	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type ReportRecord struct {
	Duration       float64 `json:"duration"`
	MaxVibration   float64 `json:"max_vibration"`
	MaxTemperature float64 `json:"max_temperature"`
	AverageLoad    float64 `json:"average_load"`
	WearDelta      float64 `json:"wear_delta"`
	Status         string  `json:"status"`
}

type RunMetadata struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Seed            int64          `json:"seed"`
	Duration        float64        `json:"duration"`
	Mass            float64        `json:"mass"`
	Stiffness       float64        `json:"stiffness"`
	Damping         float64        `json:"damping"`
	BaseForce       float64        `json:"base_force"`
	FinalStatus     string         `json:"final_status"`
	RMSDisplacement float64        `json:"rms_displacement"`
	AverageLoad     float64        `json:"average_load"`
	FinalWear       float64        `json:"final_wear"`
	Cycles          []ReportRecord `json:"cycles"`
}

var telemetryHeader = []string{
	"time", "displacement", "velocity", "acceleration", "z_pos",
	"torque", "spindle_speed", "load", "temperature", "viscosity", "phase", "wear",
}

// Save writes one run directory with metadata.json and telemetry.csv
// and returns the generated run ID.
func (s *Store) Save(params machine.Parameters, seed int64, duration float64,
	stats health.Statistics, finalWear float64, reports []cycle.Report,
	telemetry []machine.Sample) (string, error) {

	runID := fmt.Sprintf("run_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:              runID,
		Timestamp:       time.Now(),
		Seed:            seed,
		Duration:        duration,
		Mass:            params.Mass,
		Stiffness:       params.Stiffness,
		Damping:         params.Damping,
		BaseForce:       params.BaseForce,
		FinalStatus:     stats.Status.String(),
		RMSDisplacement: stats.RMSDisplacement,
		AverageLoad:     stats.AverageLoad,
		FinalWear:       finalWear,
	}
	for _, r := range reports {
		meta.Cycles = append(meta.Cycles, ReportRecord{
			Duration:       r.Duration,
			MaxVibration:   r.MaxVibration,
			MaxTemperature: r.MaxTemperature,
			AverageLoad:    r.AverageLoad,
			WearDelta:      r.WearDelta,
			Status:         r.Status.String(),
		})
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "telemetry.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(telemetryHeader); err != nil {
		return "", err
	}
	for _, t := range telemetry {
		row := []string{
			f(t.Time), f(t.Displacement), f(t.Velocity), f(t.Acceleration), f(t.ZPos),
			f(t.Torque), f(t.SpindleSpeed), f(t.Load), f(t.Temperature), f(t.Viscosity),
			strconv.Itoa(int(t.Phase)), f(t.Wear),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// f formats with the shortest representation that parses back to the
// same float64, so a stored trace replays bit-exact.
func f(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTelemetry reads a stored telemetry trace back into samples.
// Malformed rows are skipped rather than failing the whole load.
func (s *Store) LoadTelemetry(runID string) ([]machine.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "telemetry.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []machine.Sample{}, nil
	}

	samples := make([]machine.Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(telemetryHeader) {
			continue
		}
		vals := make([]float64, len(rec))
		ok := true
		for i, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		samples = append(samples, machine.Sample{
			Time:         vals[0],
			Displacement: vals[1],
			Velocity:     vals[2],
			Acceleration: vals[3],
			ZPos:         vals[4],
			Torque:       vals[5],
			SpindleSpeed: vals[6],
			Load:         vals[7],
			Temperature:  vals[8],
			Viscosity:    vals[9],
			Phase:        machine.Phase(int(vals[10])),
			Wear:         vals[11],
		})
	}
	return samples, nil
}
