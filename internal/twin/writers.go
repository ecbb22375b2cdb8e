package twin

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sentomas/Digital-Twin-CNC/internal/cycle"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

// StdoutWriter prints a compact human-readable telemetry line. Every
// controls decimation: a value of n emits one line per n samples, so a
// 200 Hz stream stays readable.
type StdoutWriter struct {
	out   io.Writer
	every int
	count int
}

func NewStdoutWriter(every int) *StdoutWriter {
	if every < 1 {
		every = 1
	}
	return &StdoutWriter{out: os.Stdout, every: every}
}

func (w *StdoutWriter) Write(s machine.Sample) error {
	w.count++
	if w.count%w.every != 0 {
		return nil
	}
	_, err := fmt.Fprintf(w.out,
		"t=%8.3f  phase=%-10s  z=%6.4f  disp=%9.2e  rpm=%6.0f  load=%5.1f%%  temp=%5.1f  wear=%.4f\n",
		s.Time, s.Phase, s.ZPos, s.Displacement, s.SpindleSpeed, s.Load, s.Temperature, s.Wear)
	return err
}

func (w *StdoutWriter) WriteReport(r cycle.Report) error {
	_, err := fmt.Fprintf(w.out,
		"cycle done  duration=%.2fs  max_vib=%.2e  max_temp=%.1f  avg_load=%.1f%%  wear_delta=%.4f  status=%s\n",
		r.Duration, r.MaxVibration, r.MaxTemperature, r.AverageLoad, r.WearDelta, r.Status)
	return err
}

// JSONWriter emits one JSON object per line, suitable for piping into
// downstream tooling.
type JSONWriter struct {
	out   io.Writer
	every int
	count int
}

func NewJSONWriter(out io.Writer, every int) *JSONWriter {
	if out == nil {
		out = os.Stdout
	}
	if every < 1 {
		every = 1
	}
	return &JSONWriter{out: out, every: every}
}

type jsonSample struct {
	Time         float64 `json:"time"`
	Displacement float64 `json:"displacement"`
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
	ZPos         float64 `json:"z_pos"`
	Torque       float64 `json:"torque"`
	SpindleSpeed float64 `json:"spindle_speed"`
	Load         float64 `json:"load"`
	Temperature  float64 `json:"temperature"`
	Viscosity    float64 `json:"viscosity"`
	Phase        string  `json:"phase"`
	Wear         float64 `json:"wear"`
}

func (w *JSONWriter) Write(s machine.Sample) error {
	w.count++
	if w.count%w.every != 0 {
		return nil
	}
	data, err := json.Marshal(jsonSample{
		Time:         s.Time,
		Displacement: s.Displacement,
		Velocity:     s.Velocity,
		Acceleration: s.Acceleration,
		ZPos:         s.ZPos,
		Torque:       s.Torque,
		SpindleSpeed: s.SpindleSpeed,
		Load:         s.Load,
		Temperature:  s.Temperature,
		Viscosity:    s.Viscosity,
		Phase:        s.Phase.String(),
		Wear:         s.Wear,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

type jsonReport struct {
	Duration       float64 `json:"duration"`
	MaxVibration   float64 `json:"max_vibration"`
	MaxTemperature float64 `json:"max_temperature"`
	AverageLoad    float64 `json:"average_load"`
	WearDelta      float64 `json:"wear_delta"`
	Status         string  `json:"status"`
}

func (w *JSONWriter) WriteReport(r cycle.Report) error {
	data, err := json.Marshal(jsonReport{
		Duration:       r.Duration,
		MaxVibration:   r.MaxVibration,
		MaxTemperature: r.MaxTemperature,
		AverageLoad:    r.AverageLoad,
		WearDelta:      r.WearDelta,
		Status:         r.Status.String(),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// MultiWriter fans samples out to several writers; the first error is
// returned after all writers have been tried.
type MultiWriter struct {
	writers []TelemetryWriter
}

func NewMultiWriter(writers ...TelemetryWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(s machine.Sample) error {
	var first error
	for _, w := range m.writers {
		if err := w.Write(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiWriter) WriteReport(r cycle.Report) error {
	var first error
	for _, w := range m.writers {
		rw, ok := w.(ReportWriter)
		if !ok {
			continue
		}
		if err := rw.WriteReport(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
