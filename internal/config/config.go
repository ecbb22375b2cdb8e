package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
)

const (
	DefaultDuration = 30.0
	DefaultSpeed    = 1800.0
	MaxOverride     = 1.5
)

type Config struct {
	Machine MachineConfig `yaml:"machine"`
	Command CommandConfig `yaml:"command"`
	Run     RunConfig     `yaml:"run"`
}

type MachineConfig struct {
	Mass        float64 `yaml:"mass"`
	Stiffness   float64 `yaml:"stiffness"`
	Damping     float64 `yaml:"damping"`
	BaseForce   float64 `yaml:"base_force"`
	SensorNoise float64 `yaml:"sensor_noise"`
}

type CommandConfig struct {
	CycleActive     bool    `yaml:"cycle_active"`
	FeedOverride    float64 `yaml:"feed_override"`
	SpindleOverride float64 `yaml:"spindle_override"`
	TargetSpeed     float64 `yaml:"target_speed"`
	Coolant         bool    `yaml:"coolant"`
}

type RunConfig struct {
	Duration  float64 `yaml:"duration"`
	Seed      int64   `yaml:"seed"`
	EmitEvery int     `yaml:"emit_every"`
}

func DefaultConfig() *Config {
	p := machine.DefaultParameters()
	return &Config{
		Machine: MachineConfig{
			Mass:        p.Mass,
			Stiffness:   p.Stiffness,
			Damping:     p.Damping,
			BaseForce:   p.BaseForce,
			SensorNoise: p.SensorNoise,
		},
		Command: CommandConfig{
			CycleActive:     true,
			FeedOverride:    1.0,
			SpindleOverride: 1.0,
			TargetSpeed:     DefaultSpeed,
		},
		Run: RunConfig{
			Duration:  DefaultDuration,
			EmitEvery: 50,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations the simulation core assumes are
// impossible, and clamps override ranges on the operator's behalf.
func (c *Config) Validate() error {
	if err := c.Parameters().Validate(); err != nil {
		return fmt.Errorf("machine: %w", err)
	}
	if c.Run.Duration <= 0 {
		return fmt.Errorf("run: duration must be positive, got %f", c.Run.Duration)
	}
	if c.Command.TargetSpeed < 0 {
		return fmt.Errorf("command: target_speed must not be negative, got %f", c.Command.TargetSpeed)
	}
	c.Command.FeedOverride = clampOverride(c.Command.FeedOverride)
	c.Command.SpindleOverride = clampOverride(c.Command.SpindleOverride)
	return nil
}

func clampOverride(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxOverride {
		return MaxOverride
	}
	return v
}

func (c *Config) Parameters() machine.Parameters {
	return machine.Parameters{
		Mass:        c.Machine.Mass,
		Stiffness:   c.Machine.Stiffness,
		Damping:     c.Machine.Damping,
		BaseForce:   c.Machine.BaseForce,
		SensorNoise: c.Machine.SensorNoise,
	}
}

func (c *Config) InitialCommand() machine.Command {
	return machine.Command{
		CycleActive:     c.Command.CycleActive,
		FeedOverride:    c.Command.FeedOverride,
		SpindleOverride: c.Command.SpindleOverride,
		TargetSpeed:     c.Command.TargetSpeed,
		CoolantActive:   c.Command.Coolant,
	}
}

// Steps converts the configured duration into integrator ticks.
func (c *Config) Steps() int {
	return int(c.Run.Duration / machine.Dt)
}
