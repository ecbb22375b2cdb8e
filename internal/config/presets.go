package config

import "sort"

// Presets are named machine setups covering the interesting corners of
// the model: a fresh spindle, a mid-life one, a badly worn one, and a
// low-rigidity setup that chatters under a heavy cut.
var Presets = map[string]*Config{
	"factory-new": {
		Machine: MachineConfig{Mass: 120, Stiffness: 8.0e6, Damping: 2500, BaseForce: 450, SensorNoise: 5e-7},
		Command: CommandConfig{CycleActive: true, FeedOverride: 1.0, SpindleOverride: 1.0, TargetSpeed: 1800, Coolant: true},
		Run:     RunConfig{Duration: 30, EmitEvery: 50},
	},
	"mid-life": {
		Machine: MachineConfig{Mass: 120, Stiffness: 7.2e6, Damping: 2200, BaseForce: 480, SensorNoise: 8e-7},
		Command: CommandConfig{CycleActive: true, FeedOverride: 1.1, SpindleOverride: 1.0, TargetSpeed: 2000, Coolant: true},
		Run:     RunConfig{Duration: 30, EmitEvery: 50},
	},
	"worn-spindle": {
		Machine: MachineConfig{Mass: 120, Stiffness: 6.0e6, Damping: 1800, BaseForce: 520, SensorNoise: 1.2e-6},
		Command: CommandConfig{CycleActive: true, FeedOverride: 1.2, SpindleOverride: 1.1, TargetSpeed: 2200},
		Run:     RunConfig{Duration: 45, EmitEvery: 50},
	},
	"chatter-prone": {
		Machine: MachineConfig{Mass: 90, Stiffness: 5.0e6, Damping: 1200, BaseForce: 560, SensorNoise: 1e-6},
		Command: CommandConfig{CycleActive: true, FeedOverride: 1.3, SpindleOverride: 1.2, TargetSpeed: 2400},
		Run:     RunConfig{Duration: 45, EmitEvery: 50},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
