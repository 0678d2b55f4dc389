package camera

import "sort"

// Preset names for common webcam configurations.
const (
	PresetDefault = "default"
	PresetHD      = "hd"
	PresetLowCPU  = "low-cpu"
	PresetNoFlip  = "no-mirror"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetHD:      HDConfig(),
		PresetLowCPU:  LowCPUConfig(),
		PresetNoFlip:  NoMirrorConfig(),
	}
}

// PresetNames returns the sorted list of preset names.
func PresetNames() []string {
	names := make([]string, 0, 4)
	for name := range Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HDConfig captures 1280x720. The classifier input is still 224x224, so
// this only helps when the fruit is far from the lens.
func HDConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// LowCPUConfig halves resolution and framerate for slow machines.
func LowCPUConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Framerate = 15
	return cfg
}

// NoMirrorConfig is for cameras mounted above the counter facing down.
func NoMirrorConfig() Config {
	cfg := DefaultConfig()
	cfg.Mirror = false
	return cfg
}
