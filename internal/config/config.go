// Package config holds the command-line and environment configuration
// shared by every fruitshop command.
package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/teslashibe/fruit-shop/internal/log"
	"github.com/teslashibe/fruit-shop/pkg/audio"
	"github.com/teslashibe/fruit-shop/pkg/camera"
	"github.com/teslashibe/fruit-shop/pkg/checkout"
	"github.com/teslashibe/fruit-shop/pkg/classifier"
)

// EnvPrefix is prepended to flag names to form environment variables,
// e.g. FRUITSHOP_MODEL_URL.
const EnvPrefix = "FRUITSHOP"

// Defaults.
const (
	DefaultListen      = ":8080"
	DefaultModelURL    = "./model"
	DefaultTick        = 100 * time.Millisecond
	DefaultHTTPTimeout = 30 * time.Second
	DefaultLogFile     = "fruitshop.log"
)

// Config is everything a till needs to run.
type Config struct {
	Listen string

	// Classifier descriptors
	ModelURL     string
	ModelFile    string
	MetadataFile string

	CatalogFile string

	CameraPreset string
	Camera       camera.Config

	Tick            time.Duration
	ConfidenceFloor float64
	Cooldown        time.Duration
	MissLimit       int

	SoundCommand string
	SoundFile    string

	LogLevel string
	LogJSON  bool
	LogFile  string

	HTTPTimeout time.Duration

	fs ff.Flags
}

// Register adds the shared flags to fs and returns the Config they fill.
func Register(fs *ff.FlagSet) *Config {
	c := &Config{fs: fs}
	cam := camera.DefaultConfig()

	fs.StringVar(&c.Listen, 0, "listen", DefaultListen, "dashboard listen address")

	fs.StringVar(&c.ModelURL, 'm', "model-url", DefaultModelURL, "classifier base URL or local directory")
	fs.StringVar(&c.ModelFile, 0, "model-file", classifier.DefaultModelFile, "model file name under --model-url")
	fs.StringVar(&c.MetadataFile, 0, "metadata-file", classifier.DefaultMetadataFile, "metadata file name under --model-url")

	fs.StringVar(&c.CatalogFile, 0, "catalog", "", "catalog YAML file (default: built-in price table)")

	fs.StringVar(&c.CameraPreset, 0, "camera-preset", "", "camera preset: default, hd, low-cpu, no-mirror")
	fs.IntVar(&c.Camera.Device, 0, "camera-device", cam.Device, "webcam device index")
	fs.IntVar(&c.Camera.Width, 0, "camera-width", cam.Width, "capture width in pixels")
	fs.IntVar(&c.Camera.Height, 0, "camera-height", cam.Height, "capture height in pixels")
	fs.IntVar(&c.Camera.Framerate, 0, "camera-fps", cam.Framerate, "capture framerate")
	fs.BoolVarDefault(&c.Camera.Mirror, 0, "mirror", cam.Mirror, "flip frames horizontally")

	fs.DurationVar(&c.Tick, 0, "tick", DefaultTick, "classifier polling interval")
	fs.Float64Var(&c.ConfidenceFloor, 0, "confidence-floor", checkout.DefaultConfidenceFloor, "minimum probability for a scan")
	fs.DurationVar(&c.Cooldown, 0, "cooldown", checkout.DefaultCooldown, "minimum time between accepted scans")
	fs.IntVar(&c.MissLimit, 0, "miss-limit", checkout.DefaultMissLimit, "low-confidence frames before the last label is forgotten")

	fs.StringVar(&c.SoundCommand, 0, "sound-command", audio.DefaultConfig().Command, "command that plays the scan sound")
	fs.StringVar(&c.SoundFile, 0, "sound-file", "", "sound file for the scan cue (default: synthesized beep)")

	fs.StringVar(&c.LogLevel, 0, "log-level", "info", "log level: debug, info, warn, error")
	fs.BoolVar(&c.LogJSON, 0, "log-json", "log as JSON")
	fs.StringVar(&c.LogFile, 0, "log-file", "", "log file (the tui defaults to "+DefaultLogFile+")")

	fs.DurationVar(&c.HTTPTimeout, 0, "http-timeout", DefaultHTTPTimeout, "timeout for fetching the classifier")

	return c
}

// Finalize applies the camera preset. Camera flags set explicitly win over
// the preset.
func (c *Config) Finalize() error {
	if c.CameraPreset == "" {
		return nil
	}
	preset := camera.GetPreset(c.CameraPreset)
	if preset == nil {
		return fmt.Errorf("unknown camera preset %q (valid: %v)", c.CameraPreset, camera.PresetNames())
	}

	set := func(name string) bool {
		if c.fs == nil {
			return false
		}
		f, ok := c.fs.GetFlag(name)
		return ok && f.IsSet()
	}
	if !set("camera-device") {
		c.Camera.Device = preset.Device
	}
	if !set("camera-width") {
		c.Camera.Width = preset.Width
	}
	if !set("camera-height") {
		c.Camera.Height = preset.Height
	}
	if !set("camera-fps") {
		c.Camera.Framerate = preset.Framerate
	}
	if !set("mirror") {
		c.Camera.Mirror = preset.Mirror
	}
	return nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if c.ModelURL == "" {
		errs = append(errs, errors.New("model-url is required"))
	}
	for _, msg := range c.Camera.Validate() {
		errs = append(errs, errors.New("camera: "+msg))
	}
	if c.Tick <= 0 {
		errs = append(errs, errors.New("tick must be positive"))
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor >= 1 {
		errs = append(errs, errors.New("confidence-floor must be in [0, 1)"))
	}
	if c.Cooldown < 0 {
		errs = append(errs, errors.New("cooldown must be >= 0"))
	}
	if c.MissLimit < 0 {
		errs = append(errs, errors.New("miss-limit must be >= 0"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http-timeout must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log-level %q is not one of debug, info, warn, error", c.LogLevel))
	}

	return errors.Join(errs...)
}

// Rules returns the debounce settings.
func (c *Config) Rules() checkout.Rules {
	return checkout.Rules{
		ConfidenceFloor: c.ConfidenceFloor,
		Cooldown:        c.Cooldown,
		MissLimit:       c.MissLimit,
	}
}

// ModelSource returns where the classifier descriptors live.
func (c *Config) ModelSource() classifier.Source {
	return classifier.Source{
		BaseURL:      c.ModelURL,
		ModelFile:    c.ModelFile,
		MetadataFile: c.MetadataFile,
	}
}

// Audio returns the scan cue settings.
func (c *Config) Audio() audio.Config {
	cfg := audio.DefaultConfig()
	cfg.Command = c.SoundCommand
	cfg.SoundFile = c.SoundFile
	return cfg
}

// Log returns logger options writing to out.
func (c *Config) Log(out io.Writer) log.Options {
	return log.Options{Level: c.LogLevel, JSON: c.LogJSON, Output: out}
}
