package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/ember/engine/audio"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/platform"
	"github.com/spaghettifunk/ember/engine/systems"
)

var ErrInvalidConfig = errors.New("invalid application config")

type AudioConfig struct {
	// Enabled creates the default audio backend when no driver is injected.
	Enabled        bool `toml:"enabled"`
	MaxBufferCount int  `toml:"max_buffer_count"`
	MaxSourceCount int  `toml:"max_source_count"`
	SampleRate     int  `toml:"sample_rate"`
	// Speaker buffer length in milliseconds.
	LatencyMS int `toml:"latency_ms"`
}

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX int `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY int `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth int `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight int `toml:"start_height"`
	// Canvas element used by the browser build.
	CanvasID string `toml:"canvas_id"`
	VSync    bool   `toml:"vsync"`

	// Fixed simulation step in seconds. Zero updates once per frame with
	// the measured frame time.
	TimeStep float64 `toml:"time_step"`
	// Upper bound of fixed steps run in a single frame; the backlog beyond
	// it is dropped.
	MaxStepsPerFrame int `toml:"max_steps_per_frame"`

	LogLevel      string `toml:"log_level"`
	Assertions    bool   `toml:"assertions"`
	DisableUnbind bool   `toml:"disable_unbind"`

	// Directory indexed by the asset manager. Empty disables it.
	AssetDir         string      `toml:"asset_dir"`
	SchedulerThreads int         `toml:"scheduler_threads"`
	Audio            AudioConfig `toml:"audio"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	audioDefaults := systems.DefaultAudioManagerConfig()
	beepDefaults := audio.DefaultBeepConfig()
	return &ApplicationConfig{
		Name:             "Ember",
		StartPosX:        100,
		StartPosY:        100,
		StartWidth:       1280,
		StartHeight:      720,
		CanvasID:         "ember",
		VSync:            true,
		TimeStep:         1.0 / 60.0,
		MaxStepsPerFrame: 5,
		LogLevel:         "info",
		Assertions:       true,
		AssetDir:         "assets",
		SchedulerThreads: systems.DefaultThreadCount(),
		Audio: AudioConfig{
			Enabled:        true,
			MaxBufferCount: audioDefaults.MaxBufferCount,
			MaxSourceCount: audioDefaults.MaxSourceCount,
			SampleRate:     beepDefaults.SampleRate,
			LatencyMS:      int(beepDefaults.Latency.Milliseconds()),
		},
	}
}

// LoadApplicationConfig reads a TOML file on top of the defaults. Keys
// missing from the file keep their default value.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config '%s': %w", path, err)
	}
	config := DefaultApplicationConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.StartWidth <= 0 || c.StartHeight <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.StartWidth, c.StartHeight)
	}
	if c.TimeStep < 0 {
		return fmt.Errorf("%w: negative time step %f", ErrInvalidConfig, c.TimeStep)
	}
	if c.TimeStep > 0 && c.MaxStepsPerFrame <= 0 {
		return fmt.Errorf("%w: max_steps_per_frame must be positive", ErrInvalidConfig)
	}
	if c.SchedulerThreads < 0 {
		return fmt.Errorf("%w: negative scheduler thread count", ErrInvalidConfig)
	}
	if c.Audio.Enabled && (c.Audio.MaxBufferCount <= 0 || c.Audio.MaxSourceCount <= 0) {
		return fmt.Errorf("%w: audio pools must not be empty", ErrInvalidConfig)
	}
	if _, err := core.ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *ApplicationConfig) windowConfig() platform.WindowConfig {
	return platform.WindowConfig{
		Title:    c.Name,
		X:        c.StartPosX,
		Y:        c.StartPosY,
		Width:    c.StartWidth,
		Height:   c.StartHeight,
		CanvasID: c.CanvasID,
		VSync:    c.VSync,
	}
}

func (c *ApplicationConfig) systemsConfig() systems.SystemManagerConfig {
	return systems.SystemManagerConfig{
		Audio: systems.AudioManagerConfig{
			MaxBufferCount: c.Audio.MaxBufferCount,
			MaxSourceCount: c.Audio.MaxSourceCount,
		},
		SchedulerThreads: c.SchedulerThreads,
	}
}
