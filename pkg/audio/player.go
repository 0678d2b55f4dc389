// Package audio plays the scan acknowledgement sound.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/teslashibe/fruit-shop/internal/log"
)

// Cue is a fire-and-forget sound.
type Cue interface {
	Play()
}

// Nop is a Cue that does nothing.
type Nop struct{}

// Play does nothing.
func (Nop) Play() {}

// Config selects how the cue is played.
type Config struct {
	// Command plays the sound. With SoundFile empty it receives raw PCM16
	// mono at SampleRate on stdin; otherwise the file path is its last argument.
	Command string
	Args    []string

	// SoundFile is an optional audio file (e.g. beep.wav).
	SoundFile string

	SampleRate int
	Frequency  float64       // Hz, synthesized beep only
	Duration   time.Duration // synthesized beep only

	// Timeout kills a player that hangs.
	Timeout time.Duration
}

// DefaultConfig pipes a short 880 Hz beep into aplay.
func DefaultConfig() Config {
	return Config{
		Command:    "aplay",
		SampleRate: 24000,
		Frequency:  880,
		Duration:   120 * time.Millisecond,
		Timeout:    5 * time.Second,
	}
}

// Player runs an external command per cue.
type Player struct {
	config Config
	pcm    []byte

	// run is swapped in tests.
	run func(ctx context.Context, name string, args []string, stdin []byte) error

	mu      sync.Mutex
	playing bool
	wg      sync.WaitGroup

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()
}

// NewPlayer checks that the player command and sound file exist.
func NewPlayer(cfg Config) (*Player, error) {
	def := DefaultConfig()
	if cfg.Command == "" {
		cfg.Command = def.Command
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Frequency <= 0 {
		cfg.Frequency = def.Frequency
	}
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	if _, err := exec.LookPath(cfg.Command); err != nil {
		return nil, fmt.Errorf("audio player %q: %w", cfg.Command, err)
	}
	if cfg.SoundFile != "" {
		if _, err := os.Stat(cfg.SoundFile); err != nil {
			return nil, fmt.Errorf("sound file: %w", err)
		}
	}

	p := &Player{config: cfg, run: runCommand}
	if cfg.SoundFile == "" {
		p.pcm = ConvertInt16ToPCM16(Beep(cfg.Frequency, cfg.Duration, cfg.SampleRate))
	}
	return p, nil
}

// NewCue returns a Player, or Nop with a warning when no player is available.
func NewCue(cfg Config) Cue {
	p, err := NewPlayer(cfg)
	if err != nil {
		log.Warn("scan sound disabled", "error", err)
		return Nop{}
	}
	return p
}

// Play starts the cue in the background. A cue that is still playing is not
// overlapped.
func (p *Player) Play() {
	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			p.playing = false
			p.mu.Unlock()
			if p.OnPlaybackEnd != nil {
				p.OnPlaybackEnd()
			}
		}()

		if p.OnPlaybackStart != nil {
			p.OnPlaybackStart()
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
		defer cancel()

		name, args, stdin := p.command()
		if err := p.run(ctx, name, args, stdin); err != nil {
			log.Warn("scan sound failed", "command", name, "error", err)
		}
	}()
}

// Wait blocks until in-flight cues finish.
func (p *Player) Wait() {
	p.wg.Wait()
}

// IsPlaying returns whether a cue is currently playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *Player) command() (string, []string, []byte) {
	args := append([]string(nil), p.config.Args...)
	if p.config.SoundFile != "" {
		return p.config.Command, append(args, p.config.SoundFile), nil
	}
	if len(args) == 0 && p.config.Command == "aplay" {
		args = []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", fmt.Sprint(p.config.SampleRate)}
	}
	return p.config.Command, args, p.pcm
}

func runCommand(ctx context.Context, name string, args []string, stdin []byte) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return err
	}
	return nil
}
