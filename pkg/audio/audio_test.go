package audio

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestBeep(t *testing.T) {
	samples := Beep(880, 100*time.Millisecond, 24000)
	if len(samples) != 2400 {
		t.Fatalf("len: got %d, want 2400", len(samples))
	}
	if samples[0] != 0 || samples[len(samples)-1] != 0 {
		t.Errorf("fades should start and end at zero: %d, %d", samples[0], samples[len(samples)-1])
	}

	peak := int16(0)
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	if peak < 10000 || peak > 14000 {
		t.Errorf("peak: got %d, want ~13107", peak)
	}

	if Beep(880, 0, 24000) != nil {
		t.Error("zero duration should produce no samples")
	}
}

func TestPCMRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	out := ConvertPCM16ToInt16(ConvertInt16ToPCM16(in))
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func fakePlayer(cfg Config, run func(context.Context, string, []string, []byte) error) *Player {
	p := &Player{config: cfg, run: run}
	if cfg.SoundFile == "" {
		p.pcm = ConvertInt16ToPCM16(Beep(cfg.Frequency, cfg.Duration, cfg.SampleRate))
	}
	return p
}

func TestPlayer_Beep(t *testing.T) {
	var (
		mu    sync.Mutex
		name  string
		args  []string
		bytes int
	)
	p := fakePlayer(DefaultConfig(), func(ctx context.Context, n string, a []string, stdin []byte) error {
		mu.Lock()
		name, args, bytes = n, a, len(stdin)
		mu.Unlock()
		return nil
	})

	p.Play()
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	if name != "aplay" {
		t.Errorf("command: got %q", name)
	}
	if len(args) == 0 || args[len(args)-1] != "24000" {
		t.Errorf("args: got %v", args)
	}
	if bytes != 2880*2 {
		t.Errorf("stdin bytes: got %d, want %d", bytes, 2880*2)
	}
}

func TestPlayer_SoundFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = "paplay"
	cfg.SoundFile = "/tmp/beep.wav"

	var got []string
	var stdin []byte
	p := fakePlayer(cfg, func(ctx context.Context, n string, a []string, in []byte) error {
		got, stdin = a, in
		return nil
	})
	p.Play()
	p.Wait()

	if len(got) != 1 || got[0] != "/tmp/beep.wav" {
		t.Errorf("args: got %v", got)
	}
	if stdin != nil {
		t.Error("sound file playback should not pipe stdin")
	}
}

func TestPlayer_NoOverlap(t *testing.T) {
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	p := fakePlayer(DefaultConfig(), func(ctx context.Context, n string, a []string, in []byte) error {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return nil
	})

	started := make(chan struct{}, 1)
	p.OnPlaybackStart = func() { started <- struct{}{} }

	p.Play()
	<-started
	p.Play() // dropped while the first cue plays
	if !p.IsPlaying() {
		t.Error("IsPlaying: got false during playback")
	}
	close(release)
	p.Wait()

	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying: got true after playback")
	}
}

func TestPlayer_ErrorIsSwallowed(t *testing.T) {
	ended := false
	p := fakePlayer(DefaultConfig(), func(context.Context, string, []string, []byte) error {
		return errors.New("no sound card")
	})
	p.OnPlaybackEnd = func() { ended = true }
	p.Play()
	p.Wait()
	if !ended {
		t.Error("OnPlaybackEnd not called after failure")
	}
}

func TestNewPlayer_Validation(t *testing.T) {
	if _, err := NewPlayer(Config{Command: "definitely-not-a-player-binary"}); err == nil {
		t.Error("missing command: expected error")
	}

	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not on PATH")
	}
	if _, err := NewPlayer(Config{Command: "true", SoundFile: filepath.Join(t.TempDir(), "missing.wav")}); err == nil {
		t.Error("missing sound file: expected error")
	}
	p, err := NewPlayer(Config{Command: "true"})
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	if len(p.pcm) == 0 {
		t.Error("synthesized beep missing")
	}
	p.Play()
	p.Wait()
}

func TestNewCue_FallsBackToNop(t *testing.T) {
	if _, ok := NewCue(Config{Command: "definitely-not-a-player-binary"}).(Nop); !ok {
		t.Error("NewCue should fall back to Nop")
	}
}
