// Package sound plays the end-of-countdown sound.
package sound

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/gen2brain/beeep"
)

// Player decodes the configured sound file once and plays it through the
// speaker. Any failure falls back to the system alert tone, and a failing
// alert tone is only logged.
type Player struct {
	logger *slog.Logger

	mu      sync.Mutex
	file    string
	enabled bool
	buffer  *beep.Buffer
	loaded  string // file the buffer was decoded from

	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error

	pending sync.WaitGroup

	// Swappable for tests.
	initSpeaker func(beep.SampleRate, int) error
	play        func(beep.Streamer)
	alert       func() error
}

// New creates a Player for file. An empty file uses the alert tone.
func New(file string, enabled bool, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		logger:      logger,
		file:        file,
		enabled:     enabled,
		initSpeaker: speaker.Init,
		play:        func(s beep.Streamer) { speaker.Play(s) },
		alert:       func() error { return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration) },
	}
}

// Configure swaps the sound file and enable flag, e.g. after a config reload.
func (p *Player) Configure(file string, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if file != p.file {
		p.buffer = nil
		p.loaded = ""
	}
	p.file = file
	p.enabled = enabled
}

// PlayEndSound plays the sound at volume in [0,1]. Volume 0 is muted.
// Decoding and playback run on their own goroutine so the caller, the
// timer's tick, never waits on disk or the audio device.
func (p *Player) PlayEndSound(volume float64) {
	p.mu.Lock()
	enabled, file := p.enabled, p.file
	p.mu.Unlock()

	if !enabled || volume <= 0 {
		return
	}

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.playFile(file, volume)
	}()
}

// Wait blocks until every sound started by PlayEndSound has been queued
// on the speaker or has fallen back to the alert tone.
func (p *Player) Wait() {
	p.pending.Wait()
}

func (p *Player) playFile(file string, volume float64) {
	if file == "" {
		p.fallback(nil)
		return
	}

	buf, err := p.load(file)
	if err == nil {
		err = p.ensureSpeaker(buf.Format().SampleRate)
	}
	if err != nil {
		p.fallback(err)
		return
	}

	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if rate := p.speakerRate; rate != buf.Format().SampleRate {
		s = beep.Resample(4, buf.Format().SampleRate, rate, s)
	}
	p.play(volumeStreamer(s, volume))
	p.logger.Debug("end sound queued", "file", file, "volume", volume)
}

// volumeStreamer scales s so that volume 1 is unchanged and 0.5 is half
// amplitude.
func volumeStreamer(s beep.Streamer, volume float64) *effects.Volume {
	v := math.Min(volume, 1)
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   math.Log2(v),
		Silent:   v <= 0,
	}
}

func (p *Player) load(file string) (*beep.Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buffer != nil && p.loaded == file {
		return p.buffer, nil
	}

	buf, err := decodeFile(file)
	if err != nil {
		return nil, err
	}
	p.buffer = buf
	p.loaded = file
	return buf, nil
}

func (p *Player) ensureSpeaker(rate beep.SampleRate) error {
	p.speakerOnce.Do(func() {
		p.speakerRate = rate
		p.speakerErr = p.initSpeaker(rate, rate.N(time.Second/10))
		if p.speakerErr != nil {
			p.speakerErr = fmt.Errorf("init speaker: %w", p.speakerErr)
		}
	})
	return p.speakerErr
}

func (p *Player) fallback(cause error) {
	if cause != nil {
		p.logger.Warn("end sound failed, using alert tone", "error", cause)
	}
	if err := p.alert(); err != nil {
		p.logger.Error("alert tone failed", "error", err)
	}
}

// decodeFile reads an .mp3 or .wav file fully into memory.
func decodeFile(path string) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sound: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		_ = f.Close()
		return nil, fmt.Errorf("unsupported sound format %q", ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer func() { _ = streamer.Close() }()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return buf, nil
}
