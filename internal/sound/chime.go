// Package sound plays the completion chime.
package sound

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

// ErrNotInitialized indicates Play was called before Initialize.
var ErrNotInitialized = errors.New("sound not initialized")

const (
	sampleRate = beep.SampleRate(44100)

	// Volume is a base-2 exponent; the useful range keeps the chime audible
	// without clipping.
	MinVolume = -8
	MaxVolume = 2

	noteLength = 180 * time.Millisecond
	noteGap    = 60 * time.Millisecond
)

// chimeNotes is a rising major arpeggio (C6, E6, G6).
var chimeNotes = []float64{1046.5, 1318.5, 1568.0}

// Config configures a Chime.
type Config struct {
	Enabled bool
	Volume  float64
}

// Chime plays a short tone sequence on the default audio device.
type Chime struct {
	config Config

	mu          sync.Mutex
	initialized bool
}

// New creates a Chime. Volume is clamped to [MinVolume, MaxVolume].
func New(config Config) *Chime {
	return &Chime{config: clamp(config)}
}

// Update replaces the configuration. A newly enabled chime still needs
// Initialize before it can play.
func (chime *Chime) Update(config Config) {
	chime.mu.Lock()
	defer chime.mu.Unlock()
	chime.config = clamp(config)
}

func clamp(config Config) Config {
	if config.Volume < MinVolume {
		config.Volume = MinVolume
	}
	if config.Volume > MaxVolume {
		config.Volume = MaxVolume
	}
	return config
}

// Initialize opens the audio device. It is a no-op when the chime is
// disabled or already initialized.
func (chime *Chime) Initialize() error {
	chime.mu.Lock()
	defer chime.mu.Unlock()

	if chime.initialized || !chime.config.Enabled {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	chime.initialized = true
	return nil
}

// Play queues the chime and returns without waiting for it to finish.
func (chime *Chime) Play() error {
	chime.mu.Lock()
	defer chime.mu.Unlock()

	if !chime.config.Enabled {
		return nil
	}
	if !chime.initialized {
		return ErrNotInitialized
	}

	streamer, err := chime.streamer()
	if err != nil {
		return err
	}
	speaker.Play(streamer)
	return nil
}

// Close stops any queued sound.
func (chime *Chime) Close() {
	chime.mu.Lock()
	defer chime.mu.Unlock()

	if !chime.initialized {
		return
	}
	speaker.Clear()
	chime.initialized = false
}

func (chime *Chime) streamer() (beep.Streamer, error) {
	return newChimeStreamer(sampleRate, chime.config.Volume)
}

func newChimeStreamer(rate beep.SampleRate, volume float64) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(chimeNotes)*2)
	for _, freq := range chimeNotes {
		tone, err := generators.SineTone(rate, freq)
		if err != nil {
			return nil, fmt.Errorf("sine tone %.1fHz: %w", freq, err)
		}
		parts = append(parts,
			beep.Take(rate.N(noteLength), tone),
			beep.Silence(rate.N(noteGap)),
		)
	}
	return &effects.Volume{
		Streamer: beep.Seq(parts...),
		Base:     2,
		Volume:   volume,
	}, nil
}
