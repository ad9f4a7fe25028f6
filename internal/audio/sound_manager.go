// Package audio plays short synthesized cues through the system speaker.
// Audio is optional: when the speaker cannot be opened the game runs silent.
package audio

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/j-jorge/bim-sub001/internal/ui"
)

const sampleRate = beep.SampleRate(44100)

// SoundManager manages all game audio
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	volume      float64
}

// NewSoundManager creates a new sound manager. volume is in 0..1.
func NewSoundManager(volume float64) *SoundManager {
	return &SoundManager{
		mixer:  &beep.Mixer{},
		volume: volume,
	}
}

// Initialize sets up the audio system
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Cleanup stops all sounds
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	sm.initialized = false
}

// Play plays the sound of a cue. Does nothing without audio.
func (sm *SoundManager) Play(c ui.Cue) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	s := Sound(c, sampleRate)
	if s == nil {
		return
	}
	speaker.Lock()
	sm.mixer.Add(withVolume(s, sm.volume))
	speaker.Unlock()
}

// Sound returns a finite streamer for the cue, or nil for an unknown cue.
func Sound(c ui.Cue, rate beep.SampleRate) beep.Streamer {
	switch c {
	case ui.CueExplosion:
		return beep.Take(rate.N(300*time.Millisecond), noise(rate.N(300*time.Millisecond)))
	case ui.CuePowerUp:
		return beep.Seq(tone(rate, 660, 60*time.Millisecond), tone(rate, 990, 90*time.Millisecond))
	case ui.CueDeath:
		return beep.Seq(tone(rate, 330, 120*time.Millisecond), tone(rate, 220, 200*time.Millisecond))
	case ui.CueVictory:
		return beep.Seq(
			tone(rate, 523, 120*time.Millisecond),
			tone(rate, 659, 120*time.Millisecond),
			tone(rate, 784, 250*time.Millisecond),
		)
	case ui.CueDefeat:
		return beep.Seq(tone(rate, 392, 150*time.Millisecond), tone(rate, 262, 300*time.Millisecond))
	case ui.CueDraw:
		return tone(rate, 440, 250*time.Millisecond)
	}
	return nil
}

func tone(rate beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	sine, err := generators.SineTone(rate, freq)
	if err != nil {
		return beep.Take(rate.N(d), silence())
	}
	return beep.Take(rate.N(d), sine)
}

func silence() beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		clear(samples)
		return len(samples), true
	})
}

// noise - белый шум с линейным затуханием.
func noise(total int) beep.Streamer {
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n := 0
		for i := range samples {
			if pos >= total {
				break
			}
			v := (rand.Float64()*2 - 1) * float64(total-pos) / float64(total)
			samples[i][0], samples[i][1] = v, v
			pos++
			n++
		}
		return n, true
	})
}

// withVolume handles 0 volume by making the stream silent, math.Log2(0) is -Inf
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}
