// ABOUTME: Config-driven additive synth for the simulated service
// ABOUTME: BPM-locked arpeggio; density, brightness, and mutes shape voices
package sim

import (
	"math"

	"github.com/MuseLink-Live/muselink-go/internal/audio"
	"github.com/MuseLink-Live/muselink-go/internal/protocol"
)

// scaleRoots maps a scale token to the semitone of its major root above A.
var scaleRoots = map[string]int{
	protocol.ScaleCMajorAMinor: 3,
	protocol.ScaleDbMajorBbMin: 4,
	protocol.ScaleDMajorBMinor: 5,
	protocol.ScaleEbMajorCMin:  6,
	protocol.ScaleEMajorDbMin:  7,
	protocol.ScaleFMajorDMinor: 8,
	protocol.ScaleGbMajorEbMin: 9,
	protocol.ScaleGMajorEMinor: 10,
	protocol.ScaleAbMajorFMin:  11,
	protocol.ScaleAMajorGbMin:  0,
	protocol.ScaleBbMajorGMin:  1,
	protocol.ScaleBMajorAbMin:  2,
}

// majorDegrees are the scale degrees the arpeggio walks, in semitones.
var majorDegrees = []int{0, 2, 4, 7, 9, 12, 9, 7}

// synth produces deterministic audio from the current generation config.
// It is not a model; it exists so the console and tests have a live service
// to talk to. The tempo/scale context quirk is reproduced faithfully:
// bpm and scale changes sit in pendingCfg until a context reset.
type synth struct {
	cfg        protocol.MusicGenerationConfig
	pendingCfg protocol.MusicGenerationConfig

	frame     int64
	noiseSeed uint32
}

func newSynth() *synth {
	base := protocol.MusicGenerationConfig{
		BPM:        120,
		Density:    0.5,
		Brightness: 0.5,
		Scale:      protocol.ScaleCMajorAMinor,
	}
	return &synth{cfg: base, pendingCfg: base, noiseSeed: 1}
}

// apply takes a full config update. Tempo and scale only become audible
// after resetContext, matching the real service's documented quirk.
func (s *synth) apply(cfg protocol.MusicGenerationConfig) {
	s.pendingCfg = cfg

	live := cfg
	live.BPM = s.cfg.BPM
	live.Scale = s.cfg.Scale
	s.cfg = live
}

// resetContext discards accumulated state and adopts the pending tempo and
// scale.
func (s *synth) resetContext() {
	s.cfg = s.pendingCfg
	s.frame = 0
}

// render produces frames of interleaved PCM16.
func (s *synth) render(frames int) []byte {
	left := make([]float32, frames)
	right := make([]float32, frames)

	bpm := s.cfg.BPM
	if bpm <= 0 {
		bpm = 120
	}
	stepFrames := int64(audio.SampleRate * 60 / (bpm * 4)) // 16th notes
	if stepFrames <= 0 {
		stepFrames = 1
	}

	root := 110.0 * math.Pow(2, float64(scaleRoots[s.cfg.Scale])/12)
	voices := 1 + int(s.cfg.Density*3)
	harmonics := 1 + int(s.cfg.Brightness*6)

	for i := 0; i < frames; i++ {
		f := s.frame + int64(i)
		step := f / stepFrames
		stepPos := float64(f%stepFrames) / float64(stepFrames)
		env := float32(math.Exp(-4 * stepPos))

		var sample float32

		if !s.cfg.OnlyBassAndDrums {
			for v := 0; v < voices; v++ {
				degree := majorDegrees[(int(step)+v*2)%len(majorDegrees)]
				freq := root * math.Pow(2, float64(degree)/12) * float64(v%2+1)
				for h := 1; h <= harmonics; h++ {
					amp := 0.12 / float32(voices) / float32(h)
					sample += amp * env * float32(math.Sin(2*math.Pi*freq*float64(h)*float64(f)/audio.SampleRate))
				}
			}
		}

		if !s.cfg.MuteBass {
			bassFreq := root / 2
			sample += 0.2 * float32(math.Sin(2*math.Pi*bassFreq*float64(f)/audio.SampleRate))
		}

		if !s.cfg.MuteDrums && step%4 == 0 && stepPos < 0.1 {
			sample += 0.3 * env * s.noise()
		}

		if sample > 1 {
			sample = 1
		}
		if sample < -1 {
			sample = -1
		}
		left[i] = sample
		right[i] = sample
	}

	s.frame += int64(frames)
	return audio.EncodePCM16(left, right)
}

// noise is a tiny xorshift generator, deterministic per synth.
func (s *synth) noise() float32 {
	s.noiseSeed ^= s.noiseSeed << 13
	s.noiseSeed ^= s.noiseSeed >> 17
	s.noiseSeed ^= s.noiseSeed << 5
	return float32(s.noiseSeed%2000)/1000 - 1
}
