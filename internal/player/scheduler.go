// ABOUTME: Gap-free playback scheduler on the output device's sample clock
// ABOUTME: Stitches arbitrarily-timed PCM chunks into a contiguous timeline
package player

import (
	"io"
	"sync"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/audio"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultLeadIn is the scheduling delay applied after a stall so a new
	// segment never starts in the past.
	DefaultLeadIn = 50 * time.Millisecond

	// DefaultFade is the gain ramp length of BeginFadeStop.
	DefaultFade = 500 * time.Millisecond

	// volumeRampFrames spreads a volume change over a few milliseconds of
	// the sample clock so it lands without an audible step.
	volumeRampFrames = 240

	// visualizationInterval approximates a display refresh tick.
	visualizationInterval = 16 * time.Millisecond
)

// segment is one decoded chunk placed on the output clock. Segments never
// overlap: each new one starts where the previous ends, except after a
// stall, where it starts a lead-in ahead of the clock.
type segment struct {
	left, right []float32
	start, end  int64 // frame positions on the output clock
}

// gainPoint is one vertex of the piecewise-linear gain automation, placed
// on the frame clock like segments are.
type gainPoint struct {
	at    int64
	value float64
}

// Stats counts scheduler activity for diagnostics.
type Stats struct {
	ChunksAccepted  int64
	ChunksDropped   int64 // submitted while a fade-stop was draining
	Stalls          int64
	SegmentsPruned  int64
	FramesScheduled int64
	FramesRendered  int64
	BytesTruncated  int64 // trailing partial-frame bytes discarded
}

// Snapshot is a diagnostic view of the scheduler.
type Snapshot struct {
	Initialized bool
	Clock       int64
	NextStart   int64
	Segments    int
	Gain        float64
	Accepting   bool
	Stats       Stats
}

// Config configures a Scheduler.
type Config struct {
	// LeadIn overrides DefaultLeadIn.
	LeadIn time.Duration
}

// Scheduler owns the audio output graph. The device pulls rendered frames
// through Read; everything is scheduled in frames on that pull clock, which
// drifts freely from wall time and freezes while the device is suspended.
type Scheduler struct {
	mu        sync.Mutex
	newDevice DeviceFactory
	device    Device
	analyzer  analyzer

	initialized bool
	released    bool

	clock     int64 // frames handed to the device so far
	nextStart int64
	leadIn    int64
	segments  []*segment
	accepting bool

	gain      []gainPoint
	fadeTimer *time.Timer

	visCB   func(freq, wave []byte)
	visStop chan struct{}

	// render scratch, reused across Read calls
	scratchL, scratchR, scratchMono []float32

	stats Stats
}

// New creates a scheduler. The output device is not opened until
// Initialize.
func New(cfg Config) *Scheduler {
	leadIn := cfg.LeadIn
	if leadIn <= 0 {
		leadIn = DefaultLeadIn
	}

	return &Scheduler{
		newDevice: newOtoDevice,
		leadIn:    audio.DurationToFrames(leadIn),
		accepting: true,
		gain:      []gainPoint{{at: 0, value: 1.0}},
	}
}

// Initialize lazily opens the output device and starts it pulling.
// Idempotent: a second call is a no-op. Callable before any network
// activity completes.
func (s *Scheduler) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized || s.released {
		return nil
	}

	device, err := s.newDevice(readerFunc(s.render))
	if err != nil {
		return err
	}
	s.device = device
	s.initialized = true
	device.Play()

	log.Info().Int("sample_rate", audio.SampleRate).Int("channels", audio.Channels).
		Msg("audio output initialized")
	return nil
}

// Resume unblocks the output device. Must complete before the first play
// transport command, or nothing is audible.
func (s *Scheduler) Resume() error {
	if err := s.Initialize(); err != nil {
		return err
	}

	s.mu.Lock()
	device := s.device
	s.mu.Unlock()
	if device == nil {
		return nil
	}
	return device.Resume()
}

// Suspend pauses the output device. The sample clock freezes with it;
// scheduled segments stay pending and resume exactly where they left off.
func (s *Scheduler) Suspend() error {
	s.mu.Lock()
	device := s.device
	s.mu.Unlock()
	if device == nil {
		return nil
	}
	return device.Suspend()
}

// SubmitChunk converts interleaved PCM16 bytes to per-channel samples and
// places them on the timeline. This is the hot path: bookkeeping is pruned
// on every call so tracked state stays bounded over a long session.
// Chunks submitted while a fade-stop is draining are dropped silently.
func (s *Scheduler) SubmitChunk(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released || !s.accepting {
		s.stats.ChunksDropped++
		return nil
	}

	left, right, dropped, err := audio.DecodePCM16(pcm)
	if err != nil {
		return err
	}
	if dropped > 0 {
		s.stats.BytesTruncated += int64(dropped)
		log.Debug().Int("bytes", dropped).Msg("truncated partial frame in chunk")
	}

	frames := int64(len(left))
	start := s.nextStart
	if start <= s.clock {
		// Stream stalled: schedule a lead-in ahead of the clock instead of
		// in the past, which would drop samples or leave a seam.
		start = s.clock + s.leadIn
		s.stats.Stalls++
	}

	s.segments = append(s.segments, &segment{
		left:  left,
		right: right,
		start: start,
		end:   start + frames,
	})
	s.nextStart = start + frames
	s.stats.ChunksAccepted++
	s.stats.FramesScheduled += frames

	s.prune(s.clock)
	return nil
}

// prune drops every tracked segment whose end has passed now. Holds the
// scheduler lock.
func (s *Scheduler) prune(now int64) {
	kept := s.segments[:0]
	for _, seg := range s.segments {
		if seg.end > now {
			kept = append(kept, seg)
		} else {
			s.stats.SegmentsPruned++
		}
	}
	// Clear the tail so dropped segments release their sample buffers.
	for i := len(kept); i < len(s.segments); i++ {
		s.segments[i] = nil
	}
	s.segments = kept
}

// SetVolume clamps v to [0,1] and applies it at the current position of the
// output clock, spread over a short ramp to avoid an audible step.
func (s *Scheduler) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.gainAt(s.clock)
	s.truncateGainAfter(s.clock)
	s.gain = append(s.gain,
		gainPoint{at: s.clock, value: current},
		gainPoint{at: s.clock + volumeRampFrames, value: v},
	)
}

// BeginFadeStop stops accepting chunks immediately and ramps gain to zero
// over fade on the output clock, so the ramp is sample-accurate regardless
// of caller jitter. After the fade a wall-clock timer tears the timeline
// down: segments released, next start reset, gain restored to 1.0. A fade
// already in progress is superseded.
func (s *Scheduler) BeginFadeStop(fade time.Duration) {
	if fade <= 0 {
		fade = DefaultFade
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}

	s.accepting = false
	if s.fadeTimer != nil {
		s.fadeTimer.Stop()
		s.fadeTimer = nil
	}

	current := s.gainAt(s.clock)
	s.truncateGainAfter(s.clock)
	s.gain = append(s.gain,
		gainPoint{at: s.clock, value: current},
		gainPoint{at: s.clock + audio.DurationToFrames(fade), value: 0},
	)

	s.fadeTimer = time.AfterFunc(fade, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.teardown()
	})
}

// HardStop is the non-graceful reset: the post-fade end state with no ramp.
func (s *Scheduler) HardStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fadeTimer != nil {
		s.fadeTimer.Stop()
		s.fadeTimer = nil
	}
	s.teardown()
}

// teardown force-releases every tracked segment and resets the timeline for
// the next playback. Holds the scheduler lock.
func (s *Scheduler) teardown() {
	s.stats.SegmentsPruned += int64(len(s.segments))
	s.segments = nil
	s.nextStart = 0
	s.gain = []gainPoint{{at: s.clock, value: 1.0}}
	s.accepting = true
	s.fadeTimer = nil
}

// FrequencySnapshot returns the smoothed log-magnitude frequency bins as a
// fixed-size byte array, or an empty slice before Initialize. Cheap and
// safe to call every visual frame.
func (s *Scheduler) FrequencySnapshot() []byte {
	s.mu.Lock()
	ok := s.initialized
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.analyzer.frequencySnapshot()
}

// WaveformSnapshot returns the recent time-domain magnitudes as a
// fixed-size byte array, or an empty slice before Initialize.
func (s *Scheduler) WaveformSnapshot() []byte {
	s.mu.Lock()
	ok := s.initialized
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.analyzer.waveformSnapshot()
}

// StartVisualizationLoop invokes cb with both snapshots at roughly display
// refresh rate until StopVisualizationLoop. A previous loop is replaced.
func (s *Scheduler) StartVisualizationLoop(cb func(freq, wave []byte)) {
	s.mu.Lock()
	if s.visStop != nil {
		close(s.visStop)
	}
	stop := make(chan struct{})
	s.visStop = stop
	s.visCB = cb
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(visualizationInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				cb := s.visCB
				s.mu.Unlock()
				if cb == nil {
					return
				}
				cb(s.FrequencySnapshot(), s.WaveformSnapshot())
			}
		}
	}()
}

// StopVisualizationLoop cancels the loop and clears the callback reference
// so a racing final tick cannot invoke it.
func (s *Scheduler) StopVisualizationLoop() {
	s.mu.Lock()
	if s.visStop != nil {
		close(s.visStop)
		s.visStop = nil
	}
	s.visCB = nil
	s.mu.Unlock()
}

// State returns a diagnostic snapshot.
func (s *Scheduler) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Initialized: s.initialized,
		Clock:       s.clock,
		NextStart:   s.nextStart,
		Segments:    len(s.segments),
		Gain:        s.gainAt(s.clock),
		Accepting:   s.accepting,
		Stats:       s.stats,
	}
}

// Stats returns a snapshot of the activity counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Shutdown releases everything: visualization loop, fade timer, device.
// Idempotent; a device that is already gone counts as released.
func (s *Scheduler) Shutdown() {
	s.StopVisualizationLoop()

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.initialized = false
	if s.fadeTimer != nil {
		s.fadeTimer.Stop()
		s.fadeTimer = nil
	}
	device := s.device
	s.device = nil
	s.segments = nil
	s.mu.Unlock()

	if device != nil {
		if err := device.Close(); err != nil {
			log.Debug().Err(err).Msg("device close reported an error, ignoring")
		}
	}
}

// render fills p with the next interleaved PCM16 frames of the timeline and
// advances the clock by exactly the frames it hands out. Gaps between
// segments render as silence. Called by the output device's pull loop.
func (s *Scheduler) render(p []byte) (int, error) {
	frames := len(p) / audio.BytesPerFrame
	if frames == 0 {
		return 0, nil
	}

	s.mu.Lock()
	s.growScratch(frames)
	left, right, mono := s.scratchL[:frames], s.scratchR[:frames], s.scratchMono[:frames]
	for i := range left {
		left[i], right[i], mono[i] = 0, 0, 0
	}

	windowEnd := s.clock + int64(frames)
	for _, seg := range s.segments {
		if seg.end <= s.clock || seg.start >= windowEnd {
			continue
		}
		from, to := seg.start, seg.end
		if from < s.clock {
			from = s.clock
		}
		if to > windowEnd {
			to = windowEnd
		}
		for f := from; f < to; f++ {
			left[f-s.clock] = seg.left[f-seg.start]
			right[f-s.clock] = seg.right[f-seg.start]
		}
	}

	for i := 0; i < frames; i++ {
		g := float32(s.gainAt(s.clock + int64(i)))
		left[i] *= g
		right[i] *= g
		mono[i] = (left[i] + right[i]) / 2
	}

	s.clock = windowEnd
	s.stats.FramesRendered += int64(frames)
	s.compactGain()
	s.mu.Unlock()

	n := audio.EncodePCM16Into(p, left, right)
	s.analyzer.push(mono)
	return n, nil
}

// gainAt evaluates the gain automation at a frame position. Holds the
// scheduler lock.
func (s *Scheduler) gainAt(frame int64) float64 {
	points := s.gain
	if len(points) == 0 {
		return 1.0
	}
	if frame <= points[0].at {
		return points[0].value
	}
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		if frame < b.at {
			span := float64(b.at - a.at)
			if span <= 0 {
				return b.value
			}
			t := float64(frame-a.at) / span
			return a.value + (b.value-a.value)*t
		}
	}
	return points[len(points)-1].value
}

// truncateGainAfter removes automation points scheduled past frame,
// cancelling any pending ramps. Holds the scheduler lock.
func (s *Scheduler) truncateGainAfter(frame int64) {
	kept := s.gain[:0]
	for _, p := range s.gain {
		if p.at <= frame {
			kept = append(kept, p)
		}
	}
	s.gain = kept
}

// compactGain drops automation points the clock has fully passed, keeping
// the most recent one as the current baseline. Holds the scheduler lock.
func (s *Scheduler) compactGain() {
	last := 0
	for i, p := range s.gain {
		if p.at <= s.clock {
			last = i
		}
	}
	if last > 0 {
		s.gain = append(s.gain[:0], s.gain[last:]...)
	}
}

func (s *Scheduler) growScratch(frames int) {
	if cap(s.scratchL) < frames {
		s.scratchL = make([]float32, frames)
		s.scratchR = make([]float32, frames)
		s.scratchMono = make([]float32, frames)
	}
}

// readerFunc adapts the render method to io.Reader for the device.
type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

var _ io.Reader = readerFunc(nil)
