// ABOUTME: Tests for the sample-clock playback scheduler
// ABOUTME: Drives the render pull directly; no real audio device involved
package player

import (
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/MuseLink-Live/muselink-go/internal/audio"
)

type fakeDevice struct {
	playing   bool
	resumed   int
	suspended int
	closed    int
}

func (d *fakeDevice) Play()          { d.playing = true }
func (d *fakeDevice) Resume() error  { d.resumed++; return nil }
func (d *fakeDevice) Suspend() error { d.suspended++; return nil }
func (d *fakeDevice) Close() error   { d.closed++; return nil }

func newTestScheduler() (*Scheduler, *fakeDevice) {
	s := New(Config{})
	device := &fakeDevice{}
	s.newDevice = func(r io.Reader) (Device, error) { return device, nil }
	return s, device
}

// chunk builds n frames of constant-valued interleaved PCM16.
func chunk(n int, value int16) []byte {
	out := make([]byte, n*audio.BytesPerFrame)
	for i := 0; i < n*audio.Channels; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(value))
	}
	return out
}

// renderFrames advances the output clock by pulling n frames.
func renderFrames(t *testing.T, s *Scheduler, n int) []byte {
	t.Helper()
	buf := make([]byte, n*audio.BytesPerFrame)
	if _, err := s.render(buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return buf
}

func segmentsOf(s *Scheduler) []*segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*segment, len(s.segments))
	copy(out, s.segments)
	return out
}

func TestContiguousScheduling(t *testing.T) {
	s, _ := newTestScheduler()

	// Three chunks with no clock advancement in between.
	for i := 0; i < 3; i++ {
		if err := s.SubmitChunk(chunk(480, 1000)); err != nil {
			t.Fatalf("SubmitChunk %d failed: %v", i, err)
		}
	}

	segs := segmentsOf(s)
	if len(segs) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs))
	}
	for i := 0; i < len(segs)-1; i++ {
		if segs[i+1].start != segs[i].end {
			t.Errorf("segment %d start = %d, want %d (contiguous)", i+1, segs[i+1].start, segs[i].end)
		}
	}
}

func TestStallReschedulesWithLeadIn(t *testing.T) {
	s, _ := newTestScheduler()
	leadIn := audio.DurationToFrames(DefaultLeadIn)

	if err := s.SubmitChunk(chunk(480, 1000)); err != nil {
		t.Fatalf("SubmitChunk failed: %v", err)
	}

	// Pull well past the end of the scheduled audio to stall the stream.
	renderFrames(t, s, int(leadIn)+2000)
	now := s.State().Clock

	if err := s.SubmitChunk(chunk(480, 1000)); err != nil {
		t.Fatalf("SubmitChunk after stall failed: %v", err)
	}

	segs := segmentsOf(s)
	last := segs[len(segs)-1]
	if last.start < now+leadIn {
		t.Errorf("post-stall start = %d, want >= now+leadIn = %d", last.start, now+leadIn)
	}
	if last.start <= now {
		t.Errorf("post-stall start = %d, not strictly ahead of now = %d", last.start, now)
	}
	if got := s.Stats().Stalls; got != 2 { // first chunk also starts from a cold clock
		t.Errorf("stalls = %d, want 2", got)
	}
}

func TestPruneKeepsPendingSegments(t *testing.T) {
	s, _ := newTestScheduler()

	s.SubmitChunk(chunk(480, 1))
	s.SubmitChunk(chunk(480, 1))

	segs := segmentsOf(s)
	firstEnd := segs[0].end

	s.mu.Lock()
	s.prune(firstEnd - 1) // still ahead: nothing may be removed
	kept := len(s.segments)
	s.mu.Unlock()
	if kept != 2 {
		t.Errorf("segments after early prune = %d, want 2", kept)
	}

	s.mu.Lock()
	s.prune(firstEnd) // now has passed the first segment's end
	kept = len(s.segments)
	s.mu.Unlock()
	if kept != 1 {
		t.Errorf("segments after prune = %d, want 1", kept)
	}
	if got := s.Stats().SegmentsPruned; got != 1 {
		t.Errorf("pruned = %d, want 1", got)
	}
}

func TestSubmitPrunesEveryCall(t *testing.T) {
	s, _ := newTestScheduler()

	s.SubmitChunk(chunk(100, 1))
	renderFrames(t, s, int(audio.DurationToFrames(DefaultLeadIn))+200)

	// The next submit must clear the finished segment's bookkeeping.
	s.SubmitChunk(chunk(100, 1))
	if got := len(segmentsOf(s)); got != 1 {
		t.Errorf("segments = %d, want 1 (finished segment pruned on submit)", got)
	}
}

func TestFadeStopDrainsAndResets(t *testing.T) {
	s, _ := newTestScheduler()

	s.SubmitChunk(chunk(480, 1000))
	s.BeginFadeStop(20 * time.Millisecond)

	// Chunks during the drain are dropped, not scheduled.
	s.SubmitChunk(chunk(480, 1000))
	if got := len(segmentsOf(s)); got != 1 {
		t.Errorf("segments during fade = %d, want 1", got)
	}
	if got := s.Stats().ChunksDropped; got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := s.State(); st.Accepting && st.Segments == 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	st := s.State()
	if st.Segments != 0 {
		t.Errorf("segments after teardown = %d, want 0", st.Segments)
	}
	if st.NextStart != 0 {
		t.Errorf("nextStart after teardown = %d, want 0", st.NextStart)
	}
	if !st.Accepting {
		t.Error("scheduler not accepting after teardown")
	}
	if st.Gain != 1.0 {
		t.Errorf("gain after teardown = %v, want 1.0 restored", st.Gain)
	}

	// And the next chunk schedules normally again.
	if err := s.SubmitChunk(chunk(480, 1000)); err != nil {
		t.Fatalf("SubmitChunk after teardown failed: %v", err)
	}
	if got := len(segmentsOf(s)); got != 1 {
		t.Errorf("segments after teardown submit = %d, want 1", got)
	}
}

func TestFadeStopSuperseded(t *testing.T) {
	s, _ := newTestScheduler()

	s.SubmitChunk(chunk(480, 1000))
	s.BeginFadeStop(10 * time.Millisecond)
	s.BeginFadeStop(5 * time.Second) // supersedes: first teardown must not fire

	time.Sleep(100 * time.Millisecond)
	if st := s.State(); st.Accepting {
		t.Error("first fade's teardown fired despite being superseded")
	}

	s.HardStop()
	if st := s.State(); !st.Accepting || st.Segments != 0 {
		t.Errorf("state after HardStop = %+v, want reset", st)
	}
}

func TestFadeRampIsOnSampleClock(t *testing.T) {
	s, _ := newTestScheduler()

	s.SubmitChunk(chunk(48000, 16000))
	fade := 100 * time.Millisecond
	s.BeginFadeStop(fade)

	s.mu.Lock()
	start := s.clock
	mid := s.gainAt(start + audio.DurationToFrames(fade)/2)
	end := s.gainAt(start + audio.DurationToFrames(fade))
	s.mu.Unlock()

	if mid <= 0.4 || mid >= 0.6 {
		t.Errorf("gain at fade midpoint = %v, want ~0.5 (linear ramp)", mid)
	}
	if end != 0 {
		t.Errorf("gain at fade end = %v, want 0", end)
	}

	s.HardStop()
}

func TestSetVolumeClamps(t *testing.T) {
	s, _ := newTestScheduler()

	s.SetVolume(1.7)
	s.mu.Lock()
	high := s.gainAt(s.clock + volumeRampFrames)
	s.mu.Unlock()
	if high != 1.0 {
		t.Errorf("gain after SetVolume(1.7) = %v, want clamped 1.0", high)
	}

	s.SetVolume(-0.5)
	s.mu.Lock()
	low := s.gainAt(s.clock + volumeRampFrames)
	s.mu.Unlock()
	if low != 0.0 {
		t.Errorf("gain after SetVolume(-0.5) = %v, want clamped 0.0", low)
	}
}

func TestRenderOutputsScheduledSamples(t *testing.T) {
	s, _ := newTestScheduler()
	leadIn := int(audio.DurationToFrames(DefaultLeadIn))

	s.SubmitChunk(chunk(480, 12000))

	// Lead-in renders silence, then the segment's samples appear.
	lead := renderFrames(t, s, leadIn)
	for i := 0; i < len(lead); i += 2 {
		if v := int16(binary.LittleEndian.Uint16(lead[i:])); v != 0 {
			t.Fatalf("lead-in sample %d = %d, want silence", i/2, v)
		}
	}

	body := renderFrames(t, s, 480)
	if v := int16(binary.LittleEndian.Uint16(body[0:])); v != 12000 {
		t.Errorf("first scheduled sample = %d, want 12000", v)
	}
}

func TestSubmitTruncatesPartialFrame(t *testing.T) {
	s, _ := newTestScheduler()

	data := append(chunk(10, 1), 0xAA, 0xBB, 0xCC)
	if err := s.SubmitChunk(data); err != nil {
		t.Fatalf("SubmitChunk failed: %v", err)
	}
	if got := s.Stats().BytesTruncated; got != 3 {
		t.Errorf("truncated = %d, want 3", got)
	}

	if err := s.SubmitChunk([]byte{0x01}); err != audio.ErrEmptyChunk {
		t.Errorf("SubmitChunk(1 byte) err = %v, want ErrEmptyChunk", err)
	}
}

func TestSnapshotsEmptyUntilInitialized(t *testing.T) {
	s, _ := newTestScheduler()

	if got := s.FrequencySnapshot(); len(got) != 0 {
		t.Errorf("frequency snapshot before init = %d bytes, want 0", len(got))
	}
	if got := s.WaveformSnapshot(); len(got) != 0 {
		t.Errorf("waveform snapshot before init = %d bytes, want 0", len(got))
	}

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if got := s.FrequencySnapshot(); len(got) != snapshotSize {
		t.Errorf("frequency snapshot = %d bytes, want %d", len(got), snapshotSize)
	}
	if got := s.WaveformSnapshot(); len(got) != snapshotSize {
		t.Errorf("waveform snapshot = %d bytes, want %d", len(got), snapshotSize)
	}
}

func TestInitializeIdempotent(t *testing.T) {
	s, device := newTestScheduler()

	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	if !device.playing {
		t.Error("device never started")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	s, device := newTestScheduler()
	s.Initialize()

	s.Shutdown()
	s.Shutdown()

	if device.closed != 1 {
		t.Errorf("device closed %d times, want 1", device.closed)
	}
	if len(s.FrequencySnapshot()) != 0 {
		t.Error("snapshots should be empty after shutdown")
	}
}

func TestVisualizationLoopStops(t *testing.T) {
	s, _ := newTestScheduler()
	s.Initialize()

	ticks := make(chan struct{}, 64)
	s.StartVisualizationLoop(func(freq, wave []byte) {
		if len(freq) != snapshotSize || len(wave) != snapshotSize {
			t.Errorf("callback sizes = %d/%d, want %d", len(freq), len(wave), snapshotSize)
		}
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("visualization callback never fired")
	}

	s.StopVisualizationLoop()

	// Drain, then confirm no further ticks arrive.
	time.Sleep(2 * visualizationInterval)
	for len(ticks) > 0 {
		<-ticks
	}
	time.Sleep(4 * visualizationInterval)
	if len(ticks) != 0 {
		t.Error("visualization callback fired after stop")
	}
}
