// ABOUTME: Tests for PCM16 conversion
// ABOUTME: Covers normalization, truncation of partial frames, and clipping
package audio

import (
	"encoding/binary"
	"testing"
)

func pcm16Bytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestDecodePCM16Normalization(t *testing.T) {
	// One frame: full-scale negative left, half-scale positive right.
	data := pcm16Bytes(-32768, 16384)

	left, right, dropped, err := DecodePCM16(data)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}
	if dropped != 0 {
		t.Errorf("dropped = %d, want 0", dropped)
	}
	if len(left) != 1 || len(right) != 1 {
		t.Fatalf("frame count = %d/%d, want 1/1", len(left), len(right))
	}
	if left[0] != -1.0 {
		t.Errorf("left[0] = %v, want -1.0", left[0])
	}
	if right[0] != 0.5 {
		t.Errorf("right[0] = %v, want 0.5", right[0])
	}
}

func TestDecodePCM16TruncatesPartialFrame(t *testing.T) {
	// Two complete frames plus 3 stray bytes.
	data := append(pcm16Bytes(100, 200, 300, 400), 0x01, 0x02, 0x03)

	left, right, dropped, err := DecodePCM16(data)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}
	if len(left) != 2 || len(right) != 2 {
		t.Errorf("frame count = %d/%d, want 2/2", len(left), len(right))
	}
	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
}

func TestDecodePCM16Empty(t *testing.T) {
	for _, data := range [][]byte{nil, {}, {0x01, 0x02, 0x03}} {
		if _, _, _, err := DecodePCM16(data); err != ErrEmptyChunk {
			t.Errorf("DecodePCM16(%d bytes) err = %v, want ErrEmptyChunk", len(data), err)
		}
	}
}

func TestEncodePCM16Clipping(t *testing.T) {
	out := EncodePCM16([]float32{1.5}, []float32{-1.5})

	l := int16(binary.LittleEndian.Uint16(out[0:]))
	r := int16(binary.LittleEndian.Uint16(out[2:]))
	if l != 32767 {
		t.Errorf("left clipped to %d, want 32767", l)
	}
	if r != -32768 {
		t.Errorf("right clipped to %d, want -32768", r)
	}
}

func TestEncodePCM16IntoMatchesAllocatingEncode(t *testing.T) {
	left := []float32{-1.0, 0.25, 0.5}
	right := []float32{1.0, -0.25, -0.5}

	want := EncodePCM16(left, right)
	dst := make([]byte, len(left)*BytesPerFrame)
	n := EncodePCM16Into(dst, left, right)

	if n != len(want) {
		t.Fatalf("bytes written = %d, want %d", n, len(want))
	}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %#x, want %#x", i, dst[i], want[i])
		}
	}
}

func TestEncodePCM16IntoDropsFramesBeyondDst(t *testing.T) {
	// Destination holds one frame; the second frame must be dropped, not
	// panic or spill.
	dst := make([]byte, BytesPerFrame)
	n := EncodePCM16Into(dst, []float32{0.5, 0.5}, []float32{0.5, 0.5})
	if n != BytesPerFrame {
		t.Errorf("bytes written = %d, want %d", n, BytesPerFrame)
	}
}

func TestFrameDurationRoundTrip(t *testing.T) {
	// 2 seconds of audio at the service rate.
	frames := int64(2 * SampleRate)
	d := FramesToDuration(frames)
	if got := DurationToFrames(d); got != frames {
		t.Errorf("DurationToFrames(FramesToDuration(%d)) = %d", frames, got)
	}
}
