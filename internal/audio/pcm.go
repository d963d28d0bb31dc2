// ABOUTME: PCM16 conversion between wire bytes and per-channel float samples
// ABOUTME: Single supported layout: interleaved signed 16-bit little-endian stereo
package audio

import (
	"encoding/binary"
	"errors"
)

// ErrEmptyChunk is returned when a chunk holds no complete frame.
var ErrEmptyChunk = errors.New("audio: chunk contains no complete frame")

// DecodePCM16 converts interleaved 16-bit little-endian stereo bytes into
// normalized per-channel float32 buffers (sample/32768, range [-1, 1)).
// A trailing partial frame is truncated; the number of dropped bytes is
// returned so callers can log it. Only a chunk with zero complete frames
// is an error.
func DecodePCM16(pcm []byte) (left, right []float32, dropped int, err error) {
	frames := len(pcm) / BytesPerFrame
	dropped = len(pcm) - frames*BytesPerFrame
	if frames == 0 {
		return nil, nil, dropped, ErrEmptyChunk
	}

	left = make([]float32, frames)
	right = make([]float32, frames)
	for i := 0; i < frames; i++ {
		off := i * BytesPerFrame
		l := int16(binary.LittleEndian.Uint16(pcm[off:]))
		r := int16(binary.LittleEndian.Uint16(pcm[off+BytesPerSample:]))
		left[i] = float32(l) / 32768.0
		right[i] = float32(r) / 32768.0
	}
	return left, right, dropped, nil
}

// EncodePCM16 converts per-channel float samples back into interleaved
// 16-bit little-endian stereo bytes, clipping to the int16 range. Both
// channels must have equal length.
func EncodePCM16(left, right []float32) []byte {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	out := make([]byte, n*BytesPerFrame)
	EncodePCM16Into(out, left, right)
	return out
}

// EncodePCM16Into encodes into dst without allocating, for callers on the
// render path. Frames beyond dst's capacity are dropped. Returns the number
// of bytes written.
func EncodePCM16Into(dst []byte, left, right []float32) int {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	if max := len(dst) / BytesPerFrame; max < n {
		n = max
	}

	for i := 0; i < n; i++ {
		off := i * BytesPerFrame
		binary.LittleEndian.PutUint16(dst[off:], uint16(clipToInt16(left[i])))
		binary.LittleEndian.PutUint16(dst[off+BytesPerSample:], uint16(clipToInt16(right[i])))
	}
	return n * BytesPerFrame
}

func clipToInt16(s float32) int16 {
	v := s * 32768.0
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
