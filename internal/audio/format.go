// ABOUTME: Stream format constants and clock helpers
// ABOUTME: The generation service produces one fixed format: 48kHz stereo PCM16
package audio

import "time"

const (
	// SampleRate is the only sample rate the generation service produces.
	SampleRate = 48000

	// Channels is the fixed channel count (interleaved L/R).
	Channels = 2

	// BytesPerSample is the width of one signed 16-bit little-endian sample.
	BytesPerSample = 2

	// BytesPerFrame is the size of one interleaved L/R sample pair.
	BytesPerFrame = Channels * BytesPerSample
)

// FramesToDuration converts a frame count to wall-time duration at SampleRate.
func FramesToDuration(frames int64) time.Duration {
	return time.Duration(frames * int64(time.Second) / SampleRate)
}

// DurationToFrames converts a duration to a frame count at SampleRate.
func DurationToFrames(d time.Duration) int64 {
	return int64(d) * SampleRate / int64(time.Second)
}
