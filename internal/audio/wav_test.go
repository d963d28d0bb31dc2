// ABOUTME: Tests for the WAV writer
// ABOUTME: Verifies header fields against the fixed stream format
package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWriteWAVHeader(t *testing.T) {
	pcm := make([]byte, 960*BytesPerFrame) // 20ms of frames

	var buf bytes.Buffer
	if err := WriteWAV(&buf, pcm); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	out := buf.Bytes()
	if len(out) != wavHeaderSize+len(pcm) {
		t.Fatalf("output size = %d, want %d", len(out), wavHeaderSize+len(pcm))
	}

	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != SampleRate {
		t.Errorf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint16(out[22:24]); got != Channels {
		t.Errorf("channels = %d, want %d", got, Channels)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data chunk size = %d, want %d", got, len(pcm))
	}
	if got := binary.LittleEndian.Uint32(out[4:8]); got != uint32(len(out)-8) {
		t.Errorf("RIFF chunk size = %d, want %d", got, len(out)-8)
	}
}
