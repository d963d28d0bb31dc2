// ABOUTME: Minimal WAV container writer for captured streams
// ABOUTME: Fixed to the service format (48kHz stereo PCM16)
package audio

import (
	"encoding/binary"
	"io"
)

const wavHeaderSize = 44

// WriteWAV writes a complete RIFF/WAVE file containing the given interleaved
// PCM16 bytes at the fixed service format.
func WriteWAV(w io.Writer, pcm []byte) error {
	header := make([]byte, wavHeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(wavHeaderSize-8+len(pcm)))
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format code
	binary.LittleEndian.PutUint16(header[22:24], Channels)
	binary.LittleEndian.PutUint32(header[24:28], SampleRate)
	binary.LittleEndian.PutUint32(header[28:32], SampleRate*BytesPerFrame) // byte rate
	binary.LittleEndian.PutUint16(header[32:34], BytesPerFrame)            // block align
	binary.LittleEndian.PutUint16(header[34:36], 8*BytesPerSample)         // bits per sample

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
