// ABOUTME: Spectral analysis tap for visualization
// ABOUTME: Fixed 2048-sample window, smoothed log-magnitude bins
package player

import (
	"math"
	"sync"
)

const (
	// analysisWindow is the FFT size. Snapshots are half this length.
	analysisWindow = 2048

	// snapshotSize is the length of both snapshot byte arrays.
	snapshotSize = analysisWindow / 2

	// smoothing is the exponential smoothing factor applied to magnitudes
	// across successive frequency snapshots.
	smoothing = 0.8

	// minDecibels and maxDecibels bound the byte mapping of magnitude bins.
	minDecibels = -100.0
	maxDecibels = -30.0
)

// analyzer taps the rendered mono signal and serves fixed-size frequency
// and waveform snapshots. Push is called from the render path, snapshots
// from the visualization loop; both are cheap and non-blocking.
type analyzer struct {
	mu       sync.Mutex
	ring     [analysisWindow]float32
	pos      int
	smoothed [snapshotSize]float64

	// scratch buffers reused across snapshots
	re, im [analysisWindow]float64
}

// push appends rendered mono samples to the ring.
func (a *analyzer) push(samples []float32) {
	a.mu.Lock()
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % analysisWindow
	}
	a.mu.Unlock()
}

// frequencySnapshot returns snapshotSize bytes of smoothed log-magnitude
// frequency bins, 0 at or below minDecibels, 255 at or above maxDecibels.
func (a *analyzer) frequencySnapshot() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Unroll the ring into scratch, oldest first, under a Hann window.
	for i := 0; i < analysisWindow; i++ {
		s := float64(a.ring[(a.pos+i)%analysisWindow])
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(analysisWindow-1)))
		a.re[i] = s * w
		a.im[i] = 0
	}
	fft(a.re[:], a.im[:])

	out := make([]byte, snapshotSize)
	for k := 0; k < snapshotSize; k++ {
		mag := 2 * math.Hypot(a.re[k], a.im[k]) / analysisWindow
		a.smoothed[k] = smoothing*a.smoothed[k] + (1-smoothing)*mag

		db := 20 * math.Log10(a.smoothed[k]+1e-12)
		v := (db - minDecibels) / (maxDecibels - minDecibels) * 255
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out[k] = byte(v)
	}
	return out
}

// waveformSnapshot returns the most recent snapshotSize mono samples mapped
// to bytes centered on 128.
func (a *analyzer) waveformSnapshot() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]byte, snapshotSize)
	start := a.pos - snapshotSize
	for i := 0; i < snapshotSize; i++ {
		s := a.ring[((start+i)%analysisWindow+analysisWindow)%analysisWindow]
		v := 128 + int(s*127)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		out[i] = byte(v)
	}
	return out
}

// fft computes an in-place radix-2 FFT. len(re) must be a power of two.
func fft(re, im []float64) {
	n := len(re)

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j |= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := -2 * math.Pi / float64(size)
		for base := 0; base < n; base += size {
			for k := 0; k < half; k++ {
				angle := step * float64(k)
				wr, wi := math.Cos(angle), math.Sin(angle)

				i, j := base+k, base+k+half
				tr := wr*re[j] - wi*im[j]
				ti := wr*im[j] + wi*re[j]
				re[j] = re[i] - tr
				im[j] = im[i] - ti
				re[i] += tr
				im[i] += ti
			}
		}
	}
}
