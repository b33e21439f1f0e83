package features

import "math"

// OnsetEnvelope computes half-wave rectified spectral flux per frame.
func (e Extractor) OnsetEnvelope(spectrogram [][]float64) []float64 {
	envelope := make([]float64, len(spectrogram))
	for i := 1; i < len(spectrogram); i++ {
		var flux float64
		for bin, magnitude := range spectrogram[i] {
			delta := magnitude - spectrogram[i-1][bin]
			if delta > 0 {
				flux += delta
			}
		}
		envelope[i] = flux
	}

	return envelope
}

// onsetDensity counts envelope peaks above an adaptive threshold and
// normalizes by the clip duration in seconds.
func onsetDensity(envelope []float64, frameRate float64, durationSecs float64) float64 {
	if durationSecs <= 0 || len(envelope) < 3 {
		return 0
	}

	avg := mean(envelope)
	deviation := std(envelope)
	threshold := avg + deviation

	// Peaks closer than 50ms collapse into one onset.
	minGap := int(math.Max(1, 0.05*frameRate))

	count := 0
	lastPeak := -minGap
	for i := 1; i < len(envelope)-1; i++ {
		if envelope[i] <= threshold {
			continue
		}
		if envelope[i] < envelope[i-1] || envelope[i] < envelope[i+1] {
			continue
		}
		if i-lastPeak < minGap {
			continue
		}
		count++
		lastPeak = i
	}

	return float64(count) / durationSecs
}
