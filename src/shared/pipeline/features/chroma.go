package features

import "math"

// ChromaFrames folds each magnitude frame into 12 pitch class bins.
// Bins below 55 Hz are skipped to keep rumble out of the profile.
func (e Extractor) ChromaFrames(spectrogram [][]float64) [][]float64 {
	frames := make([][]float64, len(spectrogram))
	for i, frame := range spectrogram {
		chroma := make([]float64, 12)
		for bin, magnitude := range frame {
			frequency := e.binFrequency(bin)
			if frequency < 55 {
				continue
			}

			midi := 69 + 12*math.Log2(frequency/440)
			pitchClass := int(math.Round(midi)) % 12
			if pitchClass < 0 {
				pitchClass += 12
			}

			chroma[pitchClass] += magnitude * magnitude
		}
		frames[i] = chroma
	}

	return frames
}

// averageChroma returns the frame-averaged profile normalized to sum to 1,
// along with the mean per-bin standard deviation across frames.
func averageChroma(frames [][]float64) ([]float64, float64) {
	avg := make([]float64, 12)
	if len(frames) == 0 {
		return avg, 0
	}

	for _, frame := range frames {
		for bin, energy := range frame {
			avg[bin] += energy
		}
	}

	var total float64
	for bin := range avg {
		avg[bin] /= float64(len(frames))
		total += avg[bin]
	}

	if total > 0 {
		for bin := range avg {
			avg[bin] /= total
		}
	}

	var stdSum float64
	for bin := 0; bin < 12; bin++ {
		column := make([]float64, len(frames))
		for i, frame := range frames {
			column[i] = frame[bin]
		}
		stdSum += std(column)
	}

	return avg, stdSum / 12
}
