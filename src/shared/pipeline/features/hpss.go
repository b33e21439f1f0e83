package features

import "sort"

const hpssKernelSize = 9

// harmonicPercussiveRatios estimates how much of the spectrogram's energy
// is harmonic (horizontal ridges) versus percussive (vertical spikes) by
// median filtering along time and frequency respectively. Both ratios are
// in [0, 1] and sum to 1 for non-silent input.
func harmonicPercussiveRatios(spectrogram [][]float64) (float64, float64) {
	if len(spectrogram) == 0 {
		return 0, 0
	}

	var harmonic, percussive float64
	binCount := len(spectrogram[0])

	column := make([]float64, 0, len(spectrogram))
	for bin := 0; bin < binCount; bin++ {
		column = column[:0]
		for _, frame := range spectrogram {
			column = append(column, frame[bin])
		}
		for _, value := range medianFilter(column, hpssKernelSize) {
			harmonic += value * value
		}
	}

	for _, frame := range spectrogram {
		for _, value := range medianFilter(frame, hpssKernelSize) {
			percussive += value * value
		}
	}

	total := harmonic + percussive
	if total == 0 {
		return 0, 0
	}

	return harmonic / total, percussive / total
}

func medianFilter(values []float64, kernelSize int) []float64 {
	half := kernelSize / 2
	filtered := make([]float64, len(values))
	window := make([]float64, 0, kernelSize)

	for i := range values {
		window = window[:0]
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(values) {
				continue
			}
			window = append(window, values[j])
		}

		sort.Float64s(window)
		mid := len(window) / 2
		if len(window)%2 == 1 {
			filtered[i] = window[mid]
		} else {
			filtered[i] = (window[mid-1] + window[mid]) / 2
		}
	}

	return filtered
}
