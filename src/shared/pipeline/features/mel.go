package features

import "math"

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds triangular filters over the FFT bins, one row per
// mel band, spanning 0 Hz to Nyquist.
func melFilterbank(bandCount int, fftSize int, sampleRate int) [][]float64 {
	binCount := fftSize/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2)

	centers := make([]float64, bandCount+2)
	for i := range centers {
		mel := maxMel * float64(i) / float64(bandCount+1)
		centers[i] = melToHz(mel) * float64(fftSize) / float64(sampleRate)
	}

	filters := make([][]float64, bandCount)
	for band := 0; band < bandCount; band++ {
		filter := make([]float64, binCount)
		left, center, right := centers[band], centers[band+1], centers[band+2]

		for bin := 0; bin < binCount; bin++ {
			f := float64(bin)
			switch {
			case f > left && f <= center:
				filter[bin] = (f - left) / (center - left)
			case f > center && f < right:
				filter[bin] = (right - f) / (right - center)
			}
		}

		filters[band] = filter
	}

	return filters
}

// melSpectrogram maps each magnitude frame onto the mel filterbank and
// converts to log power.
func (e Extractor) melSpectrogram(spectrogram [][]float64) [][]float64 {
	melSpec := make([][]float64, len(spectrogram))
	for i, frame := range spectrogram {
		bands := make([]float64, len(e.melFilters))
		for band, filter := range e.melFilters {
			var energy float64
			for bin, weight := range filter {
				if weight == 0 {
					continue
				}
				energy += weight * frame[bin] * frame[bin]
			}
			bands[band] = math.Log(energy + 1e-10)
		}
		melSpec[i] = bands
	}

	return melSpec
}

// mfcc takes the type-II DCT of each log mel frame, keeping the first
// mfccCount coefficients.
func (e Extractor) mfcc(melSpec [][]float64) [][]float64 {
	coefficients := make([][]float64, len(melSpec))
	for i, bands := range melSpec {
		frame := make([]float64, mfccCount)
		n := float64(len(bands))
		for k := 0; k < mfccCount; k++ {
			var sum float64
			for j, band := range bands {
				sum += band * math.Cos(math.Pi*float64(k)*(float64(j)+0.5)/n)
			}
			frame[k] = sum
		}
		coefficients[i] = frame
	}

	return coefficients
}
