package analyze

import "math"

const (
	minBPM = 40.0
	maxBPM = 200.0

	// A lag whose half lag carries at least this fraction of its strength
	// is treated as an octave error and folded to the faster tempo.
	subharmonicRatio = 0.4
)

// estimateTempo combines an autocorrelation tempo estimate with a
// dynamic-programming beat tracker over the onset envelope. Agreement
// between the two methods drives the confidence.
func (a Analyzer) estimateTempo(spectrogram [][]float64, evidenceFactor float64) TempoEstimate {
	envelope := a.extractor.OnsetEnvelope(spectrogram)
	frameRate := a.extractor.FrameRate()

	autoBPM, periodicity := autocorrelationTempo(envelope, frameRate)
	if autoBPM == 0 {
		return TempoEstimate{BPM: 0, Confidence: 0, Beats: []float64{}}
	}

	beats := trackBeats(envelope, frameRate, autoBPM)
	beatBPM := bpmFromBeats(beats)

	bpm := autoBPM
	agreement := 0.0
	if beatBPM > 0 {
		agreement = clamp01(1 - math.Abs(autoBPM-beatBPM)/12)
		if agreement > 0.5 {
			bpm = 0.5*autoBPM + 0.5*beatBPM
		}
	}

	confidence := evidenceFactor * clamp01(0.55*agreement+0.45*clamp01(periodicity*1.6))

	return TempoEstimate{
		BPM:        bpm,
		Confidence: confidence,
		Beats:      beats,
	}
}

// autocorrelationTempo picks the strongest envelope autocorrelation peak
// in the plausible BPM range, with parabolic interpolation around the
// peak lag. Returns the BPM and the peak strength relative to lag zero.
func autocorrelationTempo(envelope []float64, frameRate float64) (float64, float64) {
	minLag := int(frameRate * 60 / maxBPM)
	maxLag := int(frameRate * 60 / minBPM)
	if maxLag >= len(envelope) {
		maxLag = len(envelope) - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0, 0
	}

	zeroLag := autocorrelation(envelope, 0)
	if zeroLag == 0 {
		return 0, 0
	}

	bestLag := 0
	bestValue := 0.0
	values := make([]float64, maxLag+1)
	for lag := minLag; lag <= maxLag; lag++ {
		values[lag] = autocorrelation(envelope, lag)
		if values[lag] > bestValue {
			bestValue = values[lag]
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0, 0
	}

	// A beat train correlates as strongly at twice its period, so the
	// raw argmax can land an octave low. Fold down while the half lag
	// holds comparable strength; the reported strength keeps the
	// stronger harmonic.
	peakValue := bestValue
	for {
		half := bestLag / 2
		if half+1 <= maxLag && values[half+1] > values[half] {
			half++
		}
		if half < minLag || half >= bestLag || values[half] < subharmonicRatio*values[bestLag] {
			break
		}
		bestLag = half
	}

	refinedLag := float64(bestLag)
	if bestLag > minLag && bestLag < maxLag {
		refinedLag += parabolicOffset(values[bestLag-1], values[bestLag], values[bestLag+1])
	}

	return frameRate * 60 / refinedLag, peakValue / zeroLag
}

func autocorrelation(envelope []float64, lag int) float64 {
	var sum float64
	for i := 0; i+lag < len(envelope); i++ {
		sum += envelope[i] * envelope[i+lag]
	}

	return sum
}

func parabolicOffset(left float64, center float64, right float64) float64 {
	denominator := left - 2*center + right
	if denominator == 0 {
		return 0
	}

	offset := 0.5 * (left - right) / denominator
	if offset > 0.5 {
		return 0.5
	}
	if offset < -0.5 {
		return -0.5
	}

	return offset
}

// trackBeats runs the Ellis dynamic-programming beat tracker seeded with
// the autocorrelation period, then backtracks the best chain into beat
// timestamps in seconds.
func trackBeats(envelope []float64, frameRate float64, bpm float64) []float64 {
	period := frameRate * 60 / bpm
	if period < 2 || len(envelope) == 0 {
		return []float64{}
	}

	const tightness = 100.0

	scores := make([]float64, len(envelope))
	backlinks := make([]int, len(envelope))
	for i := range backlinks {
		backlinks[i] = -1
	}

	for i := range envelope {
		scores[i] = envelope[i]

		lower := i - int(period*2)
		upper := i - int(period/2)
		if upper < 0 {
			continue
		}
		if lower < 0 {
			lower = 0
		}

		best := math.Inf(-1)
		bestIndex := -1
		for j := lower; j <= upper; j++ {
			deviation := math.Log(float64(i-j) / period)
			candidate := scores[j] - tightness*deviation*deviation
			if candidate > best {
				best = candidate
				bestIndex = j
			}
		}

		if bestIndex >= 0 {
			scores[i] += best
			backlinks[i] = bestIndex
		}
	}

	bestEnd := 0
	for i := range scores {
		if scores[i] > scores[bestEnd] {
			bestEnd = i
		}
	}

	frames := []int{}
	for i := bestEnd; i >= 0; i = backlinks[i] {
		frames = append(frames, i)
		if backlinks[i] < 0 {
			break
		}
	}

	beats := make([]float64, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		beats = append(beats, float64(frames[i])/frameRate)
	}

	return beats
}

func bpmFromBeats(beats []float64) float64 {
	if len(beats) < 4 {
		return 0
	}

	intervals := make([]float64, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		intervals = append(intervals, beats[i]-beats[i-1])
	}

	median := medianOf(intervals)
	if median <= 0 {
		return 0
	}

	// Averaging the regular intervals recovers the sub-frame precision
	// that the frame-quantized median cannot express.
	var sum float64
	count := 0
	for _, interval := range intervals {
		if math.Abs(interval-median) > 0.25*median {
			continue
		}
		sum += interval
		count++
	}
	if count == 0 {
		return 60 / median
	}

	return 60 / (sum / float64(count))
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}

	return (sorted[mid-1] + sorted[mid]) / 2
}
