package analyze

import (
	"math"
	"sort"
)

const (
	ScaleMajor = "major"
	ScaleMinor = "minor"
)

var pitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Krumhansl-Kessler tonal hierarchy profiles.
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

type keyCandidate struct {
	key         string
	scale       string
	correlation float64
}

// estimateKey correlates the averaged chroma profile against all 24
// rotated reference profiles and ranks the candidates.
func (a Analyzer) estimateKey(spectrogram [][]float64, evidenceFactor float64) KeyEstimate {
	chroma, _ := averagedChroma(a.extractor.ChromaFrames(spectrogram))

	var total float64
	for _, energy := range chroma {
		total += energy
	}

	if total < 1e-9 {
		silent := Unknown().Key
		return silent
	}

	candidates := make([]keyCandidate, 0, 24)
	for tonic := 0; tonic < 12; tonic++ {
		candidates = append(candidates,
			keyCandidate{
				key:         pitchClasses[tonic],
				scale:       ScaleMajor,
				correlation: pearson(chroma, rotated(majorProfile, tonic)),
			},
			keyCandidate{
				key:         pitchClasses[tonic],
				scale:       ScaleMinor,
				correlation: pearson(chroma, rotated(minorProfile, tonic)),
			},
		)
	}

	sort.SliceStable(candidates, func(i int, j int) bool {
		return candidates[i].correlation > candidates[j].correlation
	})

	best := candidates[0]
	margin := best.correlation - candidates[1].correlation

	// Confidence blends how well the best profile fits with how far it
	// clears the runner-up, so a clean triad scores higher than a lone
	// pitch class that fits several profiles almost equally.
	confidence := evidenceFactor * clamp01(0.6*(best.correlation+1)/2+0.4*clamp01(4*margin))

	alternatives := make([]KeyAlternative, 0, 3)
	for _, candidate := range candidates[1:4] {
		alternatives = append(alternatives, KeyAlternative{
			Key:        candidate.key,
			Scale:      candidate.scale,
			Confidence: evidenceFactor * clamp01(0.6*(candidate.correlation+1)/2),
		})
	}

	return KeyEstimate{
		Key:          best.key,
		Scale:        best.scale,
		Confidence:   confidence,
		Camelot:      camelotCode(best.key, best.scale),
		Alternatives: alternatives,
	}
}

func averagedChroma(frames [][]float64) ([]float64, int) {
	avg := make([]float64, 12)
	for _, frame := range frames {
		for bin, energy := range frame {
			avg[bin] += energy
		}
	}

	if len(frames) > 0 {
		for bin := range avg {
			avg[bin] /= float64(len(frames))
		}
	}

	return avg, len(frames)
}

func rotated(profile []float64, tonic int) []float64 {
	out := make([]float64, 12)
	for i := range out {
		out[(i+tonic)%12] = profile[i]
	}

	return out
}

func pearson(a []float64, b []float64) float64 {
	meanA := meanOf(a)
	meanB := meanOf(b)

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}

	return cov / math.Sqrt(varA*varB)
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}
