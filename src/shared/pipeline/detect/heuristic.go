package detect

import (
	"context"
	"math"

	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/features"
)

// HeuristicScorer is the always-available fallback strategy. Each label's
// score is a hand-shaped combination of the scalar features, tuned so
// that clearly present instruments land above their threshold and
// ambiguous material lands below.
type HeuristicScorer struct{}

func NewHeuristicScorer() HeuristicScorer {
	return HeuristicScorer{}
}

func (s HeuristicScorer) Score(ctx context.Context, vector features.Vector) (map[string]float64, error) {
	if vector.RMS < 1e-5 {
		return Empty().Scores, nil
	}

	harmonic := vector.HarmonicRatio
	percussive := vector.PercussiveRatio
	centroid := vector.SpectralCentroidMean

	scores := map[string]float64{
		// Sung pitch sits in a mid centroid band with strongly
		// harmonic energy.
		"vocals": harmonic * bandGate(centroid, 1000, 4000, 800),

		"drums": clamp01(percussive*1.4) * onsetBoost(vector.OnsetDensity),

		"bass": clamp01(vector.LowBandRatio * 2.5),

		"guitar": harmonic * bandGate(centroid, 800, 3000, 600),

		// Piano spreads energy across many pitch classes, so a flat
		// chroma with harmonic content reads as piano-like.
		"piano": harmonic * flatnessGate(vector.ChromaStd),

		"strings": harmonic * sustainGate(vector.OnsetDensity) * bandGate(centroid, 500, 3500, 700),

		"synth": bandGate(centroid, 2000, 8000, 1500) * clamp01(vector.SpectralBandwidthStd/1500),

		"brass": harmonic * bandGate(centroid, 1500, 5000, 1000) * clamp01(vector.SpectralRolloffMean/8000),

		"woodwinds": harmonic * bandGate(centroid, 600, 2500, 500) * (1 - clamp01(vector.ZeroCrossingRate*10)),

		// Inharmonic broadband content that is neither percussive
		// transients nor pitched material.
		"fx": (1 - harmonic) * (1 - percussive) * clamp01(vector.SpectralBandwidthMean/4000),
	}

	return scores, nil
}

// bandGate is 1 inside [low, high] and falls off linearly over the soft
// margin on both sides.
func bandGate(value float64, low float64, high float64, soft float64) float64 {
	switch {
	case value >= low && value <= high:
		return 1
	case value < low:
		return clamp01(1 - (low-value)/soft)
	default:
		return clamp01(1 - (value-high)/soft)
	}
}

// onsetBoost rewards dense transient activity, saturating above
// 5 onsets per second.
func onsetBoost(onsetsPerSec float64) float64 {
	if onsetsPerSec > 5 {
		return 1
	}

	return 0.4 + 0.6*onsetsPerSec/5
}

// sustainGate is the inverse: sparse onsets suggest sustained material.
func sustainGate(onsetsPerSec float64) float64 {
	return clamp01(1 - onsetsPerSec/8)
}

func flatnessGate(chromaStd float64) float64 {
	return clamp01(math.Exp(-chromaStd * 20))
}
