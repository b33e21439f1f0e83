package detect

import (
	"context"
	"sort"

	"github.com/apex/log"
	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/features"
)

// Labels is the closed set of instrument labels the detector scores.
var Labels = []string{
	"vocals", "drums", "bass", "guitar", "piano",
	"strings", "synth", "brass", "woodwinds", "fx",
}

// Result maps every supported label to a confidence in [0, 1].
type Result struct {
	Scores     map[string]float64
	Thresholds map[string]float64
}

// Empty returns a result with every label scored zero, the safe value
// the orchestrator falls back to when detection fails.
func Empty() Result {
	scores := make(map[string]float64, len(Labels))
	for _, label := range Labels {
		scores[label] = 0
	}

	return Result{
		Scores:     scores,
		Thresholds: map[string]float64{},
	}
}

// DetectedSet returns the labels whose score meets the per-label
// threshold, in a stable order.
func (r Result) DetectedSet() []string {
	detected := []string{}
	for _, label := range Labels {
		threshold, ok := r.Thresholds[label]
		if !ok {
			threshold = 1.01
		}

		if r.Scores[label] >= threshold {
			detected = append(detected, label)
		}
	}

	sort.Strings(detected)
	return detected
}

func (r Result) Has(label string) bool {
	for _, detected := range r.DetectedSet() {
		if detected == label {
			return true
		}
	}

	return false
}

//counterfeiter:generate . Scorer

// Scorer produces per-label confidences from an extracted feature
// vector. The detector picks a strategy at construction time.
type Scorer interface {
	Score(ctx context.Context, vector features.Vector) (map[string]float64, error)
}

type Detector struct {
	extractor  features.Extractor
	scorer     Scorer
	thresholds map[string]float64
	windowSecs float64
}

func NewDetector(pipelineConfig config.Pipeline, commandExecutor executor.Executor) Detector {
	return Detector{
		extractor:  features.NewExtractor(pipelineConfig.SampleRate),
		scorer:     selectScorer(pipelineConfig, commandExecutor),
		thresholds: pipelineConfig.DetectionThresholds,
		windowSecs: pipelineConfig.AnalysisWindowSecs,
	}
}

func NewDetectorWithScorer(pipelineConfig config.Pipeline, scorer Scorer) Detector {
	return Detector{
		extractor:  features.NewExtractor(pipelineConfig.SampleRate),
		scorer:     scorer,
		thresholds: pipelineConfig.DetectionThresholds,
		windowSecs: pipelineConfig.AnalysisWindowSecs,
	}
}

// Detect scores the first analysis window of the buffer against every
// supported label. An empty detected set is a valid outcome, not an
// error.
func (d Detector) Detect(ctx context.Context, buffer audio.Buffer) (Result, error) {
	window := buffer.Window(d.windowSecs)
	vector := d.extractor.Extract(window.Mono())

	scores, err := d.scorer.Score(ctx, vector)
	if err != nil {
		return Result{}, cerr.Wrap(err).Error("Failed to score instrument features")
	}

	for _, label := range Labels {
		score, ok := scores[label]
		if !ok {
			scores[label] = 0
			continue
		}

		scores[label] = clamp01(score)
	}

	result := Result{
		Scores:     scores,
		Thresholds: d.thresholds,
	}

	log.WithFields(log.Fields{
		"detected": result.DetectedSet(),
	}).Info("Instrument detection finished")

	return result, nil
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}

	return value
}
