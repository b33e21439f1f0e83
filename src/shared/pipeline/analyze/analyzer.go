package analyze

import (
	"github.com/apex/log"
	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/features"
)

type TempoEstimate struct {
	BPM        float64
	Confidence float64
	Beats      []float64
}

type KeyAlternative struct {
	Key        string
	Scale      string
	Confidence float64
}

type KeyEstimate struct {
	Key          string
	Scale        string
	Confidence   float64
	Camelot      string
	Alternatives []KeyAlternative
}

// Analysis is computed once per job and read-only afterward.
type Analysis struct {
	Tempo        TempoEstimate
	Key          KeyEstimate
	DurationSecs float64
}

// Unknown is the low-confidence analysis the orchestrator substitutes
// when the analyzer fails. Routing never depends on it.
func Unknown() Analysis {
	return Analysis{
		Tempo: TempoEstimate{BPM: 0, Confidence: 0, Beats: []float64{}},
		Key: KeyEstimate{
			Key:          "C",
			Scale:        ScaleMajor,
			Confidence:   0,
			Camelot:      camelotCode("C", ScaleMajor),
			Alternatives: []KeyAlternative{},
		},
	}
}

type Analyzer struct {
	extractor features.Extractor
}

func NewAnalyzer(pipelineConfig config.Pipeline) Analyzer {
	return Analyzer{
		extractor: features.NewExtractor(pipelineConfig.SampleRate),
	}
}

// Analyze estimates tempo and key over the whole buffer. It has no
// failure modes of its own. Confidences on clips shorter than 5 seconds
// are clamped down since there is too little evidence to be certain.
func (a Analyzer) Analyze(buffer audio.Buffer) Analysis {
	duration := buffer.Duration()
	spectrogram := a.extractor.Spectrogram(buffer.Mono())

	evidenceFactor := clamp01(duration / minConfidentDuration)

	tempo := a.estimateTempo(spectrogram, evidenceFactor)
	key := a.estimateKey(spectrogram, evidenceFactor)

	log.WithFields(log.Fields{
		"bpm":            tempo.BPM,
		"bpm_confidence": tempo.Confidence,
		"key":            key.Key,
		"scale":          key.Scale,
		"key_confidence": key.Confidence,
	}).Info("Music analysis finished")

	return Analysis{
		Tempo:        tempo,
		Key:          key,
		DurationSecs: duration,
	}
}

const minConfidentDuration = 5.0

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}

	return value
}
