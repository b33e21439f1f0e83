package config

import (
	"github.com/cockroachdb/errors"
)

// Pipeline carries every tunable the processing pipeline consumes.
// It is built once in main and handed to the orchestrator at
// construction, there are no ambient lookups past this point.
type Pipeline struct {
	// preprocessing
	SampleRate      int
	MaxFileSizeMB   int
	MaxDurationSecs int
	NormalizePeakDB float64
	Normalize       bool

	// detection
	AnalysisWindowSecs  float64
	DetectionThresholds map[string]float64
	InstrumentModelPath string

	// separation
	Device           string // "cuda" or "cpu"
	DemucsBinPath    string
	DemucsWorkingDir string
	FFmpegBinPath    string
	FFprobeBinPath   string
	ModelCacheDir    string

	// lyrics
	TranscriptionServiceURL string
	MinVocalsDurationSecs   float64
}

func DefaultPipeline() Pipeline {
	return Pipeline{
		SampleRate:      44100,
		MaxFileSizeMB:   500,
		MaxDurationSecs: 600,
		NormalizePeakDB: -3.0,
		Normalize:       false,

		AnalysisWindowSecs: 30,
		DetectionThresholds: map[string]float64{
			"vocals":    0.5,
			"drums":     0.5,
			"bass":      0.5,
			"guitar":    0.5,
			"piano":     0.5,
			"strings":   0.6,
			"synth":     0.7,
			"brass":     0.65,
			"woodwinds": 0.65,
			"fx":        0.7,
		},

		Device:                "cpu",
		MinVocalsDurationSecs: 3,
	}
}

func (p Pipeline) Validate() error {
	if p.SampleRate <= 0 {
		return errors.New("Sample rate must be positive")
	}

	if p.MaxFileSizeMB <= 0 {
		return errors.New("Max file size must be positive")
	}

	if p.MaxDurationSecs <= 0 {
		return errors.New("Max duration must be positive")
	}

	if p.AnalysisWindowSecs <= 0 {
		return errors.New("Analysis window must be positive")
	}

	if p.Device != "cuda" && p.Device != "cpu" {
		return errors.Newf("Unrecognized device: %s", p.Device)
	}

	for label, threshold := range p.DetectionThresholds {
		if threshold < 0 || threshold > 1 {
			return errors.Newf("Threshold for %s is out of [0, 1]", label)
		}
	}

	return nil
}
