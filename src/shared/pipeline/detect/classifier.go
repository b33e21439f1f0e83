package detect

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/executor"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/features"
)

// ClassifierScorer runs the trained instrument model through its runner
// binary, handing it the mel-spectrogram as JSON and reading sigmoid
// probabilities per label back from stdout.
type ClassifierScorer struct {
	commandExecutor executor.Executor
	runnerPath      string
}

func NewClassifierScorer(runnerPath string, commandExecutor executor.Executor) ClassifierScorer {
	return ClassifierScorer{
		commandExecutor: commandExecutor,
		runnerPath:      runnerPath,
	}
}

type classifierInput struct {
	MelSpectrogram [][]float64 `json:"mel_spectrogram"`
	Labels         []string    `json:"labels"`
}

func (s ClassifierScorer) Score(ctx context.Context, vector features.Vector) (map[string]float64, error) {
	input, err := json.Marshal(classifierInput{
		MelSpectrogram: vector.MelSpectrogram,
		Labels:         Labels,
	})
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to marshal classifier input")
	}

	tempDir, err := os.MkdirTemp("", "instrument-model-*")
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to create classifier temp dir")
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, "features.json")
	err = os.WriteFile(inputPath, input, os.ModePerm)
	if err != nil {
		return nil, cerr.Field("input_path", inputPath).
			Wrap(err).Error("Failed to write classifier input")
	}

	command := s.commandExecutor.Command(s.runnerPath, "--features", inputPath)
	output, err := command.Output()
	if err != nil {
		return nil, cerr.Field("runner_path", s.runnerPath).
			Wrap(err).Error("Instrument model runner failed")
	}

	scores := map[string]float64{}
	err = json.Unmarshal(output, &scores)
	if err != nil {
		return nil, cerr.Field("output", string(output)).
			Wrap(err).Error("Failed to decode instrument model output")
	}

	return scores, nil
}

// selectScorer picks the trained model when its runner is present on
// disk, otherwise the heuristic fallback.
func selectScorer(pipelineConfig config.Pipeline, commandExecutor executor.Executor) Scorer {
	if pipelineConfig.InstrumentModelPath != "" {
		_, err := os.Stat(pipelineConfig.InstrumentModelPath)
		if err == nil {
			return NewClassifierScorer(pipelineConfig.InstrumentModelPath, commandExecutor)
		}

		log.WithField("model_path", pipelineConfig.InstrumentModelPath).
			Warn("Instrument model not found, falling back to heuristic scoring")
	}

	return NewHeuristicScorer()
}
