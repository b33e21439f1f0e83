package analysisusecase

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	analysiserrors "github.com/harmonix-audio/harmonix-be/src/server/internal/analysis/errors"
	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/api"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/orchestrator"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/preprocess"
)

// Report is the synchronous analysis payload. It carries the same
// detection and analysis fields a full separation job would record,
// minus everything stem related.
type Report struct {
	DetectedInstruments []string                  `json:"detected_instruments"`
	InstrumentScores    map[string]float64        `json:"instrument_scores"`
	Analysis            jobentity.AnalysisSummary `json:"analysis"`
}

type Usecase struct {
	orchestrator orchestrator.Orchestrator
}

func NewUsecase(analysisOrchestrator orchestrator.Orchestrator) Usecase {
	return Usecase{
		orchestrator: analysisOrchestrator,
	}
}

// Analyze stages the uploaded audio into a temp file and runs the
// analysis-only pipeline over it. fileName is only consulted for its
// extension, the format allow-list works off of it.
func (u Usecase) Analyze(ctx context.Context, audioFile io.Reader, fileName string) (Report, *api.Error) {
	tempDirPath, err := os.MkdirTemp("", "analyze-*")
	if err != nil {
		err = errors.Wrap(err, "Failed to create temp dir for analysis input")
		return Report{}, api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to stage the audio file")
	}

	defer func() {
		if removeErr := os.RemoveAll(tempDirPath); removeErr != nil {
			log.WithField("temp_dir", tempDirPath).
				Error("Failed to clean up analysis temp dir")
		}
	}()

	inputPath := filepath.Join(tempDirPath, "input"+filepath.Ext(fileName))
	if apiErr := stageFile(inputPath, audioFile); apiErr != nil {
		return Report{}, apiErr
	}

	summary, err := u.orchestrator.AnalyzeOnly(ctx, inputPath)
	if err != nil {
		err = errors.Wrap(err, "Analysis pipeline failed on uploaded audio")
		switch {
		case markers.Is(err, preprocess.ErrUnsupportedFormat):
			fallthrough
		case markers.Is(err, preprocess.ErrFileTooLarge):
			fallthrough
		case markers.Is(err, preprocess.ErrDurationExceeded):
			fallthrough
		case markers.Is(err, preprocess.ErrEmptyAudio):
			return Report{}, api.CommitError(err,
				analysiserrors.BadAudioFileCode,
				"The audio file could not be accepted for analysis")

		default:
			return Report{}, api.CommitError(err,
				analysiserrors.AnalysisFailedCode,
				"The audio file could not be analyzed")
		}
	}

	return buildReport(summary), nil
}

func stageFile(inputPath string, audioFile io.Reader) *api.Error {
	outputFile, err := os.Create(inputPath)
	if err != nil {
		err = errors.Wrap(err, "Failed to create analysis input file")
		return api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to stage the audio file")
	}

	defer outputFile.Close()

	_, err = io.Copy(outputFile, audioFile)
	if err != nil {
		err = errors.Wrap(err, "Failed to write uploaded audio to disk")
		return api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to stage the audio file")
	}

	return nil
}

func buildReport(summary orchestrator.AnalysisSummary) Report {
	analysis := summary.Analysis

	alternatives := make([]jobentity.KeyAlternative, 0, len(analysis.Key.Alternatives))
	for _, alternative := range analysis.Key.Alternatives {
		alternatives = append(alternatives, jobentity.KeyAlternative{
			Key:        alternative.Key,
			Scale:      alternative.Scale,
			Confidence: alternative.Confidence,
		})
	}

	return Report{
		DetectedInstruments: summary.Detection.DetectedSet(),
		InstrumentScores:    summary.Detection.Scores,
		Analysis: jobentity.AnalysisSummary{
			Tempo: jobentity.TempoSummary{
				BPM:           analysis.Tempo.BPM,
				Confidence:    analysis.Tempo.Confidence,
				BeatPositions: analysis.Tempo.Beats,
			},
			Key: jobentity.KeySummary{
				Key:          analysis.Key.Key,
				Scale:        analysis.Key.Scale,
				Confidence:   analysis.Key.Confidence,
				Camelot:      analysis.Key.Camelot,
				Alternatives: alternatives,
			},
			DurationSecs: analysis.DurationSecs,
		},
	}
}
