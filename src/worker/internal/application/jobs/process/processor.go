package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	cloudstorage "github.com/harmonix-audio/harmonix-be/src/shared/cloud_storage/entity"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/working_dir"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/orchestrator"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/lib/storagepath"
)

func NewJobProcessor(
	pipeline orchestrator.Orchestrator,
	jobStore jobentity.Store,
	fileStore cloudstorage.FileStore,
	pathGenerator storagepath.Generator,
	workingDirStr string,
) (JobProcessor, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return JobProcessor{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return JobProcessor{
		pipeline:      pipeline,
		jobStore:      jobStore,
		fileStore:     fileStore,
		pathGenerator: pathGenerator,
		workingDir:    workingDir,
	}, nil
}

// JobProcessor runs the separation pipeline for one job: fetches the
// saved original, hands it to the orchestrator, and uploads everything
// the pipeline produced.
type JobProcessor struct {
	pipeline      orchestrator.Orchestrator
	jobStore      jobentity.Store
	fileStore     cloudstorage.FileStore
	pathGenerator storagepath.Generator
	workingDir    working_dir.WorkingDir
}

func (p JobProcessor) Process(ctx context.Context, jobID string) (jobentity.Result, error) {
	errctx := cerr.Field("job_id", jobID)

	job, err := p.jobStore.GetJob(ctx, jobID)
	if err != nil {
		return jobentity.Result{}, errctx.Wrap(err).Error("Failed to get job")
	}

	if job.SavedOriginalURL == "" {
		return jobentity.Result{}, errctx.Error("Job has no saved original to process")
	}

	inputPath, cleanUp, err := p.fetchOriginal(ctx, job)
	if err != nil {
		return jobentity.Result{}, errctx.Wrap(err).Error("Failed to fetch the saved original")
	}
	defer cleanUp()

	pipelineResult, err := p.pipeline.Process(ctx, inputPath, orchestrator.Params{
		Quality:           job.Params.Quality,
		Mode:              job.Params.Mode,
		TargetInstruments: job.Params.TargetInstruments,
		WithLyrics:        job.Params.WithLyrics,
		LanguageHint:      job.Params.LanguageHint,
		OnStage:           p.stageRecorder(jobID),
	})
	if err != nil {
		return jobentity.Result{}, errctx.Wrap(err).Error("Pipeline failed")
	}

	result, err := p.uploadResult(ctx, jobID, pipelineResult)
	if err != nil {
		return jobentity.Result{}, errctx.Wrap(err).Error("Failed to upload job output")
	}

	return result, nil
}

// stageRecorder persists stage transitions as the pipeline advances.
// Failures to record are logged and swallowed, progress tracking must
// not kill a running job.
func (p JobProcessor) stageRecorder(jobID string) func(jobentity.Stage) {
	return func(stage jobentity.Stage) {
		updater := func(job jobentity.Job) (jobentity.Job, error) {
			job.Stage = stage
			return job, nil
		}

		err := p.jobStore.UpdateJob(context.Background(), jobID, updater)
		if err != nil {
			cerr.Log(cerr.Fields(cerr.F{
				"job_id": jobID,
				"stage":  stage,
			}).Wrap(err).Error("Failed to record job stage"))
		}
	}
}

func (p JobProcessor) fetchOriginal(ctx context.Context, job jobentity.Job) (string, func(), error) {
	contents, err := p.fileStore.GetFile(ctx, job.SavedOriginalURL)
	if err != nil {
		return "", nil, cerr.Field("saved_original_url", job.SavedOriginalURL).
			Wrap(err).Error("Failed to read the saved original from storage")
	}

	tempDir, err := os.MkdirTemp(p.workingDir.TempDir(), "process-*")
	if err != nil {
		return "", nil, cerr.Field("temp_dir", p.workingDir.TempDir()).
			Wrap(err).Error("Failed to create temp dir for processing")
	}

	inputPath := filepath.Join(tempDir, "original.mp3")
	err = os.WriteFile(inputPath, contents, os.ModePerm)
	if err != nil {
		os.RemoveAll(tempDir)
		return "", nil, cerr.Field("input_path", inputPath).
			Wrap(err).Error("Failed to write the original to the working dir")
	}

	return inputPath, func() { os.RemoveAll(tempDir) }, nil
}

func (p JobProcessor) uploadResult(ctx context.Context, jobID string, pipelineResult orchestrator.JobResult) (jobentity.Result, error) {
	stems := map[string]jobentity.StemResult{}
	for name, buffer := range pipelineResult.Stems {
		url, err := p.uploadStem(ctx, jobID, name, buffer)
		if err != nil {
			return jobentity.Result{}, err
		}

		stems[name] = jobentity.StemResult{
			Name:       name,
			URL:        url,
			Confidence: pipelineResult.InstrumentScores[name],
		}
	}

	lyricsSummary, err := p.uploadLyrics(ctx, jobID, pipelineResult.Lyrics)
	if err != nil {
		return jobentity.Result{}, err
	}

	analysis := analysisSummary(pipelineResult)

	return jobentity.Result{
		Stems:               stems,
		DetectedInstruments: pipelineResult.DetectedInstruments,
		InstrumentScores:    pipelineResult.InstrumentScores,
		Analysis:            &analysis,
		Lyrics:              lyricsSummary,
		ProcessingSecs:      pipelineResult.ProcessingSecs,
		Warnings:            pipelineResult.Warnings,
	}, nil
}

func (p JobProcessor) uploadStem(ctx context.Context, jobID string, name string, buffer audio.Buffer) (string, error) {
	contents, err := audio.EncodeWAV(buffer)
	if err != nil {
		return "", cerr.Field("stem", name).
			Wrap(err).Error("Failed to encode stem")
	}

	url := p.pathGenerator.GeneratePath(jobID, fmt.Sprintf("stems/%s.wav", name))

	log.WithFields(log.Fields{
		"stem": name,
		"url":  url,
	}).Info("Uploading stem")

	err = p.fileStore.WriteFile(ctx, url, contents)
	if err != nil {
		return "", cerr.Field("stem", name).
			Wrap(err).Error("Failed to upload stem")
	}

	return url, nil
}

func (p JobProcessor) uploadLyrics(ctx context.Context, jobID string, result lyrics.Result) (*jobentity.LyricsSummary, error) {
	if !result.Available {
		return &jobentity.LyricsSummary{Available: false}, nil
	}

	url := p.pathGenerator.GeneratePath(jobID, "lyrics/lyrics.lrc")
	err := p.fileStore.WriteFile(ctx, url, []byte(lyrics.FormatLRC(result)))
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to upload lyrics")
	}

	return &jobentity.LyricsSummary{
		Available: true,
		Language:  result.Language,
		URL:       url,
	}, nil
}

func analysisSummary(pipelineResult orchestrator.JobResult) jobentity.AnalysisSummary {
	analysis := pipelineResult.Analysis

	alternatives := make([]jobentity.KeyAlternative, 0, len(analysis.Key.Alternatives))
	for _, alternative := range analysis.Key.Alternatives {
		alternatives = append(alternatives, jobentity.KeyAlternative{
			Key:        alternative.Key,
			Scale:      alternative.Scale,
			Confidence: alternative.Confidence,
		})
	}

	return jobentity.AnalysisSummary{
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
	}
}
