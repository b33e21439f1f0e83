package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/analyze"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/detect"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/preprocess"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/routing"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/separate"
)

// Params are the per-job knobs the orchestrator honors. OnStage, when
// set, is called at every state transition so the job record can track
// progress; the orchestrator itself owns no job storage.
type Params struct {
	Quality           jobentity.QualityMode
	Mode              jobentity.SeparationMode
	TargetInstruments []string
	WithLyrics        bool
	LanguageHint      string
	OnStage           func(stage jobentity.Stage)
}

// JobResult is everything one finished job produced.
type JobResult struct {
	Stems               map[string]audio.Buffer
	DetectedInstruments []string
	InstrumentScores    map[string]float64
	Analysis            analyze.Analysis
	Lyrics              lyrics.Result
	Quality             jobentity.QualityMode
	ProcessingSecs      float64
	Warnings            []string
}

// AnalysisSummary is the separation-free result of AnalyzeOnly.
type AnalysisSummary struct {
	Detection detect.Result
	Analysis  analyze.Analysis
}

type Orchestrator struct {
	preprocessor    preprocess.Preprocessor
	detector        detect.Detector
	analyzer        analyze.Analyzer
	separator       separate.Separator
	lyricsExtractor lyrics.Extractor
}

func NewOrchestrator(
	preprocessor preprocess.Preprocessor,
	detector detect.Detector,
	analyzer analyze.Analyzer,
	separator separate.Separator,
	lyricsExtractor lyrics.Extractor,
) Orchestrator {
	return Orchestrator{
		preprocessor:    preprocessor,
		detector:        detector,
		analyzer:        analyzer,
		separator:       separator,
		lyricsExtractor: lyricsExtractor,
	}
}

// NewAnalysisOrchestrator wires only the stages AnalyzeOnly touches.
// Separation and lyrics are left zero valued and must not be reached.
func NewAnalysisOrchestrator(
	preprocessor preprocess.Preprocessor,
	detector detect.Detector,
	analyzer analyze.Analyzer,
) Orchestrator {
	return Orchestrator{
		preprocessor: preprocessor,
		detector:     detector,
		analyzer:     analyzer,
	}
}

// Process runs the full pipeline over one input file. Preprocessing and
// separation errors are fatal. Detection and analysis failures are not:
// routing falls back to the safe grouped-only plan. A refinement failure
// after a successful primary stage downgrades to a warning.
func (o Orchestrator) Process(ctx context.Context, inputPath string, params Params) (JobResult, error) {
	startTime := time.Now()
	advance := stageCallback(params)

	advance(jobentity.PreprocessingStage)
	buffer, err := o.preprocessor.LoadAndValidate(ctx, inputPath)
	if err != nil {
		advance(jobentity.FailedStage)
		return JobResult{}, cerr.Field("input_path", inputPath).
			Wrap(err).Error("Failed to preprocess input")
	}

	advance(jobentity.AnalyzingStage)
	detection, analysis, warnings := o.detectAndAnalyze(ctx, buffer)

	advance(jobentity.RoutingStage)
	quality := resolveQuality(params.Quality, buffer, detection)
	plan := routing.Build(params.Mode, detection.DetectedSet(), params.TargetInstruments)

	advance(jobentity.SeparatingStage)
	stems, separationWarnings, err := o.separator.Separate(
		ctx, buffer, separate.ParamsForQuality(quality))
	if err != nil {
		advance(jobentity.FailedStage)
		return JobResult{}, cerr.Wrap(err).Error("Primary separation failed")
	}
	warnings = append(warnings, separationWarnings...)

	if plan.HasRefinement() {
		advance(jobentity.RefiningStage)
		stems, warnings, err = o.refine(ctx, plan, quality, stems, warnings)
		if err != nil {
			advance(jobentity.FailedStage)
			return JobResult{}, err
		}
	}

	advance(jobentity.FinalizingStage)

	if plan.MergeInstrumental {
		stems = mergeInstrumental(stems)
	}

	stems, warnings = selectTargets(stems, plan.TargetStems, warnings)

	lyricsResult := lyrics.Unavailable()
	if params.WithLyrics {
		lyricsResult, warnings = o.extractLyrics(ctx, stems, params.LanguageHint, warnings)
	}

	advance(jobentity.CompletedStage)

	result := JobResult{
		Stems:               stems,
		DetectedInstruments: detection.DetectedSet(),
		InstrumentScores:    detection.Scores,
		Analysis:            analysis,
		Lyrics:              lyricsResult,
		Quality:             quality,
		ProcessingSecs:      time.Since(startTime).Seconds(),
		Warnings:            warnings,
	}

	log.WithFields(log.Fields{
		"stems":           len(result.Stems),
		"warnings":        len(result.Warnings),
		"processing_secs": result.ProcessingSecs,
	}).Info("Job pipeline finished")

	return result, nil
}

// AnalyzeOnly runs preprocessing, detection and music analysis without
// touching the separation engine.
func (o Orchestrator) AnalyzeOnly(ctx context.Context, inputPath string) (AnalysisSummary, error) {
	buffer, err := o.preprocessor.LoadAndValidate(ctx, inputPath)
	if err != nil {
		return AnalysisSummary{}, cerr.Field("input_path", inputPath).
			Wrap(err).Error("Failed to preprocess input")
	}

	detection, analysis, _ := o.detectAndAnalyze(ctx, buffer)

	return AnalysisSummary{
		Detection: detection,
		Analysis:  analysis,
	}, nil
}

// detectAndAnalyze runs the detector and the analyzer concurrently.
// Both only read the immutable buffer and write to their own results,
// so no locking is needed beyond the join.
func (o Orchestrator) detectAndAnalyze(ctx context.Context, buffer audio.Buffer) (detect.Result, analyze.Analysis, []string) {
	var (
		detection detect.Result
		detectErr error
		analysis  analyze.Analysis
	)

	waitGroup := sync.WaitGroup{}
	waitGroup.Add(2)

	go func() {
		defer waitGroup.Done()
		detection, detectErr = o.detector.Detect(ctx, buffer)
	}()

	go func() {
		defer waitGroup.Done()
		analysis = o.analyzer.Analyze(buffer)
	}()

	waitGroup.Wait()

	warnings := []string{}
	if detectErr != nil {
		cerr.Log(cerr.Wrap(detectErr).Error("Instrument detection failed, routing without refinement"))
		detection = detect.Empty()
		warnings = append(warnings, "instrument detection failed, refinement was skipped")
	}

	return detection, analysis, warnings
}

func (o Orchestrator) refine(ctx context.Context, plan routing.Plan, quality jobentity.QualityMode, stems map[string]audio.Buffer, warnings []string) (map[string]audio.Buffer, []string, error) {
	for _, stage := range plan.Stages {
		if stage.Kind != routing.RefinementStage {
			continue
		}

		input, ok := stems[stage.InputStem]
		if !ok {
			return nil, nil, cerr.Field("input_stem", stage.InputStem).
				Error("Refinement input stem missing from primary output")
		}

		params := separate.ParamsForQuality(quality)
		params.Model = separate.RefinementModel

		refined, refineWarnings, err := o.separator.Separate(ctx, input, params)
		if err != nil {
			cerr.Log(cerr.Wrap(err).Error("Refinement stage failed, keeping primary stems"))
			warnings = append(warnings, "refinement stage failed, only grouped stems are available")
			continue
		}
		warnings = append(warnings, refineWarnings...)

		for _, name := range stage.Outputs {
			stem, ok := refined[name]
			if !ok {
				warnings = append(warnings, fmt.Sprintf("engine could not isolate %s", name))
				continue
			}

			stems[name] = stem
		}
	}

	return stems, warnings, nil
}

// mergeInstrumental mixes everything but vocals into a single stem.
func mergeInstrumental(stems map[string]audio.Buffer) map[string]audio.Buffer {
	backing := []audio.Buffer{}
	for _, name := range []string{"drums", "bass", "other"} {
		if stem, ok := stems[name]; ok {
			backing = append(backing, stem)
		}
	}

	merged := map[string]audio.Buffer{}
	if vocals, ok := stems["vocals"]; ok {
		merged["vocals"] = vocals
	}
	if len(backing) > 0 {
		merged[routing.InstrumentalStem] = audio.Mixdown(backing...)
	}

	return merged
}

// selectTargets keeps the planned target stems that were actually
// produced and records a warning for each one that was not.
func selectTargets(stems map[string]audio.Buffer, targets []string, warnings []string) (map[string]audio.Buffer, []string) {
	selected := map[string]audio.Buffer{}
	for _, name := range targets {
		stem, ok := stems[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("engine could not isolate %s", name))
			continue
		}

		selected[name] = stem
	}

	return selected, warnings
}

func (o Orchestrator) extractLyrics(ctx context.Context, stems map[string]audio.Buffer, languageHint string, warnings []string) (lyrics.Result, []string) {
	if languageHint == "" {
		languageHint = "auto"
	}

	result, err := o.lyricsExtractor.Extract(ctx, stems["vocals"], languageHint)
	if err != nil {
		cerr.Log(cerr.Wrap(err).Error("Lyrics extraction failed, continuing without lyrics"))
		return lyrics.Unavailable(), append(warnings, "lyrics transcription failed")
	}

	return result, warnings
}

// resolveQuality turns the auto tier into a concrete one: dense
// arrangements and long material earn the slower preset.
func resolveQuality(quality jobentity.QualityMode, buffer audio.Buffer, detection detect.Result) jobentity.QualityMode {
	if quality != jobentity.AutoQuality {
		return quality
	}

	if len(detection.DetectedSet()) >= 5 || buffer.Duration() > 300 {
		return jobentity.BalancedQuality
	}

	return jobentity.FastQuality
}

func stageCallback(params Params) func(jobentity.Stage) {
	if params.OnStage == nil {
		return func(jobentity.Stage) {}
	}

	return params.OnStage
}
