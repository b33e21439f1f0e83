package jobentity

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

type QualityMode string

const (
	// AutoQuality lets the pipeline pick a tier from the material.
	AutoQuality     QualityMode = "auto"
	DraftQuality    QualityMode = "draft"
	FastQuality     QualityMode = "fast"
	BalancedQuality QualityMode = "balanced"
	StudioQuality   QualityMode = "studio"
)

var qualityModes = map[QualityMode]bool{
	AutoQuality:     true,
	DraftQuality:    true,
	FastQuality:     true,
	BalancedQuality: true,
	StudioQuality:   true,
}

type SeparationMode string

const (
	GroupedMode       SeparationMode = "grouped"
	PerInstrumentMode SeparationMode = "per_instrument"
	KaraokeMode       SeparationMode = "karaoke"
)

var separationModes = map[SeparationMode]bool{
	GroupedMode:       true,
	PerInstrumentMode: true,
	KaraokeMode:       true,
}

type Status string

const (
	QueuedStatus     Status = "queued"
	ProcessingStatus Status = "processing"
	CompletedStatus  Status = "completed"
	FailedStatus     Status = "failed"
)

// Stage is the orchestrator's position inside the processing status.
type Stage string

const (
	QueuedStage        Stage = "queued"
	PreprocessingStage Stage = "preprocessing"
	AnalyzingStage     Stage = "analyzing"
	RoutingStage       Stage = "routing"
	SeparatingStage    Stage = "separating"
	RefiningStage      Stage = "refining"
	FinalizingStage    Stage = "finalizing"
	CompletedStage     Stage = "completed"
	FailedStage        Stage = "failed"
)

type Params struct {
	Quality           QualityMode    `json:"quality"`
	Mode              SeparationMode `json:"mode"`
	TargetInstruments []string       `json:"target_instruments,omitempty"`
	WithLyrics        bool           `json:"with_lyrics"`
	LanguageHint      string         `json:"language_hint,omitempty"`
}

func (p Params) Validate() error {
	if !qualityModes[p.Quality] {
		return errors.Newf("Unrecognized quality mode: %s", p.Quality)
	}

	if !separationModes[p.Mode] {
		return errors.Newf("Unrecognized separation mode: %s", p.Mode)
	}

	return nil
}

type Job struct {
	ID               string     `json:"id"`
	SourceURL        string     `json:"source_url"`
	SavedOriginalURL string     `json:"saved_original_url,omitempty"`
	Params           Params     `json:"params"`
	Status           Status     `json:"status"`
	Stage            Stage      `json:"stage"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ErrorDetail      string     `json:"error_detail,omitempty"`
	Result           *Result    `json:"result,omitempty"`
}

func NewJob(sourceURL string, params Params) Job {
	return Job{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Params:    params,
		Status:    QueuedStatus,
		Stage:     QueuedStage,
		CreatedAt: time.Now().UTC(),
	}
}

func (j Job) IsTerminal() bool {
	return j.Status == CompletedStatus || j.Status == FailedStatus
}

func (j Job) ToMap() (map[string]any, error) {
	jsonBytes, err := json.Marshal(j)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to marshal job to JSON")
	}

	asMap := map[string]any{}
	err = json.Unmarshal(jsonBytes, &asMap)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to unmarshal job JSON into a map")
	}

	return asMap, nil
}

func (j *Job) FromMap(contents map[string]any) error {
	jsonBytes, err := json.Marshal(contents)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal map to JSON")
	}

	err = json.Unmarshal(jsonBytes, j)
	if err != nil {
		return errors.Wrap(err, "Failed to unmarshal JSON into a job")
	}

	return nil
}
