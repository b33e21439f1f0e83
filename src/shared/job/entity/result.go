package jobentity

// StemResult is one produced stem after it was exported and uploaded.
type StemResult struct {
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	Confidence float64 `json:"confidence"`
}

type TempoSummary struct {
	BPM           float64   `json:"bpm"`
	Confidence    float64   `json:"confidence"`
	BeatPositions []float64 `json:"beat_positions,omitempty"`
}

type KeyAlternative struct {
	Key        string  `json:"key"`
	Scale      string  `json:"scale"`
	Confidence float64 `json:"confidence"`
}

type KeySummary struct {
	Key          string           `json:"key"`
	Scale        string           `json:"scale"`
	Confidence   float64          `json:"confidence"`
	Camelot      string           `json:"camelot,omitempty"`
	Alternatives []KeyAlternative `json:"alternatives,omitempty"`
}

type AnalysisSummary struct {
	Tempo        TempoSummary `json:"tempo"`
	Key          KeySummary   `json:"key"`
	DurationSecs float64      `json:"duration_seconds"`
}

type LyricsSummary struct {
	Available bool   `json:"available"`
	Language  string `json:"language,omitempty"`
	URL       string `json:"url,omitempty"`
}

type Result struct {
	Stems               map[string]StemResult `json:"stems"`
	DetectedInstruments []string              `json:"detected_instruments"`
	InstrumentScores    map[string]float64    `json:"instrument_scores"`
	Analysis            *AnalysisSummary      `json:"analysis,omitempty"`
	Lyrics              *LyricsSummary        `json:"lyrics,omitempty"`
	ProcessingSecs      float64               `json:"processing_seconds"`
	Warnings            []string              `json:"warnings,omitempty"`
}
