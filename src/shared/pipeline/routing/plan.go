package routing

import (
	"sort"

	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
)

// GroupedStems are the outputs of the primary separation stage.
var GroupedStems = []string{"vocals", "drums", "bass", "other"}

// RefinableLabels are the detectable instruments not covered by the
// grouped stems. They can only be produced by a refinement pass over
// the "other" stem.
var RefinableLabels = []string{"guitar", "piano", "strings", "synth", "brass", "woodwinds", "fx"}

// InstrumentalStem is the post-merge stem karaoke mode produces from
// drums, bass and other.
const InstrumentalStem = "instrumental"

type StageKind string

const (
	PrimaryStage    StageKind = "primary"
	RefinementStage StageKind = "refinement"
)

// Stage is one separation engine invocation. InputStem is empty for the
// primary stage, which consumes the original mix.
type Stage struct {
	Kind      StageKind
	InputStem string
	Outputs   []string
}

// Plan is built once per job, immediately before execution, and
// consumed once.
type Plan struct {
	Stages []Stage

	// TargetStems is the set the finished job should contain, already
	// intersected with any explicit instrument request.
	TargetStems []string

	// MergeInstrumental folds drums, bass and other into a single
	// instrumental stem after separation. Karaoke only.
	MergeInstrumental bool
}

func (p Plan) HasRefinement() bool {
	for _, stage := range p.Stages {
		if stage.Kind == RefinementStage {
			return true
		}
	}

	return false
}

// Build derives the stage plan from the requested mode, the detected
// instrument set, and an optional explicit target list. The primary
// grouped stage is always present. A refinement stage exists exactly
// when the mode is per_instrument and at least one refinable instrument
// was detected and survives the explicit filter.
func Build(mode jobentity.SeparationMode, detected []string, explicit []string) Plan {
	stages := []Stage{{
		Kind:    PrimaryStage,
		Outputs: append([]string{}, GroupedStems...),
	}}

	if mode == jobentity.PerInstrumentMode {
		targets := filterBy(intersect(detected, RefinableLabels), explicit)
		if len(targets) > 0 {
			stages = append(stages, Stage{
				Kind:      RefinementStage,
				InputStem: "other",
				Outputs:   targets,
			})
		}
	}

	if mode == jobentity.KaraokeMode {
		return Plan{
			Stages:            stages,
			TargetStems:       []string{"vocals", InstrumentalStem},
			MergeInstrumental: true,
		}
	}

	targets := []string{}
	for _, stage := range stages {
		targets = append(targets, stage.Outputs...)
	}

	return Plan{
		Stages:      stages,
		TargetStems: filterBy(targets, explicit),
	}
}

func intersect(values []string, allowed []string) []string {
	allowedSet := map[string]bool{}
	for _, value := range allowed {
		allowedSet[value] = true
	}

	kept := []string{}
	for _, value := range values {
		if allowedSet[value] {
			kept = append(kept, value)
		}
	}

	sort.Strings(kept)
	return kept
}

// filterBy intersects with the explicit request when one was given,
// otherwise passes everything through.
func filterBy(values []string, explicit []string) []string {
	if len(explicit) == 0 {
		sorted := append([]string{}, values...)
		sort.Strings(sorted)
		return sorted
	}

	return intersect(values, explicit)
}
