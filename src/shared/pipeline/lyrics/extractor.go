package lyrics

import (
	"context"
	"strings"

	"github.com/apex/log"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics/transcription"
)

// transcriptionSampleRate is the rate the speech model expects.
const transcriptionSampleRate = 16000

// maxConsecutiveRepeats bounds identical back-to-back lines before the
// rest of the run is treated as a stuck transcription.
const maxConsecutiveRepeats = 2

type Word struct {
	Start float64
	End   float64
	Text  string
}

type Line struct {
	Start float64
	End   float64
	Text  string
	Words []Word
}

type Result struct {
	Available bool
	Language  string
	Lines     []Line
}

func Unavailable() Result {
	return Result{Available: false, Lines: []Line{}}
}

type Extractor struct {
	transcriber     transcription.Transcriber
	minDurationSecs float64
}

func NewExtractor(transcriber transcription.Transcriber, minDurationSecs float64) Extractor {
	return Extractor{
		transcriber:     transcriber,
		minDurationSecs: minDurationSecs,
	}
}

// Extract transcribes the vocals stem and filters out known model
// hallucinations. A missing or too-short vocals stem yields an
// unavailable result, not an error.
func (e Extractor) Extract(ctx context.Context, vocals audio.Buffer, languageHint string) (Result, error) {
	if vocals.NumSamples() == 0 || vocals.Duration() < e.minDurationSecs {
		log.WithField("duration", vocals.Duration()).
			Info("Vocals stem too short for transcription, skipping lyrics")
		return Unavailable(), nil
	}

	resampled := audio.Buffer{
		Samples:    [][]float64{vocals.Mono()},
		SampleRate: vocals.SampleRate,
	}.Resampled(transcriptionSampleRate)

	transcript, err := e.transcriber.Transcribe(ctx, resampled, languageHint)
	if err != nil {
		return Unavailable(), cerr.Wrap(err).Error("Transcription failed")
	}

	lines := []Line{}
	dropped := 0
	previousText := ""
	repeats := 0
	for _, segment := range transcript.Segments {
		if isHallucination(segment.Text, transcript.Language) {
			dropped++
			continue
		}

		// stuck transcriptions loop the same line indefinitely,
		// keep at most two consecutive copies
		trimmed := strings.TrimSpace(segment.Text)
		if trimmed == previousText {
			repeats++
		} else {
			previousText = trimmed
			repeats = 0
		}

		if repeats >= maxConsecutiveRepeats {
			dropped++
			continue
		}

		words := make([]Word, 0, len(segment.Words))
		for _, word := range segment.Words {
			words = append(words, Word{
				Start: word.Start,
				End:   word.End,
				Text:  word.Text,
			})
		}

		lines = append(lines, Line{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
			Words: words,
		})
	}

	log.WithFields(log.Fields{
		"language": transcript.Language,
		"lines":    len(lines),
		"dropped":  dropped,
	}).Info("Lyrics extraction finished")

	return Result{
		Available: true,
		Language:  transcript.Language,
		Lines:     lines,
	}, nil
}
