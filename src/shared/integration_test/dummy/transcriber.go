package dummy

import (
	"context"

	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics/transcription"
)

var _ transcription.Transcriber = &Transcriber{}

func NewDummyTranscriber() *Transcriber {
	return &Transcriber{
		Transcript: transcription.Transcript{
			Language: "en",
			Segments: []transcription.Segment{
				{
					Start: 0.5,
					End:   2.0,
					Text:  "dummy lyrics line",
					Words: []transcription.Word{
						{Start: 0.5, End: 1.0, Text: "dummy"},
						{Start: 1.0, End: 1.5, Text: "lyrics"},
						{Start: 1.5, End: 2.0, Text: "line"},
					},
				},
			},
		},
	}
}

type Transcriber struct {
	Transcript  transcription.Transcript
	Unavailable bool

	ReceivedHints []string
}

func (t *Transcriber) Transcribe(ctx context.Context, vocals audio.Buffer, languageHint string) (transcription.Transcript, error) {
	if t.Unavailable {
		return transcription.Transcript{}, NetworkFailure
	}

	t.ReceivedHints = append(t.ReceivedHints, languageHint)
	return t.Transcript, nil
}
