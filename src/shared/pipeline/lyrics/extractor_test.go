package lyrics_test

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics/transcription"
)

type stubTranscriber struct {
	transcript transcription.Transcript
	err        error

	receivedHint   string
	receivedVocals audio.Buffer
}

func (t *stubTranscriber) Transcribe(ctx context.Context, vocals audio.Buffer, languageHint string) (transcription.Transcript, error) {
	t.receivedHint = languageHint
	t.receivedVocals = vocals

	if t.err != nil {
		return transcription.Transcript{}, t.err
	}

	return t.transcript, nil
}

func vocalsBuffer(durationSecs float64) audio.Buffer {
	samples := make([]float64, int(durationSecs*44100))
	for i := range samples {
		samples[i] = 0.4 * math.Sin(2*math.Pi*220*float64(i)/44100)
	}

	return audio.Buffer{Samples: [][]float64{samples}, SampleRate: 44100}
}

var _ = Describe("Extractor", func() {
	var (
		transcriber *stubTranscriber
		extractor   lyrics.Extractor
		ctx         context.Context
	)

	BeforeEach(func() {
		transcriber = &stubTranscriber{
			transcript: transcription.Transcript{
				Language: "en",
				Segments: []transcription.Segment{
					{
						Start: 1.0,
						End:   3.5,
						Text:  "Hello from the other side",
						Words: []transcription.Word{
							{Start: 1.0, End: 1.4, Text: "Hello"},
							{Start: 1.4, End: 1.8, Text: "from"},
						},
					},
				},
			},
		}
		extractor = lyrics.NewExtractor(transcriber, 3)
		ctx = context.Background()
	})

	Describe("Extract", func() {
		It("returns the transcribed lines with word timings", func() {
			result, err := extractor.Extract(ctx, vocalsBuffer(10), "en")
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Available).To(BeTrue())
			Expect(result.Language).To(Equal("en"))
			Expect(result.Lines).To(HaveLen(1))
			Expect(result.Lines[0].Text).To(Equal("Hello from the other side"))
			Expect(result.Lines[0].Words).To(HaveLen(2))
			Expect(result.Lines[0].Words[0].Text).To(Equal("Hello"))
		})

		It("hands the language hint through to the transcriber", func() {
			_, err := extractor.Extract(ctx, vocalsBuffer(10), "de")
			Expect(err).NotTo(HaveOccurred())
			Expect(transcriber.receivedHint).To(Equal("de"))
		})

		It("downsamples the vocals to the speech model rate", func() {
			_, err := extractor.Extract(ctx, vocalsBuffer(10), "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(transcriber.receivedVocals.SampleRate).To(Equal(16000))
			Expect(transcriber.receivedVocals.Channels()).To(Equal(1))
		})

		It("is unavailable for a vocals stem shorter than the floor", func() {
			result, err := extractor.Extract(ctx, vocalsBuffer(2), "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Available).To(BeFalse())
			Expect(transcriber.receivedHint).To(BeEmpty())
		})

		It("is unavailable for an empty vocals stem", func() {
			result, err := extractor.Extract(ctx, audio.Buffer{}, "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Available).To(BeFalse())
		})

		It("fails when the transcriber fails", func() {
			transcriber.err = errors.New("service unreachable")

			result, err := extractor.Extract(ctx, vocalsBuffer(10), "en")
			Expect(err).To(HaveOccurred())
			Expect(result.Available).To(BeFalse())
		})
	})

	Describe("Hallucination filtering", func() {
		BeforeEach(func() {
			transcriber.transcript.Segments = append(transcriber.transcript.Segments,
				transcription.Segment{Start: 4, End: 5, Text: "Thanks for watching!"},
				transcription.Segment{Start: 5, End: 6, Text: "   "},
				transcription.Segment{Start: 6, End: 7, Text: "Subtitles by the community"},
			)
		})

		It("drops known boilerplate and blank lines", func() {
			result, err := extractor.Extract(ctx, vocalsBuffer(10), "en")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Lines).To(HaveLen(1))
			Expect(result.Lines[0].Text).To(Equal("Hello from the other side"))
		})

		It("collapses runs of the same stuck line", func() {
			for i := 0; i < 6; i++ {
				transcriber.transcript.Segments = append(transcriber.transcript.Segments,
					transcription.Segment{
						Start: 8 + float64(i),
						End:   9 + float64(i),
						Text:  "oh oh oh",
					})
			}

			result, err := extractor.Extract(ctx, vocalsBuffer(20), "en")
			Expect(err).NotTo(HaveOccurred())

			stuckLines := 0
			for _, line := range result.Lines {
				if line.Text == "oh oh oh" {
					stuckLines++
				}
			}
			Expect(stuckLines).To(Equal(2))
		})

		It("applies the english boilerplate list to every language", func() {
			transcriber.transcript.Language = "de"

			result, err := extractor.Extract(ctx, vocalsBuffer(10), "de")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Lines).To(HaveLen(1))
		})
	})
})

var _ = Describe("Formatting", func() {
	var result lyrics.Result

	BeforeEach(func() {
		result = lyrics.Result{
			Available: true,
			Language:  "en",
			Lines: []lyrics.Line{
				{Start: 0.5, End: 2.25, Text: " First line "},
				{Start: 65.25, End: 67.75, Text: "Second line"},
			},
		}
	})

	Describe("FormatLRC", func() {
		It("renders minute-second tags", func() {
			Expect(lyrics.FormatLRC(result)).To(Equal("[00:00.50]First line\n[01:05.25]Second line\n"))
		})

		It("is empty for unavailable lyrics", func() {
			Expect(lyrics.FormatLRC(lyrics.Unavailable())).To(BeEmpty())
		})
	})

	Describe("FormatSRT", func() {
		It("renders numbered cues with millisecond ranges", func() {
			Expect(lyrics.FormatSRT(result)).To(Equal(
				"1\n00:00:00,500 --> 00:00:02,250\nFirst line\n\n" +
					"2\n00:01:05,250 --> 00:01:07,750\nSecond line\n\n"))
		})

		It("is empty for unavailable lyrics", func() {
			Expect(lyrics.FormatSRT(lyrics.Unavailable())).To(BeEmpty())
		})
	})
})
