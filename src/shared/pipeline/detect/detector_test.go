package detect_test

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/detect"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/features"
)

type stubScorer struct {
	scores map[string]float64
	err    error
}

func (s stubScorer) Score(ctx context.Context, vector features.Vector) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}

	scores := map[string]float64{}
	for label, score := range s.scores {
		scores[label] = score
	}

	return scores, nil
}

func toneBuffer(sampleRate int, durationSecs float64) audio.Buffer {
	samples := make([]float64, int(durationSecs*float64(sampleRate)))
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}

	return audio.Buffer{Samples: [][]float64{samples}, SampleRate: sampleRate}
}

var _ = Describe("Detector", func() {
	var (
		pipelineConfig config.Pipeline
		buffer         audio.Buffer
		ctx            context.Context
	)

	BeforeEach(func() {
		pipelineConfig = config.DefaultPipeline()
		pipelineConfig.SampleRate = 22050
		buffer = toneBuffer(22050, 2)
		ctx = context.Background()
	})

	Describe("Detect", func() {
		It("clamps scores into the unit interval", func() {
			detector := detect.NewDetectorWithScorer(pipelineConfig, stubScorer{
				scores: map[string]float64{"vocals": 1.5, "fx": -0.2},
			})

			result, err := detector.Detect(ctx, buffer)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Scores["vocals"]).To(Equal(1.0))
			Expect(result.Scores["fx"]).To(Equal(0.0))
		})

		It("fills labels the scorer omitted with zero", func() {
			detector := detect.NewDetectorWithScorer(pipelineConfig, stubScorer{
				scores: map[string]float64{"drums": 0.9},
			})

			result, err := detector.Detect(ctx, buffer)
			Expect(err).NotTo(HaveOccurred())
			for _, label := range detect.Labels {
				if label == "drums" {
					continue
				}

				Expect(result.Scores[label]).To(BeZero())
			}
		})

		It("wraps scorer failures", func() {
			detector := detect.NewDetectorWithScorer(pipelineConfig, stubScorer{
				err: errors.New("model exploded"),
			})

			_, err := detector.Detect(ctx, buffer)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DetectedSet", func() {
		It("applies the per-label thresholds", func() {
			detector := detect.NewDetectorWithScorer(pipelineConfig, stubScorer{
				scores: map[string]float64{
					"vocals":  0.51,
					"drums":   0.49,
					"strings": 0.55,
					"synth":   0.71,
				},
			})

			result, err := detector.Detect(ctx, buffer)
			Expect(err).NotTo(HaveOccurred())

			By("vocals clears its 0.5 threshold and drums misses it")
			By("strings misses its raised 0.6 threshold while synth clears 0.7")
			Expect(result.DetectedSet()).To(Equal([]string{"synth", "vocals"}))
		})

		It("never detects a label with no configured threshold", func() {
			result := detect.Result{
				Scores:     map[string]float64{"vocals": 1.0},
				Thresholds: map[string]float64{},
			}

			Expect(result.DetectedSet()).To(BeEmpty())
			Expect(result.Has("vocals")).To(BeFalse())
		})

		It("is empty for the zero result", func() {
			Expect(detect.Empty().DetectedSet()).To(BeEmpty())
		})
	})

	Describe("Heuristic scoring", func() {
		It("detects nothing in silence", func() {
			detector := detect.NewDetectorWithScorer(pipelineConfig, detect.NewHeuristicScorer())

			silent := audio.Buffer{
				Samples:    [][]float64{make([]float64, 22050)},
				SampleRate: 22050,
			}

			result, err := detector.Detect(ctx, silent)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DetectedSet()).To(BeEmpty())
		})
	})
})
