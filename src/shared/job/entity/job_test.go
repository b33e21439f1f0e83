package jobentity_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
)

var _ = Describe("Job", func() {
	var params jobentity.Params

	BeforeEach(func() {
		params = jobentity.Params{
			Quality: jobentity.BalancedQuality,
			Mode:    jobentity.GroupedMode,
		}
	})

	Describe("NewJob", func() {
		var job jobentity.Job

		BeforeEach(func() {
			job = jobentity.NewJob("https://example.com/song.mp3", params)
		})

		It("starts queued with a fresh ID", func() {
			Expect(job.ID).NotTo(BeEmpty())
			Expect(job.Status).To(Equal(jobentity.QueuedStatus))
			Expect(job.Stage).To(Equal(jobentity.QueuedStage))
			Expect(job.SourceURL).To(Equal("https://example.com/song.mp3"))
			Expect(job.CompletedAt).To(BeNil())
			Expect(job.Result).To(BeNil())
		})

		It("assigns distinct IDs to distinct jobs", func() {
			other := jobentity.NewJob("https://example.com/song.mp3", params)
			Expect(other.ID).NotTo(Equal(job.ID))
		})
	})

	Describe("IsTerminal", func() {
		It("is true only for completed and failed jobs", func() {
			job := jobentity.NewJob("url", params)

			Expect(job.IsTerminal()).To(BeFalse())

			job.Status = jobentity.ProcessingStatus
			Expect(job.IsTerminal()).To(BeFalse())

			job.Status = jobentity.CompletedStatus
			Expect(job.IsTerminal()).To(BeTrue())

			job.Status = jobentity.FailedStatus
			Expect(job.IsTerminal()).To(BeTrue())
		})
	})

	Describe("Params validation", func() {
		It("accepts every known quality and mode pairing", func() {
			for _, quality := range []jobentity.QualityMode{
				jobentity.AutoQuality, jobentity.DraftQuality, jobentity.FastQuality,
				jobentity.BalancedQuality, jobentity.StudioQuality,
			} {
				for _, mode := range []jobentity.SeparationMode{
					jobentity.GroupedMode, jobentity.PerInstrumentMode, jobentity.KaraokeMode,
				} {
					Expect(jobentity.Params{Quality: quality, Mode: mode}.Validate()).To(Succeed())
				}
			}
		})

		It("rejects an unknown quality mode", func() {
			params.Quality = "lossless"
			Expect(params.Validate()).NotTo(Succeed())
		})

		It("rejects an unknown separation mode", func() {
			params.Mode = "stems_only"
			Expect(params.Validate()).NotTo(Succeed())
		})

		It("rejects empty params", func() {
			Expect(jobentity.Params{}.Validate()).NotTo(Succeed())
		})
	})

	Describe("Map conversion", func() {
		It("roundtrips a completed job through the map form", func() {
			completedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

			job := jobentity.NewJob("https://example.com/song.mp3", params)
			job.Status = jobentity.CompletedStatus
			job.Stage = jobentity.CompletedStage
			job.CompletedAt = &completedAt
			job.Result = &jobentity.Result{
				Stems: map[string]jobentity.StemResult{
					"vocals": {Name: "vocals", URL: "https://storage/vocals.wav", Confidence: 0.9},
				},
				DetectedInstruments: []string{"vocals"},
				InstrumentScores:    map[string]float64{"vocals": 0.9},
				Analysis: &jobentity.AnalysisSummary{
					Tempo:        jobentity.TempoSummary{BPM: 120, Confidence: 0.9},
					Key:          jobentity.KeySummary{Key: "C", Scale: "major", Camelot: "8B"},
					DurationSecs: 180,
				},
				ProcessingSecs: 42.5,
			}

			asMap, err := job.ToMap()
			Expect(err).NotTo(HaveOccurred())
			Expect(asMap["id"]).To(Equal(job.ID))

			restored := jobentity.Job{}
			Expect(restored.FromMap(asMap)).To(Succeed())

			Expect(restored.ID).To(Equal(job.ID))
			Expect(restored.Status).To(Equal(jobentity.CompletedStatus))
			Expect(restored.CompletedAt).NotTo(BeNil())
			Expect(restored.CompletedAt.Equal(completedAt)).To(BeTrue())
			Expect(restored.Result).NotTo(BeNil())
			Expect(restored.Result.Stems["vocals"].URL).To(Equal("https://storage/vocals.wav"))
			Expect(restored.Result.Analysis.Tempo.BPM).To(Equal(120.0))
		})
	})
})
