package process_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/harmonix-audio/harmonix-be/src/shared/config"
	"github.com/harmonix-audio/harmonix-be/src/shared/config/prod"
	"github.com/harmonix-audio/harmonix-be/src/shared/integration_test/dummy"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/analyze"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/audio"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/detect"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/features"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/lyrics"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/orchestrator"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/preprocess"
	"github.com/harmonix-audio/harmonix-be/src/shared/pipeline/separate"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_message"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/process"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/lib/storagepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubScorer struct {
	scores map[string]float64
}

func (s stubScorer) Score(ctx context.Context, vector features.Vector) (map[string]float64, error) {
	return s.scores, nil
}

func sineBuffer(freq float64, durationSecs float64, sampleRate int) audio.Buffer {
	numSamples := int(durationSecs * float64(sampleRate))
	left := make([]float64, numSamples)
	right := make([]float64, numSamples)

	for i := 0; i < numSamples; i++ {
		sample := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		left[i] = sample
		right[i] = sample
	}

	return audio.Buffer{
		Samples:    [][]float64{left, right},
		SampleRate: sampleRate,
	}
}

var _ = Describe("Process handler", func() {
	var (
		bucketName string

		dummyJobStore  *dummy.JobStore
		dummyFileStore *dummy.FileStore
		dummyEngine    *dummy.Engine

		handler process.JobHandler

		message []byte
		jobID   string

		savedOriginalURL string
		jobParams        jobentity.Params
	)

	BeforeEach(func() {
		By("Assigning all the variables data", func() {
			bucketName = "bucket-head"

			jobParams = jobentity.Params{
				Quality:    jobentity.FastQuality,
				Mode:       jobentity.GroupedMode,
				WithLyrics: true,
			}
		})

		By("Instantiating all dummies", func() {
			dummyJobStore = dummy.NewDummyJobStore()
			dummyFileStore = dummy.NewDummyFileStore()
			dummyEngine = dummy.NewDummyEngine()
		})

		By("Setting up the dummy job store and file store data", func() {
			job := jobentity.NewJob("https://youtube.com/watch?v=cool-jamz", jobParams)
			job.Status = jobentity.ProcessingStatus
			jobID = job.ID

			savedOriginalURL = fmt.Sprintf("%s/%s/%s/original/original.mp3",
				prod.GOOGLE_STORAGE_HOST, bucketName, jobID)
			job.SavedOriginalURL = savedOriginalURL

			err := dummyJobStore.CreateJob(context.Background(), job)
			Expect(err).NotTo(HaveOccurred())

			err = dummyFileStore.WriteFile(context.Background(), savedOriginalURL, []byte("cool_jamz"))
			Expect(err).NotTo(HaveOccurred())
		})

		By("Instantiating the handler", func() {
			workingDirPath := GinkgoT().TempDir()
			err := os.MkdirAll(filepath.Join(workingDirPath, "tmp"), os.ModePerm)
			Expect(err).NotTo(HaveOccurred())

			pipelineConfig := config.DefaultPipeline()
			pipelineConfig.FFmpegBinPath = "/somewhere/ffmpeg"
			pipelineConfig.FFprobeBinPath = "/somewhere/ffprobe"

			audioExecutor := dummy.NewDummyAudioExecutor(sineBuffer(440, 6, pipelineConfig.SampleRate))

			scorer := stubScorer{scores: map[string]float64{
				"vocals": 0.9,
				"drums":  0.8,
				"bass":   0.7,
				"guitar": 0.2,
			}}

			pipeline := orchestrator.NewOrchestrator(
				preprocess.New(pipelineConfig, audioExecutor),
				detect.NewDetectorWithScorer(pipelineConfig, scorer),
				analyze.NewAnalyzer(pipelineConfig),
				separate.NewSeparator(dummyEngine, separate.DeviceCPU),
				lyrics.NewExtractor(dummy.NewDummyTranscriber(), pipelineConfig.MinVocalsDurationSecs),
			)

			pathGenerator := storagepath.Generator{
				Host:   prod.GOOGLE_STORAGE_HOST,
				Bucket: bucketName,
			}

			processor, err := process.NewJobProcessor(
				pipeline,
				dummyJobStore,
				dummyFileStore,
				pathGenerator,
				workingDirPath,
			)
			Expect(err).NotTo(HaveOccurred())

			handler = process.NewJobHandler(processor)
		})
	})

	Describe("Well formed message", func() {
		BeforeEach(func() {
			job := process.JobParams{
				JobIdentifier: job_message.JobIdentifier{
					JobID: jobID,
				},
			}

			var err error
			message, err = json.Marshal(job)
			Expect(err).NotTo(HaveOccurred())
		})

		Describe("Happy path", func() {
			var err error
			var params process.JobParams

			BeforeEach(func() {
				params, err = handler.HandleProcessJob(message)
			})

			It("doesn't return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns a stem result for every grouped stem", func() {
				Expect(params.Result.Stems).To(HaveLen(4))

				for _, name := range []string{"vocals", "drums", "bass", "other"} {
					stem, ok := params.Result.Stems[name]
					Expect(ok).To(BeTrue(), "missing stem %s", name)
					Expect(stem.Name).To(Equal(name))

					expectedURL := fmt.Sprintf("%s/%s/%s/stems/%s.wav",
						prod.GOOGLE_STORAGE_HOST, bucketName, jobID, name)
					Expect(stem.URL).To(Equal(expectedURL))

					contents, err := dummyFileStore.GetFile(context.Background(), stem.URL)
					Expect(err).NotTo(HaveOccurred())
					Expect(contents).NotTo(BeEmpty())
				}
			})

			It("reports the detected instruments", func() {
				Expect(params.Result.DetectedInstruments).To(Equal([]string{"bass", "drums", "vocals"}))
			})

			It("attaches the music analysis", func() {
				Expect(params.Result.Analysis).NotTo(BeNil())
				Expect(params.Result.Analysis.DurationSecs).To(BeNumerically("~", 6, 0.1))
			})

			It("uploads the lyrics", func() {
				Expect(params.Result.Lyrics).NotTo(BeNil())
				Expect(params.Result.Lyrics.Available).To(BeTrue())

				contents, err := dummyFileStore.GetFile(context.Background(), params.Result.Lyrics.URL)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(contents)).To(ContainSubstring("dummy lyrics line"))
			})

			It("records the stage progression on the job", func() {
				job, err := dummyJobStore.GetJob(context.Background(), jobID)
				Expect(err).NotTo(HaveOccurred())
				Expect(job.Stage).To(Equal(jobentity.CompletedStage))
			})
		})

		Describe("Job has no saved original", func() {
			BeforeEach(func() {
				updater := func(job jobentity.Job) (jobentity.Job, error) {
					job.SavedOriginalURL = ""
					return job, nil
				}

				err := dummyJobStore.UpdateJob(context.Background(), jobID, updater)
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns an error", func() {
				_, err := handler.HandleProcessJob(message)
				Expect(err).To(HaveOccurred())
			})
		})

		Describe("Separation fails", func() {
			BeforeEach(func() {
				dummyEngine.Broken = true
			})

			It("returns an error", func() {
				_, err := handler.HandleProcessJob(message)
				Expect(err).To(HaveOccurred())
			})

			It("records the failed stage on the job", func() {
				_, _ = handler.HandleProcessJob(message)

				job, err := dummyJobStore.GetJob(context.Background(), jobID)
				Expect(err).NotTo(HaveOccurred())
				Expect(job.Stage).To(Equal(jobentity.FailedStage))
			})
		})
	})

	Describe("Poorly formed message", func() {
		BeforeEach(func() {
			message = []byte("[]")
		})

		It("returns an error", func() {
			_, err := handler.HandleProcessJob(message)
			Expect(err).To(HaveOccurred())
		})
	})
})
