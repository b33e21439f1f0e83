package transfer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harmonix-audio/harmonix-be/src/shared/config/prod"
	"github.com/harmonix-audio/harmonix-be/src/shared/integration_test/dummy"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_message"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/transfer"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/transfer/download"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/lib/storagepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Transfer handler", func() {
	var (
		bucketName string
		sourceURL  string
		audioData  []byte

		dummyJobStore   *dummy.JobStore
		dummyFileStore  *dummy.FileStore
		youtubeDLRunner *dummy.YoutubeDLExecutor

		handler transfer.JobHandler

		message []byte
		jobID   string
	)

	BeforeEach(func() {
		By("Assigning all the variables data", func() {
			bucketName = "bucket-head"
			sourceURL = "https://youtube.com/watch?v=cool-jamz"
			audioData = []byte("cool_jamz")
		})

		By("Instantiating all dummies", func() {
			dummyJobStore = dummy.NewDummyJobStore()
			dummyFileStore = dummy.NewDummyFileStore()
			youtubeDLRunner = dummy.NewDummyYoutubeDLExecutor()
			youtubeDLRunner.AddURL(sourceURL, audioData)
		})

		By("Setting up the dummy job store data", func() {
			job := jobentity.NewJob(sourceURL, jobentity.Params{
				Quality: jobentity.FastQuality,
				Mode:    jobentity.GroupedMode,
			})
			jobID = job.ID

			err := dummyJobStore.CreateJob(context.Background(), job)
			Expect(err).NotTo(HaveOccurred())
		})

		By("Instantiating the handler", func() {
			workingDirPath := GinkgoT().TempDir()
			err := os.MkdirAll(filepath.Join(workingDirPath, "tmp"), os.ModePerm)
			Expect(err).NotTo(HaveOccurred())

			youtubedler := download.NewYoutubeDLer("/somewhere/yt-dlp", youtubeDLRunner)
			genericdler := download.NewGenericDLer()
			selectdler := download.NewSelectDLer(youtubedler, genericdler)

			pathGenerator := storagepath.Generator{
				Host:   prod.GOOGLE_STORAGE_HOST,
				Bucket: bucketName,
			}

			transferrer, err := transfer.NewJobTransferrer(
				selectdler,
				dummyJobStore,
				dummyFileStore,
				pathGenerator,
				workingDirPath,
			)
			Expect(err).NotTo(HaveOccurred())

			handler = transfer.NewJobHandler(transferrer, dummyJobStore)
		})
	})

	Describe("Well formed message", func() {
		BeforeEach(func() {
			job := transfer.JobParams{
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
			var jobParams transfer.JobParams
			var expectedSavedURL string

			BeforeEach(func() {
				expectedSavedURL = fmt.Sprintf("%s/%s/%s/original/original.mp3",
					prod.GOOGLE_STORAGE_HOST, bucketName, jobID)

				jobParams, err = handler.HandleTransferJob(message)
			})

			It("doesn't return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("saves the original audio in the file store", func() {
				contents, err := dummyFileStore.GetFile(context.Background(), expectedSavedURL)
				Expect(err).NotTo(HaveOccurred())
				Expect(contents).To(Equal(audioData))
			})

			It("records the saved original URL on the job", func() {
				job, err := dummyJobStore.GetJob(context.Background(), jobID)
				Expect(err).NotTo(HaveOccurred())
				Expect(job.SavedOriginalURL).To(Equal(expectedSavedURL))
			})

			It("returns the processed data", func() {
				Expect(jobParams.JobID).To(Equal(jobID))
			})
		})

		Describe("Job has no source URL", func() {
			BeforeEach(func() {
				updater := func(job jobentity.Job) (jobentity.Job, error) {
					job.SourceURL = ""
					return job, nil
				}

				err := dummyJobStore.UpdateJob(context.Background(), jobID, updater)
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns an error", func() {
				_, err := handler.HandleTransferJob(message)
				Expect(err).To(HaveOccurred())
			})
		})

		Describe("Download fails", func() {
			BeforeEach(func() {
				youtubeDLRunner.Unavailable = true
			})

			It("returns an error", func() {
				_, err := handler.HandleTransferJob(message)
				Expect(err).To(HaveOccurred())
			})
		})

		Describe("Can't reach the file store", func() {
			BeforeEach(func() {
				dummyFileStore.Unavailable = true
			})

			It("returns an error", func() {
				_, err := handler.HandleTransferJob(message)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Poorly formed message", func() {
		BeforeEach(func() {
			message = []byte("{")
		})

		It("returns an error", func() {
			_, err := handler.HandleTransferJob(message)
			Expect(err).To(HaveOccurred())
		})
	})
})
