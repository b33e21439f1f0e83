package jobs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	joberrors "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/errors"
	jobgateway "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/gateway"
	jobusecase "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/usecase"
	"github.com/harmonix-audio/harmonix-be/src/shared/integration_test/dummy"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	. "github.com/harmonix-audio/harmonix-be/src/shared/testing"
)

var _ = Describe("Jobs", func() {
	var (
		jobStore   *dummy.JobStore
		publisher  *dummy.RabbitMQ
		jobGateway jobgateway.Gateway
	)

	BeforeEach(func() {
		jobStore = dummy.NewDummyJobStore()
		publisher = dummy.NewRabbitMQ()

		usecase := jobusecase.NewUsecase(jobStore, publisher)
		jobGateway = jobgateway.NewGateway(usecase)
	})

	validPayload := func() map[string]interface{} {
		return map[string]interface{}{
			"source_url": "https://youtube.com/watch?v=cool-jamz",
			"params": map[string]interface{}{
				"quality": "balanced",
				"mode":    "grouped",
			},
		}
	}

	createJob := func(payload map[string]interface{}) *httptest.ResponseRecorder {
		request := RequestFactory{
			Method:  "POST",
			Target:  "/jobs",
			JSONObj: payload,
		}.MakeFake()

		response := httptest.NewRecorder()
		c := PrepareEchoContext(request, response)
		Expect(jobGateway.CreateJob(c)).NotTo(HaveOccurred())

		return response
	}

	Describe("CreateJob", func() {
		Describe("With a valid request", func() {
			var response *httptest.ResponseRecorder
			var createdJob jobentity.Job

			BeforeEach(func() {
				response = createJob(validPayload())
				createdJob = DecodeJSON[jobentity.Job](response.Body)
			})

			It("returns the created job", func() {
				Expect(response.Code).To(Equal(http.StatusCreated))
				Expect(createdJob.ID).NotTo(BeEmpty())
				Expect(createdJob.SourceURL).To(Equal("https://youtube.com/watch?v=cool-jamz"))
				Expect(createdJob.Status).To(Equal(jobentity.QueuedStatus))
				Expect(createdJob.Stage).To(Equal(jobentity.QueuedStage))
			})

			It("persists the job", func() {
				Expect(jobStore.State).To(HaveKey(createdJob.ID))
			})

			It("queues a start job message", func() {
				Eventually(publisher.Messages).Should(HaveLen(1))

				message := publisher.Messages()[0]
				Expect(message.Type).To(Equal("start_job"))

				identifier := map[string]string{}
				Expect(json.Unmarshal(message.Body, &identifier)).To(Succeed())
				Expect(identifier["job_id"]).To(Equal(createdJob.ID))
			})
		})

		Describe("With a missing source URL", func() {
			It("rejects the request", func() {
				payload := validPayload()
				delete(payload, "source_url")

				response := createJob(payload)
				Expect(response.Code).To(Equal(http.StatusBadRequest))

				jsonErr := DecodeJSONError(response.Body)
				Expect(jsonErr.Code).To(Equal(string(joberrors.BadJobDataCode)))
			})
		})

		Describe("With unrecognized params", func() {
			It("rejects the request", func() {
				payload := validPayload()
				payload["params"] = map[string]interface{}{
					"quality": "lossless",
					"mode":    "grouped",
				}

				response := createJob(payload)
				Expect(response.Code).To(Equal(http.StatusBadRequest))
			})
		})

		Describe("When the store is down", func() {
			It("reports an internal error", func() {
				jobStore.Unavailable = true

				response := createJob(validPayload())
				Expect(response.Code).To(Equal(http.StatusInternalServerError))
			})
		})

		Describe("When the queue is down", func() {
			It("marks the job failed after the fact", func() {
				publisher.Unavailable = true

				response := createJob(validPayload())
				Expect(response.Code).To(Equal(http.StatusCreated))
				createdJob := DecodeJSON[jobentity.Job](response.Body)

				getJob := func() jobentity.Job {
					job, err := jobStore.GetJob(context.Background(), createdJob.ID)
					Expect(err).NotTo(HaveOccurred())
					return job
				}
				Eventually(func() jobentity.Status { return getJob().Status }).
					Should(Equal(jobentity.FailedStatus))
				Expect(getJob().Stage).To(Equal(jobentity.FailedStage))
				Expect(getJob().ErrorDetail).NotTo(BeEmpty())
			})
		})
	})

	Describe("GetJob", func() {
		var storedJob jobentity.Job

		BeforeEach(func() {
			storedJob = jobentity.NewJob("https://example.com/track.mp3", jobentity.Params{
				Quality: jobentity.FastQuality,
				Mode:    jobentity.KaraokeMode,
			})
			jobStore.State[storedJob.ID] = storedJob
		})

		getJob := func(jobID string) *httptest.ResponseRecorder {
			request := RequestFactory{
				Method: "GET",
				Target: "/jobs/" + jobID,
			}.MakeFake()

			response := httptest.NewRecorder()
			c := PrepareEchoContext(request, response)
			Expect(jobGateway.GetJob(c, jobID)).NotTo(HaveOccurred())

			return response
		}

		It("returns the stored job", func() {
			response := getJob(storedJob.ID)
			Expect(response.Code).To(Equal(http.StatusOK))

			job := DecodeJSON[jobentity.Job](response.Body)
			Expect(job.ID).To(Equal(storedJob.ID))
			Expect(job.Params.Mode).To(Equal(jobentity.KaraokeMode))
		})

		It("404s for an unknown job", func() {
			response := getJob("not-a-real-job")
			Expect(response.Code).To(Equal(http.StatusNotFound))

			jsonErr := DecodeJSONError(response.Body)
			Expect(jsonErr.Code).To(Equal(string(joberrors.JobNotFoundCode)))
		})
	})

	Describe("GetResult", func() {
		var storedJob jobentity.Job

		BeforeEach(func() {
			storedJob = jobentity.NewJob("https://example.com/track.mp3", jobentity.Params{
				Quality: jobentity.BalancedQuality,
				Mode:    jobentity.GroupedMode,
			})
			jobStore.State[storedJob.ID] = storedJob
		})

		getResult := func(jobID string) *httptest.ResponseRecorder {
			request := RequestFactory{
				Method: "GET",
				Target: "/jobs/" + jobID + "/result",
			}.MakeFake()

			response := httptest.NewRecorder()
			c := PrepareEchoContext(request, response)
			Expect(jobGateway.GetResult(c, jobID)).NotTo(HaveOccurred())

			return response
		}

		It("conflicts while the job is still running", func() {
			response := getResult(storedJob.ID)
			Expect(response.Code).To(Equal(http.StatusConflict))

			jsonErr := DecodeJSONError(response.Body)
			Expect(jsonErr.Code).To(Equal(string(joberrors.ResultNotReadyCode)))
		})

		It("conflicts when the job has failed", func() {
			storedJob.Status = jobentity.FailedStatus
			storedJob.Stage = jobentity.FailedStage
			storedJob.ErrorDetail = "separation engine failed"
			jobStore.State[storedJob.ID] = storedJob

			response := getResult(storedJob.ID)
			Expect(response.Code).To(Equal(http.StatusConflict))

			jsonErr := DecodeJSONError(response.Body)
			Expect(jsonErr.Code).To(Equal(string(joberrors.JobFailedCode)))
		})

		It("returns the result of a completed job", func() {
			completedAt := time.Now().UTC()
			storedJob.Status = jobentity.CompletedStatus
			storedJob.Stage = jobentity.CompletedStage
			storedJob.CompletedAt = &completedAt
			storedJob.Result = &jobentity.Result{
				Stems: map[string]jobentity.StemResult{
					"vocals": {Name: "vocals", URL: "https://storage/vocals.wav", Confidence: 0.92},
				},
				DetectedInstruments: []string{"vocals"},
				InstrumentScores:    map[string]float64{"vocals": 0.92},
				ProcessingSecs:      31.4,
			}
			jobStore.State[storedJob.ID] = storedJob

			response := getResult(storedJob.ID)
			Expect(response.Code).To(Equal(http.StatusOK))

			result := DecodeJSON[jobentity.Result](response.Body)
			Expect(result.Stems).To(HaveKey("vocals"))
			Expect(result.Stems["vocals"].URL).To(Equal("https://storage/vocals.wav"))
		})

		It("404s for an unknown job", func() {
			response := getResult("not-a-real-job")
			Expect(response.Code).To(Equal(http.StatusNotFound))
		})
	})
})
