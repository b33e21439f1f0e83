package job_router_test

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/harmonix-audio/harmonix-be/src/shared/integration_test/dummy"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_message"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_router"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/process"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/save_results"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/start"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/transfer"
	"github.com/rabbitmq/amqp091-go"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubStartHandler struct {
	err error
}

func (s stubStartHandler) HandleStartJob(message []byte) (start.JobParams, error) {
	if s.err != nil {
		return start.JobParams{}, s.err
	}

	params := start.JobParams{}
	Expect(json.Unmarshal(message, &params)).To(Succeed())
	return params, nil
}

type stubTransferHandler struct {
	err error
}

func (s stubTransferHandler) HandleTransferJob(message []byte) (transfer.JobParams, error) {
	if s.err != nil {
		return transfer.JobParams{}, s.err
	}

	params := transfer.JobParams{}
	Expect(json.Unmarshal(message, &params)).To(Succeed())
	return params, nil
}

type stubProcessHandler struct {
	err    error
	result jobentity.Result
}

func (s stubProcessHandler) HandleProcessJob(message []byte) (process.JobParams, error) {
	if s.err != nil {
		return process.JobParams{}, s.err
	}

	params := process.JobParams{}
	Expect(json.Unmarshal(message, &params)).To(Succeed())
	params.Result = s.result
	return params, nil
}

type stubSaveResultsHandler struct {
	err error
}

func (s stubSaveResultsHandler) HandleSaveResultsJob(message []byte) error {
	return s.err
}

var _ = Describe("Job router", func() {
	var (
		dummyJobStore *dummy.JobStore
		dummyRabbitMQ *dummy.RabbitMQ

		startHandler       stubStartHandler
		transferHandler    stubTransferHandler
		processHandler     stubProcessHandler
		saveResultsHandler stubSaveResultsHandler

		jobID  string
		result jobentity.Result

		makeRouter func() job_router.JobRouter
	)

	BeforeEach(func() {
		dummyJobStore = dummy.NewDummyJobStore()
		dummyRabbitMQ = dummy.NewRabbitMQ()

		result = jobentity.Result{
			Stems: map[string]jobentity.StemResult{
				"vocals": {Name: "vocals", URL: "https://somewhere/vocals.wav"},
			},
		}

		startHandler = stubStartHandler{}
		transferHandler = stubTransferHandler{}
		processHandler = stubProcessHandler{result: result}
		saveResultsHandler = stubSaveResultsHandler{}

		job := jobentity.NewJob("https://youtube.com/watch?v=cool-jamz", jobentity.Params{
			Quality: jobentity.FastQuality,
			Mode:    jobentity.GroupedMode,
		})
		jobID = job.ID

		err := dummyJobStore.CreateJob(context.Background(), job)
		Expect(err).NotTo(HaveOccurred())

		makeRouter = func() job_router.JobRouter {
			return job_router.NewJobRouter(
				dummyJobStore,
				dummyRabbitMQ,
				startHandler,
				transferHandler,
				processHandler,
				saveResultsHandler,
			)
		}
	})

	makeDelivery := func(jobType string) amqp091.Delivery {
		body, err := json.Marshal(job_message.JobIdentifier{JobID: jobID})
		Expect(err).NotTo(HaveOccurred())

		return amqp091.Delivery{
			Type: jobType,
			Body: body,
		}
	}

	Describe("Chaining", func() {
		It("publishes a transfer job after the start job", func() {
			err := makeRouter().HandleMessage(makeDelivery(start.JobType))
			Expect(err).NotTo(HaveOccurred())

			messages := dummyRabbitMQ.Messages()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Type).To(Equal(transfer.JobType))
		})

		It("publishes a process job after the transfer job", func() {
			err := makeRouter().HandleMessage(makeDelivery(transfer.JobType))
			Expect(err).NotTo(HaveOccurred())

			messages := dummyRabbitMQ.Messages()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Type).To(Equal(process.JobType))
		})

		It("publishes a save results job carrying the result after the process job", func() {
			err := makeRouter().HandleMessage(makeDelivery(process.JobType))
			Expect(err).NotTo(HaveOccurred())

			messages := dummyRabbitMQ.Messages()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Type).To(Equal(save_results.JobType))

			params := save_results.JobParams{}
			Expect(json.Unmarshal(messages[0].Body, &params)).To(Succeed())
			Expect(params.JobID).To(Equal(jobID))
			Expect(params.Result).To(Equal(result))
		})

		It("publishes nothing after the save results job", func() {
			err := makeRouter().HandleMessage(makeDelivery(save_results.JobType))
			Expect(err).NotTo(HaveOccurred())

			Expect(dummyRabbitMQ.Messages()).To(BeEmpty())
		})
	})

	Describe("Handler failure", func() {
		BeforeEach(func() {
			processHandler = stubProcessHandler{err: errors.New("the GPU is on fire")}
		})

		It("returns an error so the message gets nacked", func() {
			err := makeRouter().HandleMessage(makeDelivery(process.JobType))
			Expect(err).To(HaveOccurred())
		})

		It("marks the job failed with the stage's error message", func() {
			_ = makeRouter().HandleMessage(makeDelivery(process.JobType))

			job, err := dummyJobStore.GetJob(context.Background(), jobID)
			Expect(err).NotTo(HaveOccurred())

			Expect(job.Status).To(Equal(jobentity.FailedStatus))
			Expect(job.Stage).To(Equal(jobentity.FailedStage))
			Expect(job.ErrorDetail).To(Equal(process.ErrorMessage))
			Expect(job.CompletedAt).NotTo(BeNil())
		})

		It("publishes no further messages", func() {
			_ = makeRouter().HandleMessage(makeDelivery(process.JobType))

			Expect(dummyRabbitMQ.Messages()).To(BeEmpty())
		})
	})

	Describe("Unrecognized message type", func() {
		It("returns an error", func() {
			err := makeRouter().HandleMessage(makeDelivery("sandwich_job"))
			Expect(err).To(HaveOccurred())
		})
	})
})
