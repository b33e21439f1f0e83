package job_router

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apex/log"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/rabbitmq"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_message"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/process"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/save_results"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/start"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/transfer"
	"github.com/rabbitmq/amqp091-go"
)

// JobRouter dispatches queue messages to their handlers and chains the
// next message in the pipeline: start → transfer → process →
// save_results. A handler error marks the job failed with the stage's
// user-facing error message before the message is nacked.
type JobRouter struct {
	jobStore           jobentity.Store
	publisher          rabbitmq.Publisher
	startHandler       start.StartJobHandler
	transferHandler    transfer.TransferJobHandler
	processHandler     process.ProcessJobHandler
	saveResultsHandler save_results.SaveResultsJobHandler
}

func NewJobRouter(
	jobStore jobentity.Store,
	publisher rabbitmq.Publisher,
	startHandler start.StartJobHandler,
	transferHandler transfer.TransferJobHandler,
	processHandler process.ProcessJobHandler,
	saveResultsHandler save_results.SaveResultsJobHandler,
) JobRouter {
	return JobRouter{
		jobStore:           jobStore,
		publisher:          publisher,
		startHandler:       startHandler,
		transferHandler:    transferHandler,
		processHandler:     processHandler,
		saveResultsHandler: saveResultsHandler,
	}
}

func (j JobRouter) HandleMessage(message amqp091.Delivery) error {
	err := j.routeMessage(message)
	if err != nil {
		j.markJobFailed(message, errorMessageFor(message.Type))
		return cerr.Field("message_type", message.Type).
			Wrap(err).Error("Failed to handle message")
	}

	return nil
}

func (j JobRouter) routeMessage(message amqp091.Delivery) error {
	switch message.Type {
	case start.JobType:
		params, err := j.startHandler.HandleStartJob(message.Body)
		if err != nil {
			return cerr.Wrap(err).Error("Failed to handle the start job")
		}

		return j.publishNext(transfer.JobType, params)

	case transfer.JobType:
		params, err := j.transferHandler.HandleTransferJob(message.Body)
		if err != nil {
			return cerr.Wrap(err).Error("Failed to handle the transfer job")
		}

		return j.publishNext(process.JobType, params)

	case process.JobType:
		params, err := j.processHandler.HandleProcessJob(message.Body)
		if err != nil {
			return cerr.Wrap(err).Error("Failed to handle the process job")
		}

		return j.publishNext(save_results.JobType, params)

	case save_results.JobType:
		err := j.saveResultsHandler.HandleSaveResultsJob(message.Body)
		if err != nil {
			return cerr.Wrap(err).Error("Failed to handle the save results job")
		}

		return nil

	default:
		return cerr.Field("message_type", message.Type).
			Error("Unrecognized message type")
	}
}

func (j JobRouter) publishNext(jobType string, params any) error {
	publishing, err := job_message.Create(jobType, params)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to create the next job message")
	}

	err = j.publisher.Publish(publishing)
	if err != nil {
		return cerr.Field("job_type", jobType).
			Wrap(err).Error("Failed to publish the next job message")
	}

	return nil
}

// markJobFailed is best effort: the job may be gone or the message
// unparseable, in which case there is nothing to mark.
func (j JobRouter) markJobFailed(message amqp091.Delivery, errorMessage string) {
	identifier := job_message.JobIdentifier{}
	err := json.Unmarshal(message.Body, &identifier)
	if err != nil || identifier.JobID == "" {
		log.WithField("message_type", message.Type).
			Warn("Cannot identify the job for a failed message")
		return
	}

	updater := func(job jobentity.Job) (jobentity.Job, error) {
		failedAt := time.Now().UTC()

		job.Status = jobentity.FailedStatus
		job.Stage = jobentity.FailedStage
		job.ErrorDetail = errorMessage
		job.CompletedAt = &failedAt

		return job, nil
	}

	err = j.jobStore.UpdateJob(context.Background(), identifier.JobID, updater)
	if err != nil {
		cerr.Log(cerr.Field("job_id", identifier.JobID).
			Wrap(err).Error("Failed to mark the job as failed"))
	}
}

func errorMessageFor(messageType string) string {
	switch messageType {
	case start.JobType:
		return start.ErrorMessage
	case transfer.JobType:
		return transfer.ErrorMessage
	case process.JobType:
		return process.ErrorMessage
	case save_results.JobType:
		return save_results.ErrorMessage
	default:
		return "Failed to process the job"
	}
}
