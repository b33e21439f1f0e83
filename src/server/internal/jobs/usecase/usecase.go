package jobusecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/api"
	joberrors "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/errors"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	jobstorage "github.com/harmonix-audio/harmonix-be/src/shared/job/storage"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/rabbitmq"
	"github.com/rabbitmq/amqp091-go"
)

const startJobType = "start_job"

type Usecase struct {
	db        jobentity.Store
	publisher rabbitmq.Publisher
}

func NewUsecase(db jobentity.Store, publisher rabbitmq.Publisher) Usecase {
	return Usecase{
		db:        db,
		publisher: publisher,
	}
}

func (u Usecase) CreateJob(ctx context.Context, sourceURL string, params jobentity.Params) (jobentity.Job, *api.Error) {
	if sourceURL == "" {
		err := errors.New("No source URL was provided")
		return jobentity.Job{}, api.CommitError(err,
			joberrors.BadJobDataCode,
			"A source URL for the audio is required to create a job")
	}

	if err := params.Validate(); err != nil {
		err = errors.Wrap(err, "Job params failed validation")
		return jobentity.Job{}, api.CommitError(err,
			joberrors.BadJobDataCode,
			"The job parameters received were not recognized")
	}

	job := jobentity.NewJob(sourceURL, params)

	err := u.db.CreateJob(ctx, job)
	if err != nil {
		err = errors.Wrap(err, "Failed to create job in DB")
		return jobentity.Job{}, api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to save the new job")
	}

	// do this as non-blocking as it's a long term async work
	go u.publishStartJob(job.ID)

	return job, nil
}

func (u Usecase) GetJob(ctx context.Context, jobID string) (jobentity.Job, *api.Error) {
	job, err := u.db.GetJob(ctx, jobID)
	if err != nil {
		err = errors.Wrap(err, "Failed to get job from DB")
		switch {
		case markers.Is(err, jobstorage.JobNotFound):
			fallthrough
		case markers.Is(err, jobstorage.IDEmptyMark):
			return jobentity.Job{}, api.CommitError(err,
				joberrors.JobNotFoundCode,
				"This job can't be found")

		case markers.Is(err, jobstorage.UnmarshalMark):
			fallthrough
		case markers.Is(err, jobstorage.DefaultErrorMark):
			fallthrough
		default:
			return jobentity.Job{}, api.CommitError(err,
				api.DefaultErrorCode,
				"Unknown error: Failed to fetch the job")
		}
	}

	return job, nil
}

func (u Usecase) GetResult(ctx context.Context, jobID string) (jobentity.Result, *api.Error) {
	job, apiErr := u.GetJob(ctx, jobID)
	if apiErr != nil {
		return jobentity.Result{}, api.WrapError(apiErr, "Failed to get job for its result")
	}

	switch {
	case job.Status == jobentity.FailedStatus:
		err := errors.Newf("Job failed at stage %s: %s", job.Stage, job.ErrorDetail)
		return jobentity.Result{}, api.CommitError(err,
			joberrors.JobFailedCode,
			"This job has failed and produced no result")

	case job.Status != jobentity.CompletedStatus || job.Result == nil:
		err := errors.Newf("Job is still in status %s", job.Status)
		return jobentity.Result{}, api.CommitError(err,
			joberrors.ResultNotReadyCode,
			"This job hasn't finished processing yet")
	}

	return *job.Result, nil
}

type jobIdentifier struct {
	JobID string `json:"job_id"`
}

func (u Usecase) publishStartJob(jobID string) {
	jsonBytes, err := json.Marshal(jobIdentifier{JobID: jobID})
	if err != nil {
		err = errors.Wrap(err, "Failed to marshal job ID for queue msg")
		u.markJobFailed(jobID, err)
		return
	}

	publishMsg := amqp091.Publishing{
		Type: startJobType,
		Body: jsonBytes,
	}

	err = u.publisher.Publish(publishMsg)
	if err != nil {
		err = errors.Wrap(err, "Failed to publish message to rabbitmq")
		u.markJobFailed(jobID, err)
		return
	}
}

func (u Usecase) markJobFailed(jobID string, publishErr error) {
	updater := func(job jobentity.Job) (jobentity.Job, error) {
		now := time.Now().UTC()
		job.Status = jobentity.FailedStatus
		job.Stage = jobentity.FailedStage
		job.ErrorDetail = "The job could not be queued for processing"
		job.CompletedAt = &now
		return job, nil
	}

	err := u.db.UpdateJob(context.Background(), jobID, updater)
	if err != nil {
		log.WithField("job_id", jobID).
			WithError(publishErr).
			Error("Failed to mark job failed in DB")
		return
	}
}
