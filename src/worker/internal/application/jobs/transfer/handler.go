package transfer

import (
	"context"
	"encoding/json"

	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_message"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const JobType string = "transfer_job"
const ErrorMessage string = "Failed to transfer source audio to storage"

//counterfeiter:generate . TransferJobHandler
type TransferJobHandler interface {
	HandleTransferJob(message []byte) (JobParams, error)
}

type JobParams struct {
	job_message.JobIdentifier
}

func NewJobHandler(transferrer JobTransferrer, jobStore jobentity.Store) JobHandler {
	return JobHandler{
		transferrer: transferrer,
		jobStore:    jobStore,
	}
}

type JobHandler struct {
	transferrer JobTransferrer
	jobStore    jobentity.Store
}

// HandleTransferJob downloads the source audio, saves it to cloud
// storage, and records the saved copy's URL on the job.
func (d JobHandler) HandleTransferJob(message []byte) (JobParams, error) {
	params, err := unmarshalMessage(message)
	if err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	errctx := cerr.Field("job_id", params.JobID)

	savedURL, err := d.transferrer.Transfer(params.JobID)
	if err != nil {
		return JobParams{}, errctx.Wrap(err).Error("Failed to transfer source audio")
	}

	updater := func(job jobentity.Job) (jobentity.Job, error) {
		job.SavedOriginalURL = savedURL
		return job, nil
	}

	err = d.jobStore.UpdateJob(context.Background(), params.JobID, updater)
	if err != nil {
		return JobParams{}, errctx.Wrap(err).Error("Failed to record the saved original URL")
	}

	return params, nil
}

func unmarshalMessage(message []byte) (JobParams, error) {
	params := JobParams{}
	err := json.Unmarshal(message, &params)
	if err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	if params.JobID == "" {
		return JobParams{}, cerr.Field("job_params", params).Error("Missing job ID")
	}

	return params, nil
}
