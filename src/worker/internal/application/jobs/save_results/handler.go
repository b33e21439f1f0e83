package save_results

import (
	"context"
	"encoding/json"
	"time"

	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_message"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const JobType string = "save_results_job"
const ErrorMessage string = "Failed to save separation results"

type JobParams struct {
	job_message.JobIdentifier
	Result jobentity.Result `json:"result"`
}

//counterfeiter:generate . SaveResultsJobHandler
type SaveResultsJobHandler interface {
	HandleSaveResultsJob(message []byte) error
}

func NewJobHandler(jobStore jobentity.Store) JobHandler {
	return JobHandler{
		jobStore: jobStore,
	}
}

type JobHandler struct {
	jobStore jobentity.Store
}

// HandleSaveResultsJob writes the finished result onto the job record
// and moves it to its terminal completed status.
func (s JobHandler) HandleSaveResultsJob(message []byte) error {
	params, err := unmarshalMessage(message)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	errctx := cerr.Field("job_id", params.JobID)

	updater := func(job jobentity.Job) (jobentity.Job, error) {
		if job.IsTerminal() {
			return jobentity.Job{}, errctx.Error("Job is already terminal, refusing to overwrite")
		}

		completedAt := time.Now().UTC()

		job.Result = &params.Result
		job.Status = jobentity.CompletedStatus
		job.Stage = jobentity.CompletedStage
		job.CompletedAt = &completedAt

		return job, nil
	}

	err = s.jobStore.UpdateJob(context.Background(), params.JobID, updater)
	if err != nil {
		return errctx.Wrap(err).Error("Failed to update job")
	}

	return nil
}

func unmarshalMessage(message []byte) (JobParams, error) {
	params := JobParams{}
	err := json.Unmarshal(message, &params)
	if err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	errctx := cerr.Field("job_params", params)

	if params.JobID == "" {
		return JobParams{}, errctx.Error("Missing job ID")
	}

	if len(params.Result.Stems) == 0 {
		return JobParams{}, errctx.Error("Missing stem results")
	}

	return params, nil
}
