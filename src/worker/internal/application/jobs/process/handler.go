package process

import (
	"context"
	"encoding/json"

	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"github.com/harmonix-audio/harmonix-be/src/worker/internal/application/jobs/job_message"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const JobType string = "process_job"
const ErrorMessage string = "Failed to separate the audio"

//counterfeiter:generate . ProcessJobHandler
type ProcessJobHandler interface {
	HandleProcessJob(message []byte) (JobParams, error)
}

type JobParams struct {
	job_message.JobIdentifier
	Result jobentity.Result `json:"result"`
}

func NewJobHandler(processor JobProcessor) JobHandler {
	return JobHandler{
		processor: processor,
	}
}

type JobHandler struct {
	processor JobProcessor
}

func (d JobHandler) HandleProcessJob(message []byte) (JobParams, error) {
	params := JobParams{}
	err := json.Unmarshal(message, &params)
	if err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	if params.JobID == "" {
		return JobParams{}, cerr.Field("job_params", params).Error("Missing job ID")
	}

	result, err := d.processor.Process(context.Background(), params.JobID)
	if err != nil {
		return JobParams{}, cerr.Field("job_id", params.JobID).
			Wrap(err).Error("Failed to process the job")
	}

	params.Result = result
	return params, nil
}
