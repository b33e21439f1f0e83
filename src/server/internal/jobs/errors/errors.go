package joberrors

import (
	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/api"
)

const (
	JobNotFoundCode    = api.ErrorCode("job_not_found")
	BadJobDataCode     = api.ErrorCode("bad_job_data")
	ResultNotReadyCode = api.ErrorCode("result_not_ready")
	JobFailedCode      = api.ErrorCode("job_failed")
)
