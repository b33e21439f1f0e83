package jobgateway

import (
	"net/http"

	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/api"
	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/gateway"
	joberrors "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/errors"
	jobusecase "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/usecase"
	"github.com/harmonix-audio/harmonix-be/src/server/internal/lib/request"
	jobentity "github.com/harmonix-audio/harmonix-be/src/shared/job/entity"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type CreateJobRequest struct {
	SourceURL string           `json:"source_url"`
	Params    jobentity.Params `json:"params"`
}

type Gateway struct {
	usecase jobusecase.Usecase
}

func NewGateway(usecase jobusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) CreateJob(c echo.Context) error {
	ctx := request.Context(c)

	createRequest := CreateJobRequest{}
	err := c.Bind(&createRequest)
	if err != nil {
		err = errors.Wrap(err, "Failed to bind request body to job creation object")
		apiErr := api.CommitError(err,
			joberrors.BadJobDataCode,
			"The job data received was malformed. Please contact the developer")
		return gateway.ErrorResponse(c, apiErr)
	}

	job, apiErr := g.usecase.CreateJob(ctx, createRequest.SourceURL, createRequest.Params)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusCreated, job)
}

func (g Gateway) GetJob(c echo.Context, jobID string) error {
	ctx := request.Context(c)

	job, apiErr := g.usecase.GetJob(ctx, jobID)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, job)
}

func (g Gateway) GetResult(c echo.Context, jobID string) error {
	ctx := request.Context(c)

	result, apiErr := g.usecase.GetResult(ctx, jobID)
	if apiErr != nil {
		apiErr = api.WrapError(apiErr, "Failed to get job result")
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, result)
}
