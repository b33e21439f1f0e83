package analysisgateway

import (
	"net/http"

	analysiserrors "github.com/harmonix-audio/harmonix-be/src/server/internal/analysis/errors"
	analysisusecase "github.com/harmonix-audio/harmonix-be/src/server/internal/analysis/usecase"
	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/api"
	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/gateway"
	"github.com/harmonix-audio/harmonix-be/src/server/internal/lib/request"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type Gateway struct {
	usecase analysisusecase.Usecase
}

func NewGateway(usecase analysisusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) Analyze(c echo.Context) error {
	ctx := request.Context(c)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		err = errors.Wrap(err, "Failed to read the audio form file from the request")
		apiErr := api.CommitError(err,
			analysiserrors.BadAudioFileCode,
			"An audio file is required in the audio form field")
		return gateway.ErrorResponse(c, apiErr)
	}

	audioFile, err := fileHeader.Open()
	if err != nil {
		err = errors.Wrap(err, "Failed to open the uploaded audio file")
		apiErr := api.CommitError(err,
			analysiserrors.BadAudioFileCode,
			"The uploaded audio file could not be read")
		return gateway.ErrorResponse(c, apiErr)
	}

	defer audioFile.Close()

	report, apiErr := g.usecase.Analyze(ctx, audioFile, fileHeader.Filename)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, report)
}
