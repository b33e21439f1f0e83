package gateway

import (
	"fmt"
	"net/http"

	"github.com/harmonix-audio/harmonix-be/src/server/api_error"
	analysiserrors "github.com/harmonix-audio/harmonix-be/src/server/internal/analysis/errors"
	"github.com/harmonix-audio/harmonix-be/src/server/internal/errors/api"
	joberrors "github.com/harmonix-audio/harmonix-be/src/server/internal/jobs/errors"
	"github.com/labstack/echo/v4"
)

var httpStatusCodeMap = map[api.ErrorCode]int{
	api.DefaultErrorCode:              http.StatusInternalServerError,
	joberrors.JobNotFoundCode:         http.StatusNotFound,
	joberrors.BadJobDataCode:          http.StatusBadRequest,
	joberrors.ResultNotReadyCode:      http.StatusConflict,
	joberrors.JobFailedCode:           http.StatusConflict,
	analysiserrors.BadAudioFileCode:   http.StatusBadRequest,
	analysiserrors.AnalysisFailedCode: http.StatusUnprocessableEntity,
}

func ErrorResponse(c echo.Context, err *api.Error) error {
	statusCode, ok := httpStatusCodeMap[err.ErrorCode]
	if !ok {
		msg := fmt.Sprintf("Error code %s has no HTTP status code mapping", err.ErrorCode)
		panic(msg)
	}

	return c.JSON(statusCode, api_error.JSONAPIError{
		Code:         string(err.ErrorCode),
		Msg:          err.UserMessage,
		ErrorDetails: err.Error(),
	})
}
