package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

func NewBadRequestError(message ...interface{}) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, message...)
}

// HTTPStatus maps err to the status code of the sentinel it wraps
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrBatchNotFound), errors.Is(err, ErrTrxHashNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyBatchID), errors.Is(err, ErrInvalidBatch), errors.Is(err, ErrInvalidBatchSig),
		errors.Is(err, ErrEmptyTrxHash), errors.Is(err, ErrInvalidTrxHash):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexerClosed), errors.Is(err, ErrTransportClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func NewHTTPError(err error) *echo.HTTPError {
	return echo.NewHTTPError(HTTPStatus(err), err.Error())
}
