package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/xeniagda/ilo-pi-ante-toki/pkg/gram"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, ResponseError{Message: msg, Type: "invalid_request_error"})
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, ResponseError{Message: msg, Type: "not_found_error"})
}

// writeGramError maps engine errors onto client errors. Anything unexpected is a 500.
func writeGramError(c *echo.Context, err error) error {
	var (
		unknown *gram.UnknownSymbolError
		invalid *gram.InvalidIDError
	)
	switch {
	case errors.As(err, &unknown):
		pos := unknown.Position
		return writeError(c, http.StatusUnprocessableEntity, ResponseError{
			Message:  err.Error(),
			Type:     "invalid_request_error",
			Code:     "unknown_symbol",
			Position: &pos,
		})
	case errors.As(err, &invalid):
		return writeError(c, http.StatusBadRequest, ResponseError{
			Message: err.Error(),
			Type:    "invalid_request_error",
			Code:    "invalid_id",
		})
	default:
		return writeError(c, http.StatusInternalServerError, ResponseError{Message: err.Error(), Type: "server_error"})
	}
}

func writeError(c *echo.Context, status int, e ResponseError) error {
	return c.JSON(status, map[string]any{"error": e})
}
