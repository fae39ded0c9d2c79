package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/haatos/mybucketapp/internal/provisioner"
	"github.com/haatos/mybucketapp/internal/service"
	"github.com/haatos/mybucketapp/internal/stack"
	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorHandler renders every error returned by a handler as JSON. Domain
// errors are mapped to the status they imply.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	res := ErrorResponse{Message: "something went terribly wrong"}

	var he *echo.HTTPError
	var ve *stack.ValidationError
	var me *provisioner.AccountMismatchError
	var ee *provisioner.ExternalEngineError
	switch {
	case errors.As(err, &he):
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			res.Message = msg
		} else {
			res.Message = http.StatusText(he.Code)
		}
		err = he.Internal
	case errors.Is(err, service.ErrEnvironmentNotFound),
		errors.Is(err, service.ErrStackNotFound),
		errors.Is(err, service.ErrSynthNotFound):
		status = http.StatusNotFound
		res.Message = err.Error()
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		res.Message = ve.Error()
		res.Field = ve.Field
	case errors.As(err, &me):
		status = http.StatusForbidden
		res.Message = me.Error()
	case errors.As(err, &ee):
		status = http.StatusBadGateway
		res.Message = ee.Error()
	}

	if status >= http.StatusInternalServerError {
		slog.Error("handler error",
			"path", c.Request().URL.Path,
			"status", status,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, res)
	}
	if err != nil {
		slog.Error("error writing error response", "error", err)
	}
}

func newError(err error, status int, message string) error {
	e := echo.NewHTTPError(status, message)
	if err != nil {
		e = e.WithInternal(err)
	}
	return e
}
