package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/carrental/internal/apperr"
	"github.com/Skotchmaster/carrental/internal/logging"
)

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler renders every error as ErrorResponse. Causes of internal
// errors are logged and never sent to the client.
func ErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		l := logging.FromContext(c.Request().Context())
		status, body := render(err)
		if status >= http.StatusInternalServerError {
			l.Error("internal_error", "status", status, "error", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			l.Error("write_error_response", "error", werr)
		}
	}
}

func render(err error) (int, ErrorResponse) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Kind.Status(), ErrorResponse{Status: "error", Code: ae.Kind.Code(), Message: ae.Message}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Code < http.StatusInternalServerError {
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			} else if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		return he.Code, ErrorResponse{Status: "error", Code: codeForStatus(he.Code), Message: msg}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Status:  "error",
		Code:    apperr.KindInternal.Code(),
		Message: "internal server error",
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusUnsupportedMediaType:
		return apperr.KindValidation.Code()
	case http.StatusUnauthorized:
		return apperr.KindAuthentication.Code()
	case http.StatusForbidden:
		return apperr.KindAuthorization.Code()
	case http.StatusNotFound:
		return apperr.KindNotFound.Code()
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return apperr.KindConflict.Code()
	case http.StatusTooManyRequests:
		return apperr.KindTooManyRequests.Code()
	default:
		return apperr.KindInternal.Code()
	}
}
