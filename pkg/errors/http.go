package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTPStatus converts an error code to an HTTP status.
func ToHTTPStatus(code string) int {
	httpStatus, _ := GetCodeMapping(code)
	return httpStatus
}

// StatusOf returns the HTTP status for any error: echo errors keep their
// status, coded errors are mapped, everything else is 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var he *echo.HTTPError
	if As(err, &he) {
		return he.Code
	}
	return ToHTTPStatus(CodeOf(err))
}

// ToHTTPError converts an error into an echo HTTP error. Internal errors
// do not leak their message.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if As(err, &he) {
		return he
	}
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		return echo.NewHTTPError(status, http.StatusText(status)).SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error()).SetInternal(err)
}
