package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/newslink/internal/globaltime"
)

// Every response carries success and timestamp; successful payload fields
// sit beside them at the top level.

type failureResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func success(c echo.Context, fields map[string]any) error {
	return successWithStatus(c, http.StatusOK, fields)
}

func successWithStatus(c echo.Context, code int, fields map[string]any) error {
	body := make(map[string]any, len(fields)+2)
	for key, value := range fields {
		body[key] = value
	}
	body["success"] = true
	body["timestamp"] = timestamp()
	return c.JSON(code, body)
}

func fail(c echo.Context, code int, message string, details any) error {
	return c.JSON(code, failureResponse{
		Success:   false,
		Error:     message,
		Details:   details,
		Timestamp: timestamp(),
	})
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string, err error) error {
	var details any
	if err != nil {
		details = err.Error()
	}
	return fail(c, http.StatusInternalServerError, message, details)
}

func timestamp() string {
	return globaltime.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
