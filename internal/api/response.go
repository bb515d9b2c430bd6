package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"shared-menu/internal/apperrors"
	"shared-menu/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Error writes err as an error envelope.
func Error(c echo.Context, err error) error {
	status, info := errorInfo(err)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, Response{
		Success:   false,
		Error:     info,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// errorInfo maps err onto a status and a client-facing error. Internal
// details never leave the process.
func errorInfo(err error) (int, *ErrorInfo) {
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, &ErrorInfo{
			Code:    apperrors.CodeValidation,
			Message: validationMessage(validationErr),
		}
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, &ErrorInfo{Code: appErr.Code, Message: appErr.Message}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := apperrors.CodeBadRequest
		switch httpErr.Code {
		case http.StatusNotFound:
			code = apperrors.CodeNotFound
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		}
		message, ok := httpErr.Message.(string)
		if !ok {
			message = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, &ErrorInfo{Code: code, Message: message}
	}

	return http.StatusInternalServerError, &ErrorInfo{
		Code:    apperrors.CodeInternal,
		Message: "An unexpected error occurred",
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Invalid input data"
	}

	err := errs[0]
	field := strings.ToLower(err.Field())
	param := err.Param()
	switch err.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + param
	case "max":
		return field + " must be at most " + param
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return field + " must be one of: " + param
	case "cooking_time":
		return "cooking time must be between 5 and 180 minutes, in steps of 5"
	default:
		return field + " is invalid"
	}
}

// HTTPErrorHandler renders errors returned by handlers and by echo itself
// (unknown routes, bind failures) as envelopes.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if writeErr := Error(c, err); writeErr != nil {
		logger.Error("failed to write error response: %v", writeErr)
	}
}
