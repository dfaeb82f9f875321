package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
	"github.com/yanqian/rockwatch/internal/domain/history"
	"github.com/yanqian/rockwatch/internal/domain/risk"
	"github.com/yanqian/rockwatch/internal/domain/site"
	apperrors "github.com/yanqian/rockwatch/pkg/errors"
)

// HTTPError is an error with the status and code sent to the client.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError builds an HTTPError.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

var errInternal = &HTTPError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "something went wrong"}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// domainError maps domain error codes onto HTTP statuses. Unknown errors
// become a 500 without leaking their text.
func domainError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	code := apperrors.CodeOf(err)
	switch {
	case code == site.CodeNotFound,
		code == history.CodeAlertNotFound,
		code == history.CodeAssessmentNotFound,
		code == evaluation.CodeNoAssessment:
		return NewHTTPError(http.StatusNotFound, code, errMessage(err), err)
	case code == history.CodeInvalidTransition:
		return NewHTTPError(http.StatusConflict, code, errMessage(err), err)
	case risk.IsInsufficientData(err):
		return NewHTTPError(http.StatusUnprocessableEntity, risk.CodeInsufficientData, errMessage(err), err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewHTTPError(http.StatusGatewayTimeout, "timeout", "request timed out", err)
	}
	return NewHTTPError(errInternal.Status, errInternal.Code, errInternal.Message, err)
}

// errMessage prefers the AppError message over the wrapped chain.
func errMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
