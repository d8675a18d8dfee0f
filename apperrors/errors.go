package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind classifies an application error and decides its HTTP status.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindGone
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindGone:
		return "gone"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Error represents an application error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindGone:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Validation reports malformed or missing input. The message is shown to the caller.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Authorization reports a bad signature or token. Callers only ever see a generic message.
func Authorization(err error) *Error {
	return &Error{Kind: KindAuthorization, Message: "invalid or expired link", Err: err}
}

// NotFound reports an absent token, session or row.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Conflict reports a request that is valid but does not apply to the current state.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Gone reports a one-time resource that expired or was already used.
func Gone(message string) *Error {
	return &Error{Kind: KindGone, Message: message}
}

// Storage wraps a database or cache failure.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Status maps any error to an HTTP status code; unknown errors are 500.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}

// Body builds the JSON body for err. Internal detail is only attached when exposeDetail is set.
func Body(err error, exposeDetail bool) gin.H {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = &Error{Kind: KindInternal, Message: "internal server error", Err: err}
	}

	switch appErr.Kind {
	case KindValidation, KindAuthorization, KindNotFound, KindConflict, KindGone:
		return gin.H{"error": appErr.Message}
	default:
		body := gin.H{"error": "internal server error"}
		if exposeDetail && appErr.Err != nil {
			body["details"] = appErr.Error()
		}
		return body
	}
}

// JSON logs err at a level matching its kind and writes the JSON error response.
func JSON(c *gin.Context, logger *zap.Logger, err error, exposeDetail bool) {
	status := Status(err)
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request rejected", fields...)
	}
	c.JSON(status, Body(err, exposeDetail))
}
