// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrUpstream         = errors.New("upstream provider failure")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type AppError struct {
	Err        error  `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"error"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message, code string, status int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: status,
	}
}

// WithDetails attaches diagnostic text that is returned to the caller.
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, "VALIDATION_ERROR", http.StatusBadRequest)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrUnauthorized, message, "UNAUTHORIZED", http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, message, "FORBIDDEN", http.StatusForbidden)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrNotFound, resource+" not found", "NOT_FOUND", http.StatusNotFound)
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", "TOKEN_EXPIRED", http.StatusUnauthorized)
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "invalid token", "TOKEN_INVALID", http.StatusUnauthorized)
}

func UpstreamError(message string, err error) *AppError {
	return NewAppError(err, message, "UPSTREAM_ERROR", http.StatusInternalServerError)
}

func FormatValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}

	return strings.Join(msgs, "; ")
}
