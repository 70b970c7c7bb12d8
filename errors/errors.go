package errors

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
)

type ErrorType string

const (
	ErrNotFound            ErrorType = "ENTRY_NOT_FOUND_ERROR"
	ErrValidation          ErrorType = "VALIDATION_ERROR"
	ErrAuthentication      ErrorType = "AUTHENTICATION_ERROR"
	ErrInvalidToken        ErrorType = "INVALID_TOKEN_ERROR"
	ErrPermission          ErrorType = "PERMISSION_ERROR"
	ErrFailedDependency    ErrorType = "FAILED_DEPENDENCY"
	ErrFatal               ErrorType = "FATAL_ERROR"
	ErrNoRoute             ErrorType = "NO_ROUTE_ERROR"
	ErrInvalidAmount       ErrorType = "INVALID_AMOUNT_ERROR"
	ErrInsufficientBalance ErrorType = "INSUFFICIENT_BALANCE_ERROR"
	ErrSlippageExceeded    ErrorType = "SLIPPAGE_EXCEEDED_ERROR"
	ErrInfrastructure      ErrorType = "INFRASTRUCTURE_ERROR"
)

type AppError struct {
	Code     int       `json:"-"`
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Internal string    `json:"internal,omitempty"`
}

func (a AppError) Error() string {
	return fmt.Sprintf("%s: %s", a.Type, a.Message)
}

func (a AppError) Serialize(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(a.Code)
	if err := json.NewEncoder(w).Encode(a); err != nil {
		panic(a)
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsInfrastructure reports whether err is transient and safe to retry with
// the same idempotency key. Anything that is not a typed rejection counts.
func IsInfrastructure(err error) bool {
	apperr := new(AppError)
	if !errors.As(err, apperr) {
		return true
	}
	switch apperr.Type {
	case ErrInfrastructure, ErrFailedDependency, ErrFatal:
		return true
	}
	return false
}

func HandleDataDBError(err error) AppError {
	if Is(err, sql.ErrNoRows) {
		return NewNotFoundError("resource not found")
	}
	return NewFatalError(err)
}

func HandleTxDBError(err error) AppError {
	return NewInfrastructureError(err)
}

func HandleBindError(err error) AppError {
	if errors.As(err, &AppError{}) {
		return AsAppError(err)
	}

	if v, ok := err.(validator.ValidationErrors); ok {
		var message string
		switch v[0].ActualTag() {
		case "required":
			message = fmt.Sprintf("%s is requried", v[0].Field())
		case "required_without":
			message = fmt.Sprintf("%s is requried when %s is not provided", v[0].Field(), v[0].Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of values: (%s), value received: %s", v[0].Field(), v[0].Param(), v[0].Value())
		case "gt":
			message = fmt.Sprintf("%s must be greater than (%s), value received: %s", v[0].Field(), v[0].Param(), v[0].Value())
		case "gte":
			message = fmt.Sprintf("%s must be greater than or equal to (%s), value received: %s", v[0].Field(), v[0].Param(), v[0].Value())
		case "lte":
			message = fmt.Sprintf("%s must be less than or equal to (%s), value received: %s", v[0].Field(), v[0].Param(), v[0].Value())
		default:
			message = fmt.Sprintf("Validation failed on field { %s }, Condition: %s", v[0].Field(), v[0].ActualTag())
			if v[0].Param() != "" {
				message += fmt.Sprintf("{ %s }", v[0].Param())
			}
			if v[0].Value() != "" && v[0].Value() != nil {
				message += fmt.Sprintf(", Value Recieved: %v", v[0].Value())
			}
		}

		return AppError{
			Code:     http.StatusBadRequest,
			Type:     ErrValidation,
			Message:  message,
			Internal: err.Error(),
		}
	}
	if Is(err, io.EOF) {
		return NewValidationError("No request body")
	}

	vErr := NewValidationError("invalid request received")
	vErr.Internal = err.Error()

	return vErr
}

func NewValidationError(msg string) AppError {
	return AppError{
		Code:    http.StatusBadRequest,
		Type:    ErrValidation,
		Message: msg,
	}
}

func NewNotFoundError(msg string) AppError {
	return AppError{
		Code:    http.StatusNotFound,
		Type:    ErrNotFound,
		Message: msg,
	}
}

func NewPermissionError(msg string) AppError {
	return AppError{
		Code:    http.StatusForbidden,
		Type:    ErrPermission,
		Message: msg,
	}
}

func NewAuthenticationError(msg string) AppError {
	return AppError{
		Code:    http.StatusUnauthorized,
		Type:    ErrAuthentication,
		Message: msg,
	}
}

func NewInvalidTokenError() AppError {
	return AppError{
		Code:    http.StatusUnauthorized,
		Type:    ErrInvalidToken,
		Message: "Invalid token",
	}
}

func NewNoRouteError(from, to string) AppError {
	return AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    ErrNoRoute,
		Message: fmt.Sprintf("no trading route available for %s -> %s", from, to),
	}
}

func NewInvalidAmountError(msg string) AppError {
	return AppError{
		Code:    http.StatusBadRequest,
		Type:    ErrInvalidAmount,
		Message: msg,
	}
}

func NewInsufficientBalanceError(currency string) AppError {
	return AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    ErrInsufficientBalance,
		Message: fmt.Sprintf("insufficient %s balance", currency),
	}
}

func NewSlippageExceededError() AppError {
	return AppError{
		Code:    http.StatusConflict,
		Type:    ErrSlippageExceeded,
		Message: "current rate is below the quoted minimum receive; request a fresh quote",
	}
}

func NewInfrastructureError(err error) AppError {
	return AppError{
		Code:     http.StatusServiceUnavailable,
		Type:     ErrInfrastructure,
		Message:  "a dependency is unavailable; the request may be retried",
		Internal: err.Error(),
	}
}

func NewFatalError(err error) AppError {
	debug.PrintStack()
	return AppError{
		Code:     http.StatusInternalServerError,
		Type:     ErrFatal,
		Message:  "Oops! something happened on our end.",
		Internal: err.Error(),
	}
}

func NewUnknownError(err any) AppError {
	return NewFatalError(fmt.Errorf("%v", err))
}

func NewFailedDependencyError(msg string) AppError {
	return AppError{
		Code:    http.StatusFailedDependency,
		Type:    ErrFailedDependency,
		Message: msg,
	}
}

func AsAppError(err error) AppError {
	apperr := new(AppError)
	if errors.As(err, apperr) {
		return *apperr
	}
	return NewFatalError(err)
}
