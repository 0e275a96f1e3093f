package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Error type codes returned to clients. Controllers and services wrap
// failures into AppError so the middleware can pick the right status.
const (
	ErrTypeValidation          = "validation"
	ErrTypeUnsupportedSource   = "unsupported_source"
	ErrTypeUnsupportedProvider = "unsupported_provider"
	ErrTypeTransientFetch      = "transient_fetch"
	ErrTypeSizeLimitExceeded   = "size_limit_exceeded"
	ErrTypeExtractionFailure   = "extraction_failure"
	ErrTypeModelOutputParse    = "model_output_parse"
	ErrTypeTimeout             = "timeout"
	ErrTypeNotFound            = "not_found"
	ErrTypeInternal            = "internal"
)

type AppError struct {
	Type    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(errType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Err: cause}
}

// StatusFor maps an error type to an HTTP status code.
func StatusFor(errType string) int {
	switch errType {
	case ErrTypeValidation, ErrTypeUnsupportedSource, ErrTypeUnsupportedProvider:
		return fiber.StatusBadRequest
	case ErrTypeSizeLimitExceeded:
		return fiber.StatusRequestEntityTooLarge
	case ErrTypeNotFound:
		return fiber.StatusNotFound
	case ErrTypeTimeout:
		return fiber.StatusGatewayTimeout
	case ErrTypeTransientFetch:
		return fiber.StatusBadGateway
	case ErrTypeExtractionFailure, ErrTypeModelOutputParse:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware converts errors bubbled up from handlers into a
// consistent JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var appErr *AppError
		if errors.As(err, &appErr) {
			status := StatusFor(appErr.Type)
			return ctx.Status(status).JSON(ErrorBody{
				Success: false,
				Code:    status,
				Message: appErr.Message,
				Type:    appErr.Type,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorBody{
			Success: false,
			Code:    fiber.StatusInternalServerError,
			Message: err.Error(),
			Type:    ErrTypeInternal,
		})
	}
}
