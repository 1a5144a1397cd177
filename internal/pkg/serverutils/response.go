package serverutils

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// ApiError carries an HTTP status through the handler chain to the error
// middleware.
type ApiError struct {
	Code    int
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(code int, message string) *ApiError {
	return &ApiError{Code: code, Message: message}
}

// ErrorHandlerMiddleware converts returned errors into the shared envelope.
// Unknown errors become 500s with a generic message; the details go to logs
// only.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var apiErr *ApiError
		if errors.As(err, &apiErr) {
			return ctx.Status(apiErr.Code).JSON(Response[any]{
				Success: false,
				Message: apiErr.Message,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(Response[any]{
				Success: false,
				Message: fiberErr.Message,
			})
		}

		log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		return ctx.Status(fiber.StatusInternalServerError).JSON(Response[any]{
			Success: false,
			Message: "Internal server error",
		})
	}
}
