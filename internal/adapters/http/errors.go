package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadGateway, "write_failed", msg)
}

// errUnprocessable reports a missing required field.
func errUnprocessable(c *fiber.Ctx, field, msg string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(fiber.StatusUnprocessableEntity).JSON(APIError{
		Status:    fiber.StatusUnprocessableEntity,
		Code:      "unprocessable",
		Message:   msg,
		Field:     field,
		RequestID: reqID,
	})
}

// writeDomainError maps session and workflow errors onto the API envelope.
func writeDomainError(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	var wf *domain.WriteFailure
	switch {
	case errors.As(err, &ve):
		return errUnprocessable(c, ve.Field, ve.Error())
	case errors.Is(err, domain.ErrSubmissionInFlight), errors.Is(err, domain.ErrDuplicateID):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrPersistenceUnavailable):
		return errUnavailable(c, err.Error())
	case errors.As(err, &wf):
		return errBadGateway(c, wf.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("unhandled error", "error", err)
		return errInternal(c, "internal error")
	}
}
