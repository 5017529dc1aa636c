package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"reportapi/internal/model"
	"reportapi/internal/repository"
	"reportapi/internal/service"
)

// Transfer state markers carried on upload responses. "pending" never
// appears in a response body: by the time the handler answers, the relay
// either happened or it did not.
const (
	statusSuccessful = "successful"
	statusFailed     = "failed"
)

// payload is the uniform response body of the report routes.
//
// flag mirrors code (true for 200) and exists for clients that switch on a
// boolean instead of the status. uploadStatus and transferStatus are only
// set by the upload routes.
type payload struct {
	Flag           bool                `json:"flag"`
	Code           int                 `json:"code"`
	Message        string              `json:"message"`
	Data           any                 `json:"data,omitempty"`
	UploadStatus   string              `json:"uploadStatus,omitempty"`
	TransferStatus string              `json:"transferStatus,omitempty"`
	TransferData   *model.TransferData `json:"transferData,omitempty"`
}

func ok(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(payload{
		Flag:    true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(payload{
		Code:    status,
		Message: message,
	})
}

// isValidationError reports whether err should be answered with a 400 and
// the error's own message. These all reject the request before (or while
// undoing) any side effect.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrUserIDRequired) ||
		errors.Is(err, service.ErrReportIDRequired) ||
		errors.Is(err, service.ErrFileRequired) ||
		errors.Is(err, service.ErrUnsupportedType) ||
		errors.Is(err, repository.ErrDuplicateReport)
}

// writeUploadError answers a failed create/upload call. Relay failures are
// special: the file is already committed, so the response says so and only
// the transfer is marked failed.
func writeUploadError(c *fiber.Ctx, res *service.UploadResult, err error) error {
	if isValidationError(err) {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	if errors.Is(err, service.ErrTransferFailed) && res != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(payload{
			Code:           fiber.StatusInternalServerError,
			Message:        "file stored but transfer to transcription engine failed",
			Data:           fiber.Map{"fileName": res.FileName},
			UploadStatus:   statusSuccessful,
			TransferStatus: statusFailed,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(payload{
		Code:           fiber.StatusInternalServerError,
		Message:        "internal server error",
		UploadStatus:   statusFailed,
		TransferStatus: statusFailed,
	})
}

// ErrorHandler returns a Fiber global error handler that converts errors
// which escaped the handlers into the uniform response body without leaking
// internals.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return fail(c, status, "bad request")
		case fiber.StatusNotFound:
			return fail(c, status, "resource not found")
		case fiber.StatusMethodNotAllowed:
			return fail(c, status, "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return fail(c, status, "uploaded file too large")
		default:
			return fail(c, fiber.StatusInternalServerError, "internal server error")
		}
	}
}
