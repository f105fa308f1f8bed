package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/sheikh-saqib/custodial-ledger/internal/ledger"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (e ErrorResponse) Error() string {
	return e.Message
}

func writeError(c *fiber.Ctx, status int, title, message string) error {
	return c.Status(status).JSON(ErrorResponse{Code: status, Title: title, Message: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return writeError(c, fiber.StatusBadRequest, "invalid_request", message)
}

var errorStatuses = []struct {
	err    error
	status int
	title  string
}{
	{ledger.ErrUnauthorized, fiber.StatusUnauthorized, "unauthorized"},
	{ledger.ErrAccountNotFound, fiber.StatusNotFound, "account_not_found"},
	{ledger.ErrAlreadyExists, fiber.StatusConflict, "already_exists"},
	{ledger.ErrOperationConflict, fiber.StatusConflict, "operation_conflict"},
	{ledger.ErrInsufficientFunds, fiber.StatusUnprocessableEntity, "insufficient_funds"},
	{ledger.ErrInsufficientExternalFunds, fiber.StatusUnprocessableEntity, "insufficient_external_funds"},
	{ledger.ErrOverflow, fiber.StatusUnprocessableEntity, "overflow"},
	{ledger.ErrHoldingMismatch, fiber.StatusUnprocessableEntity, "holding_mismatch"},
	{ledger.ErrUnknownOperation, fiber.StatusBadRequest, "unknown_operation"},
	{ledger.ErrInvalidAmount, fiber.StatusBadRequest, "invalid_amount"},
	{ledger.ErrFaucetDisabled, fiber.StatusForbidden, "faucet_disabled"},
}

// respondError renders a ledger error. Anything that is not a ledger
// rejection is reported as a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return writeError(c, m.status, m.title, err.Error())
		}
	}
	return writeError(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}

// errorHandler renders errors that escape handlers, such as unknown routes
// and body limits, through the same ErrorResponse contract.
func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return writeError(c, fiberErr.Code, "request_failed", fiberErr.Message)
	}
	return respondError(c, err)
}
