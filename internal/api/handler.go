package api

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/ledger"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

// Handler serves the ledger's HTTP routes.
type Handler struct {
	ledger   *ledger.Ledger
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler builds a Handler over l. A nil logger discards logs.
func NewHandler(l *ledger.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		ledger:   l,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(zap.String("component", "api")),
	}
}

// Health answers GET /health.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Program answers GET /v1/program with what a client needs to derive
// addresses and sign instructions.
func (h *Handler) Program(c *fiber.Ctx) error {
	return c.JSON(ProgramResponse{
		ProgramID:     h.ledger.ProgramID().String(),
		CreationFee:   h.ledger.CreationFee(),
		SigningDomain: models.SigningDomain,
		UnitDecimals:  models.UnitDecimals,
		FaucetEnabled: h.ledger.FaucetEnabled(),
	})
}

// AuthorityAccount answers GET /v1/authorities/:authority/account. A missing
// record is not an error; Exists is false.
func (h *Handler) AuthorityAccount(c *fiber.Ctx) error {
	authority, err := identity.ParsePublicKey(c.Params("authority"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	addr, bump, err := h.ledger.DeriveAddress(authority)
	if err != nil {
		return h.fail(c, err)
	}

	resp := AuthorityAccountResponse{
		Authority: authority.String(),
		Address:   addr.String(),
		Bump:      bump,
	}
	acct, err := h.ledger.GetAccount(c.UserContext(), addr)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return c.JSON(resp)
	case err != nil:
		return h.fail(c, err)
	}
	holding, err := h.ledger.GetHolding(c.UserContext(), addr)
	if err != nil {
		return h.fail(c, err)
	}
	ar := newAccountResponse(addr, acct, holding)
	resp.Exists = true
	resp.Account = &ar
	return c.JSON(resp)
}

// Account answers GET /v1/accounts/:address, 404 when no record is there.
func (h *Handler) Account(c *fiber.Ctx) error {
	addr, err := identity.ParsePublicKey(c.Params("address"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	acct, err := h.ledger.GetAccount(c.UserContext(), addr)
	if err != nil {
		return h.fail(c, err)
	}
	holding, err := h.ledger.GetHolding(c.UserContext(), addr)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(newAccountResponse(addr, acct, holding))
}

// Entries answers GET /v1/accounts/:address/entries.
func (h *Handler) Entries(c *fiber.Ctx) error {
	addr, err := identity.ParsePublicKey(c.Params("address"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	entries, err := h.ledger.GetLedgerEntries(c.UserContext(), addr)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(newEntryResponses(entries))
}

// Holding answers GET /v1/holdings/:address for any address.
func (h *Handler) Holding(c *fiber.Ctx) error {
	addr, err := identity.ParsePublicKey(c.Params("address"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	holding, err := h.ledger.GetHolding(c.UserContext(), addr)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(HoldingResponse{
		Address:      addr.String(),
		Holding:      holding,
		HoldingUnits: models.ToUnits(holding),
	})
}

// SubmitInstruction executes a signed instruction. A fresh operation answers
// 201; resubmitting a committed operation answers 200 with the current
// state, and reusing its id for a different instruction answers 409.
func (h *Handler) SubmitInstruction(c *fiber.Ctx) error {
	var req InstructionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	si, err := req.SignedInstruction()
	if err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.ledger.Execute(c.UserContext(), si)
	if err != nil {
		return h.fail(c, err)
	}

	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(newInstructionResponse(res))
}

// Faucet answers POST /v1/faucet, 403 unless the faucet is enabled.
func (h *Handler) Faucet(c *fiber.Ctx) error {
	if !h.ledger.FaucetEnabled() {
		return h.fail(c, ledger.ErrFaucetDisabled)
	}
	var req FaucetRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	addr, err := identity.ParsePublicKey(req.Address)
	if err != nil {
		return badRequest(c, err.Error())
	}

	holding, err := h.ledger.Airdrop(c.UserContext(), addr, req.Amount)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(HoldingResponse{
		Address:      addr.String(),
		Holding:      holding,
		HoldingUnits: models.ToUnits(holding),
	})
}

// bind parses the JSON body into dst and validates it.
func (h *Handler) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("malformed body: %w", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %q failed %q validation", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// fail renders err. Only infrastructure failures are logged.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if !ledger.IsDomainError(err) {
		h.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return respondError(c, err)
}
