package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/ledger"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

// InstructionRequest is the wire form of a signed instruction. Keys and the
// signature are base58.
type InstructionRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=create deposit withdraw"`
	OperationID string `json:"operation_id" validate:"required,uuid"`
	Authority   string `json:"authority" validate:"required"`
	Account     string `json:"account" validate:"required"`
	Amount      uint64 `json:"amount"`
	Signature   string `json:"signature" validate:"required"`
}

func NewInstructionRequest(si models.SignedInstruction) InstructionRequest {
	return InstructionRequest{
		Kind:        si.Kind.String(),
		OperationID: si.OperationID.String(),
		Authority:   si.Authority.String(),
		Account:     si.Account.String(),
		Amount:      si.Amount,
		Signature:   base58.Encode(si.Signature),
	}
}

// SignedInstruction decodes the request. It does not check the signature.
func (r InstructionRequest) SignedInstruction() (models.SignedInstruction, error) {
	kind, err := models.ParseOpKind(r.Kind)
	if err != nil {
		return models.SignedInstruction{}, err
	}
	opID, err := uuid.Parse(r.OperationID)
	if err != nil {
		return models.SignedInstruction{}, fmt.Errorf("operation_id: %w", err)
	}
	authority, err := identity.ParsePublicKey(r.Authority)
	if err != nil {
		return models.SignedInstruction{}, fmt.Errorf("authority: %w", err)
	}
	account, err := identity.ParsePublicKey(r.Account)
	if err != nil {
		return models.SignedInstruction{}, fmt.Errorf("account: %w", err)
	}
	sig, err := base58.Decode(r.Signature)
	if err != nil {
		return models.SignedInstruction{}, fmt.Errorf("signature: %w", err)
	}
	return models.SignedInstruction{
		Instruction: models.Instruction{
			Kind:        kind,
			OperationID: opID,
			Authority:   authority,
			Account:     account,
			Amount:      r.Amount,
		},
		Signature: sig,
	}, nil
}

type AccountResponse struct {
	Address      string          `json:"address"`
	Authority    string          `json:"authority"`
	Balance      uint64          `json:"balance"`
	BalanceUnits decimal.Decimal `json:"balance_units"`
	Holding      uint64          `json:"holding"`
}

func newAccountResponse(addr identity.PublicKey, acct models.LedgerAccount, holding uint64) AccountResponse {
	return AccountResponse{
		Address:      addr.String(),
		Authority:    acct.Authority.String(),
		Balance:      acct.Balance,
		BalanceUnits: models.ToUnits(acct.Balance),
		Holding:      holding,
	}
}

type InstructionResponse struct {
	OperationID string          `json:"operation_id"`
	Kind        string          `json:"kind"`
	Replayed    bool            `json:"replayed"`
	Account     AccountResponse `json:"account"`
}

func newInstructionResponse(res ledger.Result) InstructionResponse {
	return InstructionResponse{
		OperationID: res.OperationID.String(),
		Kind:        res.Kind.String(),
		Replayed:    res.Replayed,
		Account:     newAccountResponse(res.Address, res.Account, res.Holding),
	}
}

type ProgramResponse struct {
	ProgramID     string `json:"program_id"`
	CreationFee   uint64 `json:"creation_fee"`
	SigningDomain string `json:"signing_domain"`
	UnitDecimals  int    `json:"unit_decimals"`
	FaucetEnabled bool   `json:"faucet_enabled"`
}

// AuthorityAccountResponse describes where an authority's record lives and,
// when it exists, its contents.
type AuthorityAccountResponse struct {
	Authority string           `json:"authority"`
	Address   string           `json:"address"`
	Bump      uint8            `json:"bump"`
	Exists    bool             `json:"exists"`
	Account   *AccountResponse `json:"account,omitempty"`
}

type HoldingResponse struct {
	Address      string          `json:"address"`
	Holding      uint64          `json:"holding"`
	HoldingUnits decimal.Decimal `json:"holding_units"`
}

type FaucetRequest struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"gt=0"`
}

type EntryResponse struct {
	ID          string          `json:"id"`
	OperationID string          `json:"operation_id"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newEntryResponses(entries []models.LedgerEntry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			ID:          e.ID.String(),
			OperationID: e.OperationID.String(),
			Amount:      e.Amount,
			Memo:        e.Memo,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
