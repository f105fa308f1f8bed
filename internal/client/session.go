package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sheikh-saqib/custodial-ledger/internal/api"
	"github.com/sheikh-saqib/custodial-ledger/internal/identity"
	"github.com/sheikh-saqib/custodial-ledger/internal/models"
)

// Session signs instructions for one authority against one program.
type Session struct {
	*Client
	keypair   identity.Keypair
	programID identity.PublicKey
}

// NewSession binds kp to programID. A nil programID is fetched from the
// server.
func NewSession(ctx context.Context, c *Client, kp identity.Keypair, programID *identity.PublicKey) (*Session, error) {
	s := &Session{Client: c, keypair: kp}
	if programID != nil {
		s.programID = *programID
		return s, nil
	}
	prog, err := c.Program(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch program id: %w", err)
	}
	id, err := identity.ParsePublicKey(prog.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("server program id: %w", err)
	}
	s.programID = id
	return s, nil
}

func (s *Session) Authority() identity.PublicKey { return s.keypair.PublicKey() }
func (s *Session) ProgramID() identity.PublicKey { return s.programID }

func (s *Session) Address() (identity.PublicKey, uint8, error) {
	return models.DeriveAccountAddress(s.programID, s.keypair.PublicKey())
}

// Lookup fetches the session's record. found is false when it does not
// exist yet.
func (s *Session) Lookup(ctx context.Context) (acct api.AccountResponse, found bool, err error) {
	addr, _, err := s.Address()
	if err != nil {
		return acct, false, err
	}
	acct, err = s.Account(ctx, addr)
	if IsNotFound(err) {
		return acct, false, nil
	}
	return acct, err == nil, err
}

func (s *Session) Execute(ctx context.Context, kind models.OpKind, amount uint64) (api.InstructionResponse, error) {
	ins, err := models.NewInstruction(kind, s.programID, s.keypair.PublicKey(), amount)
	if err != nil {
		return api.InstructionResponse{}, err
	}
	return s.Submit(ctx, ins.Sign(s.keypair))
}

func (s *Session) Init(ctx context.Context) (api.InstructionResponse, error) {
	return s.Execute(ctx, models.OpCreate, 0)
}

func (s *Session) Deposit(ctx context.Context, amount uint64) (api.InstructionResponse, error) {
	return s.Execute(ctx, models.OpDeposit, amount)
}

func (s *Session) Withdraw(ctx context.Context, amount uint64) (api.InstructionResponse, error) {
	return s.Execute(ctx, models.OpWithdraw, amount)
}

// Demo walks the record through its lifecycle: create it if missing,
// deposit, then withdraw, reporting each step to w. It returns the final
// recorded balance.
func (s *Session) Demo(ctx context.Context, w io.Writer, deposit, withdraw uint64) (uint64, error) {
	addr, _, err := s.Address()
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "account  = %s\n", addr)

	acct, found, err := s.Lookup(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch account: %w", err)
	}
	if found {
		fmt.Fprintf(w, "exists   balance = %d\n", acct.Balance)
	} else {
		res, err := s.Init(ctx)
		if err != nil {
			return 0, fmt.Errorf("init: %w", err)
		}
		fmt.Fprintf(w, "init     op = %s\n", res.OperationID)
	}

	res, err := s.Deposit(ctx, deposit)
	if err != nil {
		return 0, fmt.Errorf("deposit: %w", err)
	}
	fmt.Fprintf(w, "deposit  op = %s\n", res.OperationID)
	fmt.Fprintf(w, "balance  = %d (%s units)\n", res.Account.Balance, res.Account.BalanceUnits)

	res, err = s.Withdraw(ctx, withdraw)
	if err != nil {
		return 0, fmt.Errorf("withdraw: %w", err)
	}
	fmt.Fprintf(w, "withdraw op = %s\n", res.OperationID)
	fmt.Fprintf(w, "final    = %d (%s units)\n", res.Account.Balance, res.Account.BalanceUnits)
	return res.Account.Balance, nil
}

// IsNotFound reports whether err is the server's 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
