package ledger

import "errors"

var (
	// ErrInsufficientFunds: the recorded balance, or the record's raw
	// holding, cannot cover a withdrawal.
	ErrInsufficientFunds = errors.New("insufficient funds for withdrawal")
	// ErrOverflow: an addition would exceed the uint64 range.
	ErrOverflow = errors.New("balance overflow")
	// ErrInsufficientExternalFunds: the authority's own holding cannot
	// cover a deposit or the creation cost.
	ErrInsufficientExternalFunds = errors.New("insufficient external funds")
	// ErrAlreadyExists: a record already occupies the derived address.
	ErrAlreadyExists = errors.New("ledger account already exists")
	// ErrUnauthorized: bad signature, or the target is not the signer's record.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrOperationConflict: the operation id is already committed for a
	// different instruction.
	ErrOperationConflict = errors.New("operation id already used by a different instruction")

	ErrAccountNotFound  = errors.New("ledger account not found")
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrHoldingMismatch: a transfer did not move exactly the requested amount.
	ErrHoldingMismatch = errors.New("raw holding does not reflect transfer")
	ErrFaucetDisabled  = errors.New("faucet is disabled")
	ErrInvalidAmount   = errors.New("amount must be positive")
)

// errInsufficientValue is the primitive's own failure; callers translate it
// into the error that fits their side of the transfer.
var errInsufficientValue = errors.New("source holding too small")
