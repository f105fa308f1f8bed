package events

import (
	"time"
)

// OperationCompleted is published after an operation commits.
type OperationCompleted struct {
	EventID     string    `json:"event_id"`
	OperationID string    `json:"operation_id"`
	Kind        string    `json:"kind"`
	Authority   string    `json:"authority"`
	Account     string    `json:"account"`
	Amount      uint64    `json:"amount"`
	Balance     uint64    `json:"balance"`
	Holding     uint64    `json:"holding"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// FaucetFunded is published after a faucet credit commits.
type FaucetFunded struct {
	EventID    string    `json:"event_id"`
	Address    string    `json:"address"`
	Amount     uint64    `json:"amount"`
	Holding    uint64    `json:"holding"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Topic names, relative to the configured prefix.
const (
	TopicAccountCreated = "account_created"
	TopicFundsDeposited = "funds_deposited"
	TopicFundsWithdrawn = "funds_withdrawn"
	TopicFaucetFunded   = "faucet_funded"
)
