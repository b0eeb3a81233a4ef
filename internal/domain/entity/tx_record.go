package entity

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Step names a unit of the borrow workflow. Read-only steps do not change
// the workflow state.
type Step string

const (
	StepResolvePool  Step = "resolve_pool"
	StepWrap         Step = "wrap"
	StepApprove      Step = "approve"
	StepDeposit      Step = "deposit"
	StepAccountData  Step = "account_data"
	StepPrice        Step = "price"
	StepSize         Step = "size"
	StepBorrow       Step = "borrow"
	StepApproveRepay Step = "approve_repay"
	StepRepay        Step = "repay"
)

// TxRecord is a transaction that reached the required confirmation depth.
type TxRecord struct {
	Step        Step
	Hash        common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// StepEvent is published after every state transition.
type StepEvent struct {
	ChainID    int64     `json:"chainId"`
	Account    string    `json:"account"`
	Step       Step      `json:"step"`
	State      string    `json:"state"`
	TxHash     string    `json:"txHash,omitempty"`
	Block      uint64    `json:"block,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
