package borrow_workflow

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// AccountReading is a getUserAccountData snapshot taken at a named point of
// the run.
type AccountReading struct {
	// Label is one of "after_deposit", "after_borrow", "after_repay".
	Label    string
	Snapshot *entity.AccountSnapshot
}

// Report summarises one workflow run. It is returned even when the run
// halts, with State set to the last state reached.
type Report struct {
	Account common.Address
	Pool    common.Address
	State   entity.WorkflowState
	DryRun  bool

	Readings []AccountReading
	Price    *entity.PriceSample

	BorrowUnits  *big.Int
	BorrowAmount decimal.Decimal
	Repaid       *big.Int

	Transactions []entity.TxRecord

	StartTime time.Time
	EndTime   time.Time
}

func newReport(account common.Address, dryRun bool) *Report {
	return &Report{
		Account:   account,
		State:     entity.StatePending,
		DryRun:    dryRun,
		StartTime: time.Now(),
	}
}

func (r *Report) finalize() {
	r.EndTime = time.Now()
}

// Duration is the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Reading returns the snapshot with the given label, if taken.
func (r *Report) Reading(label string) (*entity.AccountSnapshot, bool) {
	for _, reading := range r.Readings {
		if reading.Label == label {
			return reading.Snapshot, true
		}
	}
	return nil, false
}

// StepError is returned by Run when a step fails. The workflow never rolls
// back, so State is also the on-chain position the account was left in.
type StepError struct {
	Step  entity.Step
	State entity.WorkflowState
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed (state %s): %v", e.Step, e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
