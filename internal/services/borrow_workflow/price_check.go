package borrow_workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

var (
	ErrIncompleteRound  = errors.New("price round has no update timestamp")
	ErrCarriedOverRound = errors.New("price answer carried over from an earlier round")
	ErrStalePrice       = errors.New("price is stale")
)

// PriceCheck decides whether a price sample is safe to size a borrow with.
type PriceCheck struct {
	// MaxAge is the oldest acceptable sample, measured against the chain's
	// clock. Zero disables the age check.
	MaxAge time.Duration
}

// Validate returns nil when the sample can be used. now is only consulted
// when MaxAge is set.
func (c PriceCheck) Validate(sample *entity.PriceSample, now time.Time) error {
	if sample == nil || sample.Answer == nil {
		return errors.New("price sample is empty")
	}
	switch sample.Answer.Sign() {
	case 0:
		return ErrZeroPrice
	case -1:
		return fmt.Errorf("%w: %s", ErrNegativePrice, sample.Answer)
	}

	if sample.UpdatedAt.Sign() == 0 {
		return fmt.Errorf("%w: round %s", ErrIncompleteRound, sample.RoundID)
	}
	if sample.AnsweredInRound.Cmp(sample.RoundID) < 0 {
		return fmt.Errorf("%w: answered in %s, latest %s", ErrCarriedOverRound, sample.AnsweredInRound, sample.RoundID)
	}

	if c.MaxAge <= 0 {
		return nil
	}
	if age := now.Sub(sample.UpdatedTime()); age > c.MaxAge {
		return fmt.Errorf("%w: updated %s ago, limit %s", ErrStalePrice, age.Truncate(time.Second), c.MaxAge)
	}
	return nil
}
