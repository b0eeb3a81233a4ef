package entity

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is the full latestRoundData() tuple of an AggregatorV3 feed
// together with the feed's decimals.
type PriceSample struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       *big.Int
	UpdatedAt       *big.Int
	AnsweredInRound *big.Int
	Decimals        int
}

// NewPriceSample creates a PriceSample. Only structural problems are
// rejected here; whether the sample is usable is decided by the caller.
func NewPriceSample(roundID, answer, startedAt, updatedAt, answeredInRound *big.Int, decimals int) (*PriceSample, error) {
	if answer == nil {
		return nil, fmt.Errorf("answer must not be nil")
	}
	if decimals < 0 || decimals > 36 {
		return nil, fmt.Errorf("decimals out of range: %d", decimals)
	}
	zeroIfNil := func(v *big.Int) *big.Int {
		if v == nil {
			return new(big.Int)
		}
		return v
	}
	return &PriceSample{
		RoundID:         zeroIfNil(roundID),
		Answer:          answer,
		StartedAt:       zeroIfNil(startedAt),
		UpdatedAt:       zeroIfNil(updatedAt),
		AnsweredInRound: zeroIfNil(answeredInRound),
		Decimals:        decimals,
	}, nil
}

// Price returns the answer scaled by the feed decimals.
func (p *PriceSample) Price() decimal.Decimal {
	return decimal.NewFromBigInt(p.Answer, -int32(p.Decimals))
}

// UpdatedTime returns the round's update timestamp.
func (p *PriceSample) UpdatedTime() time.Time {
	return time.Unix(p.UpdatedAt.Int64(), 0).UTC()
}
