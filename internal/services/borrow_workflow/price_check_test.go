package borrow_workflow

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

func sample(answer, roundID, answeredIn, updatedAt int64) *entity.PriceSample {
	return &entity.PriceSample{
		RoundID:         big.NewInt(roundID),
		Answer:          big.NewInt(answer),
		StartedAt:       big.NewInt(updatedAt),
		UpdatedAt:       big.NewInt(updatedAt),
		AnsweredInRound: big.NewInt(answeredIn),
		Decimals:        18,
	}
}

func TestPriceCheck_Validate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fresh := now.Add(-time.Hour).Unix()
	old := now.Add(-48 * time.Hour).Unix()

	tests := []struct {
		name    string
		maxAge  time.Duration
		sample  *entity.PriceSample
		wantErr error
	}{
		{"fresh", 24 * time.Hour, sample(1e15, 10, 10, fresh), nil},
		{"old sample without age limit", 0, sample(1e15, 10, 10, old), nil},
		{"stale", 24 * time.Hour, sample(1e15, 10, 10, old), ErrStalePrice},
		{"zero", 0, sample(0, 10, 10, fresh), ErrZeroPrice},
		{"negative", 0, sample(-1, 10, 10, fresh), ErrNegativePrice},
		{"incomplete round", 0, sample(1e15, 10, 10, 0), ErrIncompleteRound},
		{"carried over", 0, sample(1e15, 10, 9, fresh), ErrCarriedOverRound},
		{"timestamp ahead of chain clock", time.Hour, sample(1e15, 10, 10, now.Add(time.Minute).Unix()), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PriceCheck{MaxAge: tt.maxAge}.Validate(tt.sample, now)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPriceCheck_NilSample(t *testing.T) {
	if err := (PriceCheck{}).Validate(nil, time.Now()); err == nil {
		t.Error("expected error for nil sample")
	}
}
