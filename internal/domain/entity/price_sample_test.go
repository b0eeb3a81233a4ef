package entity

import (
	"math/big"
	"testing"
	"time"
)

func TestNewPriceSample(t *testing.T) {
	s, err := NewPriceSample(big.NewInt(7), big.NewInt(1_000_000_000_000_000), nil, big.NewInt(1_700_000_000), big.NewInt(7), 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Price().String(); got != "0.001" {
		t.Errorf("Price = %s, want 0.001", got)
	}
	if s.StartedAt == nil || s.StartedAt.Sign() != 0 {
		t.Errorf("nil StartedAt should default to zero, got %v", s.StartedAt)
	}
	if want := time.Unix(1_700_000_000, 0).UTC(); !s.UpdatedTime().Equal(want) {
		t.Errorf("UpdatedTime = %v, want %v", s.UpdatedTime(), want)
	}
}

func TestNewPriceSample_Invalid(t *testing.T) {
	if _, err := NewPriceSample(nil, nil, nil, nil, nil, 8); err == nil {
		t.Error("expected error for nil answer")
	}
	if _, err := NewPriceSample(nil, big.NewInt(1), nil, nil, nil, -1); err == nil {
		t.Error("expected error for negative decimals")
	}
}

func TestPriceSample_PriceUsesFeedDecimals(t *testing.T) {
	s, err := NewPriceSample(nil, big.NewInt(100_050_000), nil, nil, nil, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Price().String(); got != "1.0005" {
		t.Errorf("Price = %s, want 1.0005", got)
	}
}
