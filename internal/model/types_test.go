package model

import "testing"

func TestIsBalanceAffecting(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{TradeStatusError, false},
		{TradeStatusPending, false},
		{TradeStatusSent, false},
		{TradeStatusCompleted, false},
		{TradeStatusDeclined, false},
		{TradeStatusConfirming, true},
		{TradeStatusCanceled, true},
		{TradeStatusTimedOut, true},
		{TradeStatusCredited, true},
		{TradeStatusReverted, true},
	}

	for _, tt := range tests {
		if got := IsBalanceAffecting(tt.status); got != tt.want {
			t.Errorf("IsBalanceAffecting(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCoins(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{29, "0.29"},
		{3000, "30.00"},
		{10150, "101.50"},
		{-250, "-2.50"},
	}

	for _, tt := range tests {
		if got := Coins(tt.minor); got != tt.want {
			t.Errorf("Coins(%d) = %q, want %q", tt.minor, got, tt.want)
		}
	}
}
