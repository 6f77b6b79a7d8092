package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEstimateFee(t *testing.T) {
	cases := []struct {
		gross string
		fee   string
	}{
		{"1.00", "0.33"},
		{"25.00", "1.03"},   // 0.725 + 0.30 = 1.025 rounds half-up
		{"100.00", "3.20"},  // 2.90 + 0.30
		{"1000.00", "29.30"},
		{"33.33", "1.27"}, // 0.966... + 0.30 = 1.26657
	}

	for _, tc := range cases {
		gross := decimal.RequireFromString(tc.gross)
		fee := EstimateFee(gross)
		if fee.String() != decimal.RequireFromString(tc.fee).String() {
			t.Fatalf("EstimateFee(%s) = %s, want %s", tc.gross, fee, tc.fee)
		}
	}
}

func TestNetAmountInvariants(t *testing.T) {
	for _, gross := range []string{"1.00", "5.50", "42.00", "250.75", "9999.99"} {
		g := decimal.RequireFromString(gross)
		fee := EstimateFee(g)
		net := NetAmount(g)

		if !net.Equal(g.Sub(fee)) {
			t.Fatalf("net %s != gross %s - fee %s", net, g, fee)
		}
		if !net.LessThan(g) {
			t.Fatalf("net %s should be less than gross %s", net, g)
		}
	}
}
