package generator

import (
	"testing"

	"github.com/atlas-desktop/krypto-paper/pkg/types"
)

func TestAdmissibleRequiresTradeCountAndPositiveReturn(t *testing.T) {
	cases := []struct {
		name string
		r    types.BacktestResult
		want bool
	}{
		{"enough trades and positive return", types.BacktestResult{TotalTrades: 20, TotalReturnPct: 5}, true},
		{"too few trades", types.BacktestResult{TotalTrades: 5, TotalReturnPct: 5}, false},
		{"negative return", types.BacktestResult{TotalTrades: 20, TotalReturnPct: -1}, false},
		{"exactly at the trade threshold", types.BacktestResult{TotalTrades: minAdmissibleTrades, TotalReturnPct: 5}, false},
		{"zero return", types.BacktestResult{TotalTrades: 20, TotalReturnPct: 0}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := admissible(c.r); got != c.want {
				t.Fatalf("admissible(%+v) = %v, want %v", c.r, got, c.want)
			}
		})
	}
}
