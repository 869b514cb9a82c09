package bidding

import "github.com/shopspring/decimal"

var outbidFactor = decimal.RequireFromString("1.01")

// OutbidValue returns the bid that beats highest by one percent: the value
// rounded half-up to a whole minor unit, or rounded up when rounding would
// not exceed highest.
func OutbidValue(highest int64) int64 {
	b := decimal.NewFromInt(highest)
	raised := b.Mul(outbidFactor)

	v := raised.Round(0)
	if v.Equal(b) {
		v = raised.Ceil()
	}
	return v.IntPart()
}
