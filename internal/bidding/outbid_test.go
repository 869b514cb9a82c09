package bidding

import (
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestOutbidValue(t *testing.T) {
	tests := []struct {
		highest int64
		want    int64
	}{
		{10000, 10100}, // exact
		{50, 51},       // 50.5 rounds half-up
		{149, 150},     // 150.49
		{150, 152},     // 151.5 rounds half-up
		{10, 11},       // 10.1 rounds back to 10, so ceil
		{1, 2},         // 1.01 rounds back to 1, so ceil
		{49, 50},       // 49.49 rounds back to 49, so ceil
		{0, 0},
	}

	for _, tt := range tests {
		check.Equal(t, tt.want, OutbidValue(tt.highest))
	}
}

func TestOutbidValue_AlwaysAboveHighest(t *testing.T) {
	for b := int64(1); b <= 5000; b++ {
		if v := OutbidValue(b); v <= b {
			t.Fatalf("OutbidValue(%d) = %d, not above highest", b, v)
		}
	}
}
