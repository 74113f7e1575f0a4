package balance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(decimal.RequireFromString("100000.00"), zap.NewNop())

	tests := []struct {
		amount string
		want   bool
	}{
		{"0.01", true},
		{"100000.00", true},
		{"100000.01", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			ok, err := p.SufficientFunds(context.Background(), "c-1", decimal.RequireFromString(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
