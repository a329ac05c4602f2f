package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(250000), ToMinorUnits(decimal.RequireFromString("2500.00"), "usd"))
	assert.Equal(t, int64(12346), ToMinorUnits(decimal.RequireFromString("123.455"), "USD"))
	assert.Equal(t, int64(2500), ToMinorUnits(decimal.RequireFromString("2500"), "JPY"))
	assert.True(t, FromMinorUnits(123456, "USD").Equal(decimal.RequireFromString("1234.56")))
	assert.True(t, FromMinorUnits(1500, "KWD").Equal(decimal.RequireFromString("1.5")))
}
