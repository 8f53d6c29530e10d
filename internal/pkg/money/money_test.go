package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits_RoundsToNearest(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"50", 5000},
		{"50.00", 5000},
		{"12.34", 1234},
		{"12.345", 1235},
		{"12.344", 1234},
		{"-50", -5000},
		{"-12.345", -1235},
		{"0.005", 1},
	}
	for _, c := range cases {
		d, err := decimal.NewFromString(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, ToMinorUnits(d), "input %s", c.in)
	}
}

func TestFromMinorUnits_IsInverse(t *testing.T) {
	for _, minor := range []int64{0, 1, -1, 5000, -5000, 1234567, -99} {
		round := ToMinorUnits(FromMinorUnits(minor))
		assert.Equal(t, minor, round)
	}
}

func TestParseAmount(t *testing.T) {
	minor, err := ParseAmount("49.99")
	require.NoError(t, err)
	assert.Equal(t, int64(4999), minor)

	_, err = ParseAmount("not-a-number")
	assert.Error(t, err)

	_, err = ParseAmount("")
	assert.Error(t, err)
}

func TestSignHelpers(t *testing.T) {
	assert.Equal(t, int64(500), Abs(-500))
	assert.Equal(t, int64(500), Abs(500))
	assert.Equal(t, int64(-500), Negate(500))
	assert.Equal(t, int64(-500), Negate(-500))
}
