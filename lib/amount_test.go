package lib

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		op       func() (Amount, ErrorI)
		expected Amount
		err      ErrorI
	}{
		{
			name:     "add",
			detail:   "plain addition",
			op:       func() (Amount, ErrorI) { return NewAmount(2).Add(NewAmount(3)) },
			expected: NewAmount(5),
		},
		{
			name:   "add overflow",
			detail: "adding one to the max amount exceeds 128 bits",
			op:     func() (Amount, ErrorI) { return MaxAmount().Add(NewAmount(1)) },
			err:    ErrAmountOverflow(),
		},
		{
			name:   "sub underflow",
			detail: "subtracting a larger amount fails",
			op:     func() (Amount, ErrorI) { return NewAmount(2).Sub(NewAmount(3)) },
			err:    ErrAmountUnderflow(),
		},
		{
			name:     "mul div floor",
			detail:   "7 * 3 / 2 rounds down",
			op:       func() (Amount, ErrorI) { return NewAmount(7).MulDiv(NewAmount(3), NewAmount(2)) },
			expected: NewAmount(10),
		},
		{
			name:     "mul div ceil",
			detail:   "7 * 3 / 2 rounds up",
			op:       func() (Amount, ErrorI) { return NewAmount(7).MulDivCeil(NewAmount(3), NewAmount(2)) },
			expected: NewAmount(11),
		},
		{
			name:     "mul div ceil exact",
			detail:   "an exact quotient is not rounded",
			op:       func() (Amount, ErrorI) { return NewAmount(8).MulDivCeil(NewAmount(3), NewAmount(2)) },
			expected: NewAmount(12),
		},
		{
			name:     "mul div wide intermediate",
			detail:   "the intermediate product may exceed 128 bits",
			op:       func() (Amount, ErrorI) { return MaxAmount().MulDiv(MaxAmount(), MaxAmount()) },
			expected: MaxAmount(),
		},
		{
			name:   "mul div overflow",
			detail: "a result over 128 bits fails",
			op:     func() (Amount, ErrorI) { return MaxAmount().MulDiv(NewAmount(2), NewAmount(1)) },
			err:    ErrAmountOverflow(),
		},
		{
			name:   "divide by zero",
			detail: "zero denominators fail",
			op:     func() (Amount, ErrorI) { return NewAmount(1).MulDiv(NewAmount(1), Amount{}) },
			err:    ErrDivideByZero(),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.op()
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			require.True(t, test.expected.Equal(got), "expected %s got %s", test.expected, got)
		})
	}
}

func TestAmountMulDivCapped(t *testing.T) {
	tests := []struct {
		name           string
		detail         string
		a, num, den    Amount
		limit          Amount
		expected       Amount
		expectedCapped bool
	}{
		{
			name:     "below limit",
			detail:   "7 * 3 / 2 rounds down and stays under the limit",
			a:        NewAmount(7),
			num:      NewAmount(3),
			den:      NewAmount(2),
			limit:    NewAmount(100),
			expected: NewAmount(10),
		},
		{
			name:     "at limit",
			detail:   "a quotient equal to the limit isn't capped",
			a:        NewAmount(10),
			num:      NewAmount(1),
			den:      NewAmount(1),
			limit:    NewAmount(10),
			expected: NewAmount(10),
		},
		{
			name:           "above limit",
			detail:         "a quotient over the limit returns the limit",
			a:              NewAmount(11),
			num:            NewAmount(1),
			den:            NewAmount(1),
			limit:          NewAmount(10),
			expected:       NewAmount(10),
			expectedCapped: true,
		},
		{
			name:           "wider than 128 bits",
			detail:         "a quotient over 128 bits is capped instead of overflowing",
			a:              MaxAmount(),
			num:            MaxAmount(),
			den:            NewAmount(1),
			limit:          NewAmount(5),
			expected:       NewAmount(5),
			expectedCapped: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, capped, err := test.a.MulDivCapped(test.num, test.den, test.limit)
			require.NoError(t, err)
			require.Equal(t, test.expectedCapped, capped)
			require.True(t, test.expected.Equal(got), "expected %s got %s", test.expected, got)
		})
	}
	_, _, err := NewAmount(1).MulDivCapped(NewAmount(1), Amount{}, NewAmount(1))
	require.ErrorIs(t, err, ErrDivideByZero())
}

func TestAmountEncoding(t *testing.T) {
	max := MaxAmount()
	require.Equal(t, "340282366920938463463374607431768211455", max.String())
	// bytes
	fromBytes, err := AmountFromBytes(max.Bytes())
	require.NoError(t, err)
	require.True(t, max.Equal(fromBytes))
	require.Nil(t, Amount{}.Bytes())
	_, err = AmountFromBytes(make([]byte, 17))
	require.ErrorIs(t, err, ErrAmountOverflow())
	// json
	bz, err := MarshalJSON(max)
	require.NoError(t, err)
	require.Equal(t, `"340282366920938463463374607431768211455"`, string(bz))
	var got Amount
	require.NoError(t, UnmarshalJSON(bz, &got))
	require.True(t, max.Equal(got))
	require.NoError(t, UnmarshalJSON([]byte("42"), &got))
	require.True(t, NewAmount(42).Equal(got))
	// big
	tooBig := new(big.Int).Lsh(big.NewInt(1), AmountBits)
	_, err = AmountFromBig(tooBig)
	require.ErrorIs(t, err, ErrAmountOverflow())
	_, err = ParseAmount(tooBig.String())
	require.ErrorIs(t, err, ErrAmountOverflow())
	_, err = ParseAmount("abc")
	require.Error(t, err)
}

func TestAmountCompare(t *testing.T) {
	a, b := NewAmount(1), NewAmount(2)
	require.True(t, a.LT(b))
	require.True(t, b.GT(a))
	require.True(t, a.LTE(a))
	require.True(t, b.GTE(a))
	require.Equal(t, -1, a.Cmp(b))
	require.True(t, MinAmount(a, b).Equal(a))
	require.True(t, a.SaturatingSub(b).IsZero())
	require.True(t, b.SaturatingSub(a).Equal(NewAmount(1)))
}
