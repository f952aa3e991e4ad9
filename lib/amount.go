package lib

import (
	"math/big"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/holiman/uint256"
)

/* This file implements the checked 128-bit unsigned quantity used for every reserve, input and output */

const (
	AmountBits  = 128 // every amount is an unsigned 128-bit integer
	AmountBytes = AmountBits / 8
)

// Amount is an unsigned 128-bit integer with checked arithmetic
// NOTE: the zero value is a valid 0 amount
type Amount struct {
	v uint256.Int
}

// NewAmount() constructs an amount from a native integer
func NewAmount(u uint64) Amount {
	a := Amount{}
	a.v.SetUint64(u)
	return a
}

// MaxAmount() returns 2^128 - 1
func MaxAmount() Amount {
	a := Amount{}
	a.v.Lsh(uint256.NewInt(1), AmountBits)
	a.v.SubUint64(&a.v, 1)
	return a
}

// ParseAmount() parses a base 10 string into an amount
func ParseAmount(s string) (Amount, ErrorI) {
	a := Amount{}
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, ErrInvalidAmountText(s)
	}
	if a.v.BitLen() > AmountBits {
		return Amount{}, ErrAmountOverflow()
	}
	return a, nil
}

// AmountFromBig() converts a big integer into an amount, rejecting negatives and values over 128 bits
func AmountFromBig(b *big.Int) (Amount, ErrorI) {
	if b.Sign() < 0 {
		return Amount{}, ErrAmountUnderflow()
	}
	if b.BitLen() > AmountBits {
		return Amount{}, ErrAmountOverflow()
	}
	a := Amount{}
	a.v.SetFromBig(b)
	return a, nil
}

// AmountFromBytes() decodes the big endian byte form of an amount
func AmountFromBytes(bz []byte) (Amount, ErrorI) {
	if len(bz) > AmountBytes {
		return Amount{}, ErrAmountOverflow()
	}
	a := Amount{}
	a.v.SetBytes(bz)
	return a, nil
}

// Add() returns a + b or an overflow error
func (a Amount) Add(b Amount) (Amount, ErrorI) {
	out := Amount{}
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow || out.v.BitLen() > AmountBits {
		return Amount{}, ErrAmountOverflow()
	}
	return out, nil
}

// Sub() returns a - b or an underflow error
func (a Amount) Sub(b Amount) (Amount, ErrorI) {
	out := Amount{}
	if _, underflow := out.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrAmountUnderflow()
	}
	return out, nil
}

// SaturatingSub() returns a - b floored at zero
func (a Amount) SaturatingSub(b Amount) Amount {
	if a.LTE(b) {
		return Amount{}
	}
	out := Amount{}
	out.v.Sub(&a.v, &b.v)
	return out
}

// MulDiv() returns floor(a * num / den) using a full width intermediate product
func (a Amount) MulDiv(num, den Amount) (Amount, ErrorI) {
	if den.IsZero() {
		return Amount{}, ErrDivideByZero()
	}
	out := Amount{}
	if _, overflow := out.v.MulDivOverflow(&a.v, &num.v, &den.v); overflow || out.v.BitLen() > AmountBits {
		return Amount{}, ErrAmountOverflow()
	}
	return out, nil
}

// MulDivCapped() returns min(floor(a * num / den), limit) and whether the limit applied
// a quotient wider than 128 bits is not an error, it is simply above any limit
func (a Amount) MulDivCapped(num, den, limit Amount) (out Amount, capped bool, err ErrorI) {
	if den.IsZero() {
		return Amount{}, false, ErrDivideByZero()
	}
	full := new(uint256.Int)
	if _, overflow := full.MulDivOverflow(&a.v, &num.v, &den.v); overflow || full.Gt(&limit.v) {
		return limit, true, nil
	}
	out.v = *full
	return out, false, nil
}

// MulDivCeil() returns ceil(a * num / den) using a full width intermediate product
func (a Amount) MulDivCeil(num, den Amount) (Amount, ErrorI) {
	out, err := a.MulDiv(num, den)
	if err != nil {
		return Amount{}, err
	}
	rem := new(uint256.Int).MulMod(&a.v, &num.v, &den.v)
	if rem.IsZero() {
		return out, nil
	}
	return out.Add(NewAmount(1))
}

// Cmp() returns -1, 0 or +1 comparing a to b
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) LT(b Amount) bool  { return a.v.Lt(&b.v) }
func (a Amount) GT(b Amount) bool  { return a.v.Gt(&b.v) }
func (a Amount) LTE(b Amount) bool { return !a.v.Gt(&b.v) }
func (a Amount) GTE(b Amount) bool { return !a.v.Lt(&b.v) }
func (a Amount) Equal(b Amount) bool {
	return a.v.Eq(&b.v)
}

// IsZero() returns true if the amount is 0
func (a Amount) IsZero() bool { return a.v.IsZero() }

// MinAmount() returns the smaller of two amounts
func MinAmount(a, b Amount) Amount {
	if a.LT(b) {
		return a
	}
	return b
}

// Uint64() returns the low 64 bits of the amount
func (a Amount) Uint64() uint64 { return a.v.Uint64() }

// Big() returns the amount as a new big integer
func (a Amount) Big() *big.Int { return a.v.ToBig() }

// Bytes() returns the minimal big endian encoding of the amount, empty for zero
func (a Amount) Bytes() []byte {
	if a.IsZero() {
		return nil
	}
	return a.v.Bytes()
}

// String() returns the base 10 representation
func (a Amount) String() string { return a.v.Dec() }

// MarshalJSON() encodes the amount as a quoted base 10 string so no precision is lost in javascript clients
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.v.Dec())), nil
}

// UnmarshalJSON() accepts both a quoted decimal string and a bare json number
func (a *Amount) UnmarshalJSON(bz []byte) error {
	var s string
	if len(bz) > 0 && bz[0] == '"' {
		if err := json.Unmarshal(bz, &s); err != nil {
			return err
		}
	} else {
		s = string(bz)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
