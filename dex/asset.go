package dex

import (
	"bytes"
	"encoding/hex"

	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/lib/crypto"
	"github.com/goccy/go-json"
)

/* This file implements the asset identifiers, values and (directed) trading pairs of the dex */

const AssetIdSize = 32

// AssetId is the 32 byte identifier of a token; its total order is bytewise lexicographic
type AssetId [AssetIdSize]byte

// NewAssetId() converts raw bytes to an asset id
func NewAssetId(bz []byte) (a AssetId, err lib.ErrorI) {
	if len(bz) != AssetIdSize {
		return a, ErrInvalidAssetId()
	}
	copy(a[:], bz)
	return
}

// AssetIdFromString() parses a hex encoded asset id
func AssetIdFromString(s string) (AssetId, lib.ErrorI) {
	bz, err := lib.StringToBytes(s)
	if err != nil {
		return AssetId{}, ErrInvalidAssetId()
	}
	return NewAssetId(bz)
}

// AssetIdFromDenom() derives the asset id of a human readable denomination
func AssetIdFromDenom(denom string) AssetId {
	return crypto.DomainHash("asset", []byte(denom))
}

func (a AssetId) Bytes() []byte  { return a[:] }
func (a AssetId) String() string { return hex.EncodeToString(a[:]) }
func (a AssetId) IsZero() bool   { return a == AssetId{} }

// Compare() orders asset ids lexicographically
func (a AssetId) Compare(b AssetId) int { return bytes.Compare(a[:], b[:]) }

// Less() returns true if a sorts before b
func (a AssetId) Less(b AssetId) bool { return a.Compare(b) < 0 }

// MarshalJSON() encodes the asset id as a hex string
func (a AssetId) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

// UnmarshalJSON() decodes a hex string into an asset id
func (a *AssetId) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	id, err := AssetIdFromString(s)
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// Value is an amount of a specific asset
type Value struct {
	Amount lib.Amount `json:"amount"`
	Asset  AssetId    `json:"assetId"`
}

// NewValue() is a convenience constructor
func NewValue(asset AssetId, amount lib.Amount) Value { return Value{Amount: amount, Asset: asset} }

// TradingPair is an unordered pair of distinct assets stored in canonical order (Asset1 < Asset2)
type TradingPair struct {
	Asset1 AssetId `json:"asset1"`
	Asset2 AssetId `json:"asset2"`
}

// NewTradingPair() canonicalizes the two assets, rejecting a pair of an asset with itself
func NewTradingPair(a, b AssetId) (TradingPair, lib.ErrorI) {
	switch a.Compare(b) {
	case 0:
		return TradingPair{}, ErrInvalidTradingPair()
	case 1:
		a, b = b, a
	}
	return TradingPair{Asset1: a, Asset2: b}, nil
}

// Validate() ensures the pair is canonical
func (p TradingPair) Validate() lib.ErrorI {
	if !p.Asset1.Less(p.Asset2) {
		return ErrInvalidTradingPair()
	}
	return nil
}

// Bytes() returns the 64 byte canonical encoding of the pair
func (p TradingPair) Bytes() []byte { return append(p.Asset1.Bytes(), p.Asset2.Bytes()...) }

// Contains() returns true if the asset is either side of the pair
func (p TradingPair) Contains(a AssetId) bool { return p.Asset1 == a || p.Asset2 == a }

// Directed() orients the pair starting from the start asset
func (p TradingPair) Directed(start AssetId) (DirectedTradingPair, lib.ErrorI) {
	switch start {
	case p.Asset1:
		return DirectedTradingPair{Start: p.Asset1, End: p.Asset2}, nil
	case p.Asset2:
		return DirectedTradingPair{Start: p.Asset2, End: p.Asset1}, nil
	default:
		return DirectedTradingPair{}, ErrAssetNotInPair()
	}
}

func (p TradingPair) String() string { return lib.BytesToTruncatedString(p.Asset1.Bytes()) + "/" + lib.BytesToTruncatedString(p.Asset2.Bytes()) }

// DirectedTradingPair is a pair with a swap direction: Start is sold for End
type DirectedTradingPair struct {
	Start AssetId `json:"start"`
	End   AssetId `json:"end"`
}

// Validate() rejects a direction from an asset to itself
func (d DirectedTradingPair) Validate() lib.ErrorI {
	if d.Start == d.End {
		return ErrInvalidTradingPair()
	}
	return nil
}

// ToCanonical() drops the direction
func (d DirectedTradingPair) ToCanonical() TradingPair {
	p, _ := NewTradingPair(d.Start, d.End)
	return p
}

// Flip() reverses the direction
func (d DirectedTradingPair) Flip() DirectedTradingPair { return DirectedTradingPair{Start: d.End, End: d.Start} }

// StartsAtAsset1() returns true if the direction sells the first canonical asset
func (d DirectedTradingPair) StartsAtAsset1() bool { return d.Start.Less(d.End) }

// Bytes() returns start followed by end
func (d DirectedTradingPair) Bytes() []byte { return append(d.Start.Bytes(), d.End.Bytes()...) }

func (d DirectedTradingPair) String() string { return lib.BytesToTruncatedString(d.Start.Bytes()) + "->" + lib.BytesToTruncatedString(d.End.Bytes()) }
