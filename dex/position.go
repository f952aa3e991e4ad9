package dex

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/lib/crypto"
	"github.com/goccy/go-json"
)

const NonceSize = 32

// PositionState is the lifecycle stage of a position; transitions only move forward one stage at a time
type PositionState uint8

const (
	PositionStateUnknown PositionState = iota
	PositionStateOpened    // active and tradable
	PositionStateClosed    // inactive, reserves frozen
	PositionStateWithdrawn // reserves released to the closer
	PositionStateClaimed   // terminal
)

var positionStateNames = map[PositionState]string{
	PositionStateUnknown:   "unknown",
	PositionStateOpened:    "opened",
	PositionStateClosed:    "closed",
	PositionStateWithdrawn: "withdrawn",
	PositionStateClaimed:   "claimed",
}

func (s PositionState) String() string { return positionStateNames[s] }

// ParsePositionState() converts a state name into a state
func ParsePositionState(s string) (PositionState, lib.ErrorI) {
	for state, name := range positionStateNames {
		if name == strings.ToLower(s) && state != PositionStateUnknown {
			return state, nil
		}
	}
	return PositionStateUnknown, ErrInvalidPositionState()
}

// CanTransitionTo() enforces the Opened -> Closed -> Withdrawn -> Claimed chain
func (s PositionState) CanTransitionTo(next PositionState) bool {
	return s != PositionStateUnknown && next == s+1 && next <= PositionStateClaimed
}

func (s PositionState) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *PositionState) UnmarshalJSON(bz []byte) error {
	var str string
	if err := json.Unmarshal(bz, &str); err != nil {
		return err
	}
	state, err := ParsePositionState(str)
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// PositionId is the hash of a position's trading function and nonce
type PositionId [crypto.HashSize]byte

// NewPositionId() converts raw bytes to a position id
func NewPositionId(bz []byte) (id PositionId, err lib.ErrorI) {
	if len(bz) != len(id) {
		return id, ErrInvalidPositionId()
	}
	copy(id[:], bz)
	return
}

// PositionIdFromString() parses a hex encoded position id
func PositionIdFromString(s string) (PositionId, lib.ErrorI) {
	bz, err := hex.DecodeString(s)
	if err != nil {
		return PositionId{}, ErrInvalidPositionId()
	}
	return NewPositionId(bz)
}

func (id PositionId) Bytes() []byte  { return id[:] }
func (id PositionId) String() string { return hex.EncodeToString(id[:]) }
func (id PositionId) IsZero() bool   { return id == PositionId{} }

// Compare() orders position ids lexicographically
func (id PositionId) Compare(o PositionId) int { return bytes.Compare(id[:], o[:]) }

func (id PositionId) MarshalJSON() ([]byte, error) { return json.Marshal(id.String()) }

func (id *PositionId) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	parsed, err := PositionIdFromString(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Reserves are the balances of both assets held by a position
type Reserves struct {
	R1 lib.Amount `json:"r1"`
	R2 lib.Amount `json:"r2"`
}

// IsZero() returns true if both sides are empty
func (r Reserves) IsZero() bool { return r.R1.IsZero() && r.R2.IsZero() }

// ReserveOf() returns the reserve of one side of the pair
func (r Reserves) ReserveOf(pair TradingPair, asset AssetId) (lib.Amount, lib.ErrorI) {
	switch asset {
	case pair.Asset1:
		return r.R1, nil
	case pair.Asset2:
		return r.R2, nil
	default:
		return lib.Amount{}, ErrAssetNotInPair()
	}
}

// Values() returns the reserves as asset values in canonical order
func (r Reserves) Values(pair TradingPair) []Value {
	return []Value{NewValue(pair.Asset1, r.R1), NewValue(pair.Asset2, r.R2)}
}

// Nonce distinguishes positions that share a trading function
type Nonce [NonceSize]byte

func (n Nonce) MarshalJSON() ([]byte, error) { return json.Marshal(hex.EncodeToString(n[:])) }

func (n *Nonce) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != NonceSize {
		return ErrInvalidNonce()
	}
	copy(n[:], raw)
	return nil
}

// Position is a unit of concentrated liquidity with a fixed pricing rule and mutable reserves
type Position struct {
	Phi         TradingFunction `json:"phi"`
	Nonce       Nonce           `json:"nonce"`
	State       PositionState   `json:"state"`
	Reserves    Reserves        `json:"reserves"`
	CloseOnFill bool            `json:"closeOnFill"`
}

// Id() derives the position id from the trading function and the nonce
func (p *Position) Id() PositionId {
	phi, _ := p.Phi.MarshalBinary()
	return crypto.DomainHash("position", phi, p.Nonce[:])
}

// Validate() checks the trading function and requires a funded position
func (p *Position) Validate() lib.ErrorI {
	if err := p.Phi.Validate(); err != nil {
		return err
	}
	if p.Reserves.IsZero() {
		return ErrInvalidReserves()
	}
	return nil
}

// IsTradable() returns true if the book may route through the position in the direction
func (p *Position) IsTradable(d DirectedTradingPair) bool {
	if p.State != PositionStateOpened || !p.Phi.Component.Tradable() {
		return false
	}
	out, err := p.Reserves.ReserveOf(p.Phi.Pair, d.End)
	return err == nil && !out.IsZero()
}

// PositionView is the json shape of a position including its derived id
type PositionView struct {
	Id PositionId `json:"id"`
	*Position
}

// View() attaches the derived id for query responses
func (p *Position) View() PositionView { return PositionView{Id: p.Id(), Position: p} }
