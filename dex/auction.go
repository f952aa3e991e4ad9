package dex

import (
	"encoding/hex"
	"strings"

	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/lib/crypto"
	"github.com/goccy/go-json"
)

/*
	A Dutch auction sells a fixed input for a declining price. The auction drives a single fee-less position in the
	book: at each of StepCount evenly spaced trigger heights the previous position is closed and withdrawn into the
	auction reserves and a new position is opened for the remaining input at the next lower price. The trigger at
	EndHeight ends the auction.
*/

// AuctionId is the hash of an auction description
type AuctionId [crypto.HashSize]byte

// NewAuctionId() converts raw bytes to an auction id
func NewAuctionId(bz []byte) (id AuctionId, err lib.ErrorI) {
	if len(bz) != len(id) {
		return id, ErrInvalidAction()
	}
	copy(id[:], bz)
	return
}

// AuctionIdFromString() parses a hex encoded auction id
func AuctionIdFromString(s string) (AuctionId, lib.ErrorI) {
	bz, err := hex.DecodeString(s)
	if err != nil {
		return AuctionId{}, ErrInvalidAction()
	}
	return NewAuctionId(bz)
}

func (id AuctionId) Bytes() []byte  { return id[:] }
func (id AuctionId) String() string { return hex.EncodeToString(id[:]) }

func (id AuctionId) MarshalJSON() ([]byte, error) { return json.Marshal(id.String()) }

func (id *AuctionId) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	parsed, err := AuctionIdFromString(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// DutchAuctionDescription is the immutable definition of an auction
type DutchAuctionDescription struct {
	Input       Value      `json:"input"`
	OutputId    AssetId    `json:"outputId"`
	MaxOutput   lib.Amount `json:"maxOutput"`
	MinOutput   lib.Amount `json:"minOutput"`
	StartHeight uint64     `json:"startHeight"`
	EndHeight   uint64     `json:"endHeight"`
	StepCount   uint64     `json:"stepCount"`
	Nonce       Nonce      `json:"nonce"`
}

// Id() hashes the canonical encoding of the description
func (d *DutchAuctionDescription) Id() AuctionId {
	bz, _ := d.MarshalBinary()
	return crypto.DomainHash("auction", bz)
}

// Validate() checks the price schedule is well formed
func (d *DutchAuctionDescription) Validate() lib.ErrorI {
	if d.Input.Amount.IsZero() {
		return ErrInvalidSwap()
	}
	if d.Input.Asset == d.OutputId {
		return ErrInvalidTradingPair()
	}
	if d.StepCount < 2 {
		return ErrInvalidStepCount()
	}
	if d.EndHeight <= d.StartHeight || (d.EndHeight-d.StartHeight)%d.StepCount != 0 {
		return ErrInvalidAuctionHeights()
	}
	if d.MinOutput.IsZero() || d.MaxOutput.LT(d.MinOutput) {
		return ErrInvalidAuctionOutputs()
	}
	return nil
}

// Pair() returns the canonical pair the auction trades on
func (d *DutchAuctionDescription) Pair() TradingPair {
	p, _ := NewTradingPair(d.Input.Asset, d.OutputId)
	return p
}

// StepSize() returns the number of blocks between two triggers
func (d *DutchAuctionDescription) StepSize() uint64 { return (d.EndHeight - d.StartHeight) / d.StepCount }

// TriggerHeight() returns the height of the k-th trigger
func (d *DutchAuctionDescription) TriggerHeight(k uint64) uint64 { return d.StartHeight + k*d.StepSize() }

// StepAt() returns the step index priced at a height, false outside [StartHeight, EndHeight)
func (d *DutchAuctionDescription) StepAt(height uint64) (uint64, bool) {
	if height < d.StartHeight || height >= d.EndHeight {
		return 0, false
	}
	return (height - d.StartHeight) / d.StepSize(), true
}

// OutputAt() linearly interpolates the total output asked at step k: max - (max-min)*k/(stepCount-1)
func (d *DutchAuctionDescription) OutputAt(k uint64) (lib.Amount, lib.ErrorI) {
	if k >= d.StepCount-1 {
		return d.MinOutput, nil
	}
	spread, err := d.MaxOutput.Sub(d.MinOutput)
	if err != nil {
		return lib.Amount{}, err
	}
	decline, err := spread.MulDiv(lib.NewAmount(k), lib.NewAmount(d.StepCount-1))
	if err != nil {
		return lib.Amount{}, err
	}
	return d.MaxOutput.Sub(decline)
}

// PositionAt() builds the fee-less position selling the remaining input at the price of step k
// the whole input is priced at OutputAt(k), so any part of it sells at the same rate
func (d *DutchAuctionDescription) PositionAt(k uint64, remaining lib.Amount, seq uint64) (*Position, lib.ErrorI) {
	out, err := d.OutputAt(k)
	if err != nil {
		return nil, err
	}
	pair := d.Pair()
	// buyers sell the output asset and receive input asset at Input.Amount per out
	p, q := out, d.Input.Amount
	reserves := Reserves{R1: remaining}
	if d.Input.Asset == pair.Asset2 {
		p, q = d.Input.Amount, out
		reserves = Reserves{R2: remaining}
	}
	phi, err := NewTradingFunction(pair, 0, p, q)
	if err != nil {
		return nil, err
	}
	id := d.Id()
	return &Position{
		Phi:         phi,
		Nonce:       crypto.DomainHash("auction-position", id[:], lib.Uint64ToBytes(seq)),
		State:       PositionStateOpened,
		Reserves:    reserves,
		CloseOnFill: true,
	}, nil
}

// AuctionStatus is the lifecycle stage of an auction
type AuctionStatus uint8

const (
	AuctionStatusScheduled AuctionStatus = iota
	AuctionStatusActive
	AuctionStatusEnded
	AuctionStatusWithdrawn
)

var auctionStatusNames = []string{"scheduled", "active", "ended", "withdrawn"}

func (s AuctionStatus) String() string {
	if int(s) < len(auctionStatusNames) {
		return auctionStatusNames[s]
	}
	return "unknown"
}

func (s AuctionStatus) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *AuctionStatus) UnmarshalJSON(bz []byte) error {
	var str string
	if err := json.Unmarshal(bz, &str); err != nil {
		return err
	}
	for i, name := range auctionStatusNames {
		if name == strings.ToLower(str) {
			*s = AuctionStatus(i)
			return nil
		}
	}
	return ErrInvalidAction()
}

// EndReason explains why an auction ended
type EndReason uint8

const (
	EndReasonNone EndReason = iota
	EndReasonExpired
	EndReasonFilled
	EndReasonClosedByOwner
)

var endReasonNames = []string{"", "expired", "filled", "closed_by_owner"}

func (r EndReason) String() string {
	if int(r) < len(endReasonNames) {
		return endReasonNames[r]
	}
	return "unknown"
}

func (r EndReason) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *EndReason) UnmarshalJSON(bz []byte) error {
	var str string
	if err := json.Unmarshal(bz, &str); err != nil {
		return err
	}
	for i, name := range endReasonNames {
		if name == strings.ToLower(str) {
			*r = EndReason(i)
			return nil
		}
	}
	return ErrInvalidAction()
}

// DutchAuctionState is the mutable part of an auction; every change increments Seq
type DutchAuctionState struct {
	Seq             uint64        `json:"seq"`
	Status          AuctionStatus `json:"status"`
	EndReason       EndReason     `json:"endReason,omitempty"`
	CurrentPosition *PositionId   `json:"currentPosition,omitempty"`
	NextTrigger     uint64        `json:"nextTrigger,omitempty"` // zero once the auction has ended
	InputReserves   lib.Amount    `json:"inputReserves"`
	OutputReserves  lib.Amount    `json:"outputReserves"`
}

// DutchAuction is an auction description and its state
type DutchAuction struct {
	Description DutchAuctionDescription `json:"description"`
	State       DutchAuctionState       `json:"state"`
}

// NewDutchAuction() returns a scheduled auction holding its full input
func NewDutchAuction(d DutchAuctionDescription) *DutchAuction {
	return &DutchAuction{
		Description: d,
		State: DutchAuctionState{
			Status:        AuctionStatusScheduled,
			NextTrigger:   d.StartHeight,
			InputReserves: d.Input.Amount,
		},
	}
}

// IsEnded() returns true once the auction no longer drives a position
func (a *DutchAuction) IsEnded() bool { return a.State.Status >= AuctionStatusEnded }

// End() stops the auction with a reason
func (a *DutchAuction) End(reason EndReason) {
	a.State.Status, a.State.EndReason, a.State.NextTrigger, a.State.CurrentPosition = AuctionStatusEnded, reason, 0, nil
	a.State.Seq++
}

// AuctionView is the json shape of an auction including its derived id
type AuctionView struct {
	Id AuctionId `json:"id"`
	*DutchAuction
}
