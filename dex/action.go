package dex

import (
	"encoding"
	"encoding/hex"

	"github.com/canopy-network/canopy-dex/lib"
	"github.com/canopy-network/canopy-dex/lib/crypto"
	"github.com/goccy/go-json"
)

/*
	Actions are the dex operations a transaction may carry. Authorization (ownership of a position or auction,
	the hidden amounts of a swap) is attested by an external proof system; the engine only sees the cleartext
	effect of each action.
*/

// ActionType names an action variant on the wire
type ActionType string

const (
	ActionTypePositionOpen         ActionType = "position_open"
	ActionTypePositionClose        ActionType = "position_close"
	ActionTypePositionWithdraw     ActionType = "position_withdraw"
	ActionTypePositionRewardClaim  ActionType = "position_reward_claim"
	ActionTypeSwap                 ActionType = "swap"
	ActionTypeSwapClaim            ActionType = "swap_claim"
	ActionTypeDutchAuctionSchedule ActionType = "dutch_auction_schedule"
	ActionTypeDutchAuctionEnd      ActionType = "dutch_auction_end"
	ActionTypeDutchAuctionWithdraw ActionType = "dutch_auction_withdraw"
)

// actionTypes is the numeric wire tag of each action type
var actionTypes = []ActionType{
	ActionTypePositionOpen,
	ActionTypePositionClose,
	ActionTypePositionWithdraw,
	ActionTypePositionRewardClaim,
	ActionTypeSwap,
	ActionTypeSwapClaim,
	ActionTypeDutchAuctionSchedule,
	ActionTypeDutchAuctionEnd,
	ActionTypeDutchAuctionWithdraw,
}

// Action is the sum type of every dex action
type Action interface {
	Type() ActionType
	Validate() lib.ErrorI
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// NewAction() returns an empty action of the type for decoding
func NewAction(t ActionType) (Action, lib.ErrorI) {
	switch t {
	case ActionTypePositionOpen:
		return new(PositionOpen), nil
	case ActionTypePositionClose:
		return new(PositionClose), nil
	case ActionTypePositionWithdraw:
		return new(PositionWithdraw), nil
	case ActionTypePositionRewardClaim:
		return new(PositionRewardClaim), nil
	case ActionTypeSwap:
		return new(Swap), nil
	case ActionTypeSwapClaim:
		return new(SwapClaim), nil
	case ActionTypeDutchAuctionSchedule:
		return new(DutchAuctionSchedule), nil
	case ActionTypeDutchAuctionEnd:
		return new(DutchAuctionEnd), nil
	case ActionTypeDutchAuctionWithdraw:
		return new(DutchAuctionWithdraw), nil
	default:
		return nil, ErrUnknownAction(string(t))
	}
}

// PositionOpen adds a funded position to the book
type PositionOpen struct {
	Position Position `json:"position"`
}

// PositionClose deactivates a position, freezing its reserves
type PositionClose struct {
	PositionId PositionId `json:"positionId"`
}

// PositionWithdraw releases the reserves of a closed position
type PositionWithdraw struct {
	PositionId PositionId `json:"positionId"`
}

// PositionRewardClaim settles a withdrawn position into its terminal state
type PositionRewardClaim struct {
	PositionId PositionId `json:"positionId"`
}

// Swap commits an input to the batch of its trading pair at the current height
type Swap struct {
	Pair       TradingPair `json:"pair"`
	Delta1     lib.Amount  `json:"delta1"`
	Delta2     lib.Amount  `json:"delta2"`
	Commitment Commitment  `json:"commitment"` // opaque commitment to the swap plaintext, the claim handle
}

// SwapClaim collects the pro-rata outputs of a swap once its batch has been cleared
type SwapClaim struct {
	Commitment Commitment `json:"commitment"`
}

// DutchAuctionSchedule funds and schedules a new auction
type DutchAuctionSchedule struct {
	Description DutchAuctionDescription `json:"description"`
}

// DutchAuctionEnd ends an auction early on behalf of its owner
type DutchAuctionEnd struct {
	AuctionId AuctionId `json:"auctionId"`
}

// DutchAuctionWithdraw releases the reserves of an ended auction; Seq must match the current auction state
type DutchAuctionWithdraw struct {
	AuctionId AuctionId `json:"auctionId"`
	Seq       uint64    `json:"seq"`
}

func (a *PositionOpen) Type() ActionType         { return ActionTypePositionOpen }
func (a *PositionClose) Type() ActionType        { return ActionTypePositionClose }
func (a *PositionWithdraw) Type() ActionType     { return ActionTypePositionWithdraw }
func (a *PositionRewardClaim) Type() ActionType  { return ActionTypePositionRewardClaim }
func (a *Swap) Type() ActionType                 { return ActionTypeSwap }
func (a *SwapClaim) Type() ActionType            { return ActionTypeSwapClaim }
func (a *DutchAuctionSchedule) Type() ActionType { return ActionTypeDutchAuctionSchedule }
func (a *DutchAuctionEnd) Type() ActionType      { return ActionTypeDutchAuctionEnd }
func (a *DutchAuctionWithdraw) Type() ActionType { return ActionTypeDutchAuctionWithdraw }

// Validate() requires a valid, funded and freshly opened position
func (a *PositionOpen) Validate() lib.ErrorI {
	if a.Position.State != PositionStateOpened {
		return ErrInvalidPositionState()
	}
	return a.Position.Validate()
}

func (a *PositionClose) Validate() lib.ErrorI       { return validatePositionId(a.PositionId) }
func (a *PositionWithdraw) Validate() lib.ErrorI    { return validatePositionId(a.PositionId) }
func (a *PositionRewardClaim) Validate() lib.ErrorI { return validatePositionId(a.PositionId) }

// Validate() requires a canonical pair and a non zero input
func (a *Swap) Validate() lib.ErrorI {
	if err := a.Pair.Validate(); err != nil {
		return err
	}
	if a.Delta1.IsZero() && a.Delta2.IsZero() {
		return ErrInvalidSwap()
	}
	if a.Commitment.IsZero() {
		return ErrInvalidCommitment()
	}
	return nil
}

func (a *SwapClaim) Validate() lib.ErrorI {
	if a.Commitment.IsZero() {
		return ErrInvalidCommitment()
	}
	return nil
}

func (a *DutchAuctionSchedule) Validate() lib.ErrorI { return a.Description.Validate() }
func (a *DutchAuctionEnd) Validate() lib.ErrorI      { return nil }
func (a *DutchAuctionWithdraw) Validate() lib.ErrorI { return nil }

func validatePositionId(id PositionId) lib.ErrorI {
	if id.IsZero() {
		return ErrInvalidPositionId()
	}
	return nil
}

// Commitment is an opaque 32 byte note or swap commitment
type Commitment [32]byte

// NewCommitment() converts raw bytes to a commitment
func NewCommitment(bz []byte) (c Commitment, err lib.ErrorI) {
	if len(bz) != len(c) {
		return c, ErrInvalidCommitment()
	}
	copy(c[:], bz)
	return
}

// CommitmentFromString() parses a hex encoded commitment
func CommitmentFromString(s string) (Commitment, lib.ErrorI) {
	bz, err := hex.DecodeString(s)
	if err != nil {
		return Commitment{}, ErrInvalidCommitment()
	}
	return NewCommitment(bz)
}

func (c Commitment) Bytes() []byte  { return c[:] }
func (c Commitment) String() string { return hex.EncodeToString(c[:]) }
func (c Commitment) IsZero() bool   { return c == Commitment{} }

func (c Commitment) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Commitment) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	parsed, err := CommitmentFromString(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Transaction is an ordered list of actions applied atomically with one authorization proof per action
type Transaction struct {
	Actions []Action       `json:"actions"`
	Proofs  []lib.HexBytes `json:"proofs"`
	Memo    string         `json:"memo,omitempty"`
}

// Validate() checks the shape of the transaction and every action
func (t *Transaction) Validate() lib.ErrorI {
	if len(t.Actions) == 0 || len(t.Proofs) != len(t.Actions) {
		return ErrInvalidAction()
	}
	for _, a := range t.Actions {
		if a == nil {
			return ErrInvalidAction()
		}
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Hash() returns the hex hash of the canonical encoding
func (t *Transaction) Hash() (string, lib.ErrorI) {
	bz, err := lib.Marshal(t)
	if err != nil {
		return "", err
	}
	return crypto.HashString(bz), nil
}

// ActionBinding() is the message an authorization proof of an action commits to
func ActionBinding(chainId string, a Action) ([]byte, lib.ErrorI) {
	bz, err := lib.Marshal(a)
	if err != nil {
		return nil, err
	}
	binding := crypto.DomainHash("action", []byte(chainId), []byte(a.Type()), bz)
	return binding[:], nil
}

// jsonAction is the typed envelope of an action
type jsonAction struct {
	Type ActionType      `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

// jsonTransaction is the json shape of a transaction
type jsonTransaction struct {
	Actions []jsonAction   `json:"actions"`
	Proofs  []lib.HexBytes `json:"proofs"`
	Memo    string         `json:"memo,omitempty"`
}

// MarshalJSON() wraps every action in a typed envelope
func (t Transaction) MarshalJSON() ([]byte, error) {
	j := jsonTransaction{Proofs: t.Proofs, Memo: t.Memo}
	for _, a := range t.Actions {
		msg, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		j.Actions = append(j.Actions, jsonAction{Type: a.Type(), Msg: msg})
	}
	return json.Marshal(j)
}

// UnmarshalJSON() decodes every action by its envelope type
func (t *Transaction) UnmarshalJSON(bz []byte) error {
	var j jsonTransaction
	if err := json.Unmarshal(bz, &j); err != nil {
		return err
	}
	actions := make([]Action, 0, len(j.Actions))
	for _, ja := range j.Actions {
		a, err := NewAction(ja.Type)
		if err != nil {
			return err
		}
		if e := json.Unmarshal(ja.Msg, a); e != nil {
			return e
		}
		actions = append(actions, a)
	}
	*t = Transaction{Actions: actions, Proofs: j.Proofs, Memo: j.Memo}
	return nil
}
