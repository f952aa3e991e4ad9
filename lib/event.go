package lib

type EventType string

const (
	EventStageBeginBlock = "begin_block"
	EventStageEndBlock   = "end_block"

	EventTypePositionOpen        EventType = "position-open"
	EventTypePositionClose       EventType = "position-close"
	EventTypePositionWithdraw    EventType = "position-withdraw"
	EventTypePositionRewardClaim EventType = "position-reward-claim"
	EventTypePositionFilled      EventType = "position-filled"
	EventTypeSwap                EventType = "swap"
	EventTypeSwapClaim           EventType = "swap-claim"
	EventTypeBatchSwap           EventType = "batch-swap"
	EventTypeArbitrage           EventType = "arbitrage"
	EventTypeAuctionSchedule     EventType = "auction-schedule"
	EventTypeAuctionTrigger      EventType = "auction-trigger"
	EventTypeAuctionEnd          EventType = "auction-end"
	EventTypeAuctionWithdraw     EventType = "auction-withdraw"
)

// Event is a single observable state change produced while applying a block
type Event struct {
	Type      EventType `json:"eventType"`
	Height    uint64    `json:"height"`
	Reference string    `json:"reference"`     // 'begin_block' / tx hash / 'end_block'
	Msg       any       `json:"msg,omitempty"` // the typed payload of the event
}

type Events []*Event

func (e *Events) Len() int      { return len(*e) }
func (e *Events) New() Pageable { return &Events{} }

// EventsTracker collects the events of a block under the current reference
type EventsTracker struct {
	Height    uint64 // the height the events are produced at
	Reference string // the 'begin_block' / tx_hash / 'end_block' -> reference for events
	Events    Events // the actual events
}

// Add() adds an event to the tracker stamped with the current height and reference
func (t *EventsTracker) Add(eventType EventType, msg any) {
	if t == nil {
		return
	}
	t.Events = append(t.Events, &Event{Type: eventType, Height: t.Height, Reference: t.Reference, Msg: msg})
}

// Refer() sets a reference string for the event tracker
func (t *EventsTracker) Refer(s string) {
	if t == nil {
		return
	}
	t.Reference = s
}

// Mark() returns the number of tracked events so a rolled back transaction can truncate to it
func (t *EventsTracker) Mark() int {
	if t == nil {
		return 0
	}
	return len(t.Events)
}

// Truncate() drops every event added after the mark
func (t *EventsTracker) Truncate(mark int) {
	if t == nil || mark > len(t.Events) {
		return
	}
	t.Events = t.Events[:mark]
}

// Reset() resets the event tracker and returns the captured events
func (t *EventsTracker) Reset() (e Events) {
	if t == nil {
		return
	}
	e = t.Events
	t.Events, t.Reference = nil, ""
	return
}

func init() {
	RegisteredPageables[EventsPageName] = new(Events)
}

const EventsPageName = "events"
