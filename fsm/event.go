package fsm

import (
	"github.com/canopy-network/canopy-dex/lib"
	"github.com/goccy/go-json"
)

// saveEvents() persists the events of the block in the order they were produced
func (s *StateMachine) saveEvents(events lib.Events) lib.ErrorI {
	for i, e := range events {
		bz, err := lib.MarshalJSON(e)
		if err != nil {
			return err
		}
		if err = s.Set(KeyForEvent(e.Height, i), bz); err != nil {
			return err
		}
	}
	return nil
}

// GetEventsPaginated() returns a page of the events of a height
// payloads are returned as raw json since their type depends on the event type
func (s *StateMachine) GetEventsPaginated(height uint64, p lib.PageParams) (page *lib.Page, err lib.ErrorI) {
	page, res := lib.NewPage(p, lib.EventsPageName), make(lib.Events, 0)
	err = page.Load(EventPrefix(height), false, &res, s.store, func(_, v []byte) lib.ErrorI {
		e := new(lib.Event)
		raw := struct {
			*lib.Event
			Msg json.RawMessage `json:"msg,omitempty"`
		}{Event: e}
		if er := json.Unmarshal(v, &raw); er != nil {
			return lib.ErrJSONUnmarshal(er)
		}
		e.Msg = raw.Msg
		res = append(res, e)
		return nil
	})
	return
}
