package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinLenPrefix(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		input    [][]byte
		expected []byte
	}{
		{
			name:     "single",
			detail:   "a single segment is prefixed by its length",
			input:    [][]byte{{0x01, 0x02}},
			expected: []byte{0x02, 0x01, 0x02},
		},
		{
			name:     "nil skipped",
			detail:   "nil segments are skipped",
			input:    [][]byte{{0x01}, nil, {0x03}},
			expected: []byte{0x01, 0x01, 0x01, 0x03},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := JoinLenPrefix(test.input...)
			require.Equal(t, test.expected, got)
			var nonNil [][]byte
			for _, s := range test.input {
				if s != nil {
					nonNil = append(nonNil, s)
				}
			}
			require.Equal(t, nonNil, DecodeLengthPrefixed(got))
		})
	}
}

func TestUint64Bytes(t *testing.T) {
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0}, Uint64ToBytes(256))
	require.EqualValues(t, 256, BytesToUint64(Uint64ToBytes(256)))
	require.Zero(t, BytesToUint64([]byte{1}))
}

func TestHexBytesJSON(t *testing.T) {
	h := HexBytes{0xab, 0xcd}
	bz, err := MarshalJSON(h)
	require.NoError(t, err)
	require.Equal(t, `"abcd"`, string(bz))
	var got HexBytes
	require.NoError(t, UnmarshalJSON(bz, &got))
	require.Equal(t, h, got)
}

func TestPageLoadArray(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	page := NewPage(PageParams{PageNumber: 2, PerPage: 2}, EventsPageName)
	var collected []int
	require.NoError(t, page.LoadArray(items, new(Events), func(i any) ErrorI {
		collected = append(collected, i.(int))
		return nil
	}))
	require.Equal(t, []int{3, 4}, collected)
	require.Equal(t, 2, page.Count)
	require.Equal(t, 5, page.TotalCount)
	require.Equal(t, 3, page.TotalPages)
}

func TestDeDuplicator(t *testing.T) {
	d := NewDeDuplicator[string]()
	require.False(t, d.Found("a"))
	require.True(t, d.Found("a"))
}

func TestEventsTracker(t *testing.T) {
	tracker := &EventsTracker{Height: 3}
	tracker.Refer(EventStageBeginBlock)
	tracker.Add(EventTypeSwap, "a")
	mark := tracker.Mark()
	tracker.Add(EventTypeSwapClaim, "b")
	tracker.Truncate(mark)
	events := tracker.Reset()
	require.Len(t, events, 1)
	require.Equal(t, EventTypeSwap, events[0].Type)
	require.EqualValues(t, 3, events[0].Height)
	require.Equal(t, EventStageBeginBlock, events[0].Reference)
	require.Empty(t, tracker.Events)
}
