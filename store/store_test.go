package store

import (
	"testing"

	"github.com/canopy-network/canopy-dex/lib"
	"github.com/stretchr/testify/require"
)

func TestStoreCommitVersions(t *testing.T) {
	s := newTestStore(t)
	require.Zero(t, s.Version())
	require.NoError(t, s.Set([]byte("a"), []byte("1")))
	version, err := s.Commit()
	require.NoError(t, err)
	require.EqualValues(t, 1, version)
	require.NoError(t, s.Set([]byte("a"), []byte("2")))
	require.NoError(t, s.Set([]byte("b"), []byte("2")))
	version, err = s.Commit()
	require.NoError(t, err)
	require.EqualValues(t, 2, version)
	require.NoError(t, s.Delete([]byte("b")))
	_, err = s.Commit()
	require.NoError(t, err)
	tests := []struct {
		version  uint64
		a, b     []byte
		expected []string
	}{
		{version: 0, expected: nil},
		{version: 1, a: []byte("1"), expected: []string{"a"}},
		{version: 2, a: []byte("2"), b: []byte("2"), expected: []string{"a", "b"}},
		{version: 3, a: []byte("2"), expected: []string{"a"}},
	}
	for _, test := range tests {
		view, e := s.NewReadOnly(test.version)
		require.NoError(t, e)
		got, e := view.Get([]byte("a"))
		require.NoError(t, e)
		require.Equal(t, test.a, got)
		got, e = view.Get([]byte("b"))
		require.NoError(t, e)
		require.Equal(t, test.b, got)
		keys := collectKeys(t, view, "", false)
		require.Equal(t, test.expected, keys)
		require.NoError(t, view.Close())
	}
	_, err = s.NewReadOnly(4)
	require.Error(t, err)
}

func TestStoreReadOnlyCommit(t *testing.T) {
	s := newTestStore(t)
	view, err := s.NewReadOnly(0)
	require.NoError(t, err)
	defer view.Close()
	// scratch writes are allowed but can't be persisted
	require.NoError(t, view.Set([]byte("a"), []byte("a")))
	_, err = view.Commit()
	require.ErrorIs(t, err, ErrReadOnlyStore())
}

func TestStoreDiscard(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Set([]byte("a"), []byte("a")))
	s.Discard()
	_, err := s.Commit()
	require.NoError(t, err)
	got, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()
	config := lib.StoreConfig{DataDirPath: dir, DBName: "test"}
	s, err := New(config, lib.NewNullLogger())
	require.NoError(t, err)
	require.NoError(t, s.Set([]byte("a"), []byte("a")))
	_, err = s.Commit()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	s, err = New(config, lib.NewNullLogger())
	require.NoError(t, err)
	defer s.Close()
	require.EqualValues(t, 1, s.Version())
	got, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("a"), got)
}

func TestStoreKeyTooLarge(t *testing.T) {
	s := newTestStore(t)
	require.Error(t, s.Set(make([]byte, maxKeyBytes+1), nil))
}

func TestPrefixEnd(t *testing.T) {
	require.Equal(t, []byte("b"), prefixEnd([]byte("a")))
	require.Equal(t, []byte{0x02}, prefixEnd([]byte{0x01, 0xFF}))
	require.Nil(t, prefixEnd([]byte{0xFF}))
	require.Nil(t, prefixEnd(nil))
}

func TestRevIteratorSkipsEndKey(t *testing.T) {
	s := newTestStore(t)
	for _, k := range []string{"a1", "a2", "b"} {
		require.NoError(t, s.Set([]byte(k), []byte(k)))
	}
	_, err := s.Commit()
	require.NoError(t, err)
	require.Equal(t, []string{"a2", "a1"}, collectKeys(t, s, "a", true))
}
