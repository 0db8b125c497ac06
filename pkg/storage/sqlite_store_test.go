package storage

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

// timestamps survive a format/parse cycle, so compare by instant
var timeComparer = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

func TestSQLiteRoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := testRecord(77)
	require.NoError(t, s.Append(want))

	got, err := s.Recent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	if diff := cmp.Diff(want, got[0], timeComparer); diff != "" {
		t.Errorf("record mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestSQLiteAppendRejectsNil(t *testing.T) {
	s := newTestStore(t)

	require.ErrorIs(t, s.Append(nil), ErrNilRecord)
}

func TestSQLiteRecentNewestFirst(t *testing.T) {
	s := newTestStore(t)
	for _, overall := range []int{10, 20, 30, 40, 50} {
		require.NoError(t, s.Append(testRecord(overall)))
	}

	got, err := s.Recent(3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, want := range []int{50, 40, 30} {
		require.Equal(t, want, got[i].Overall, "position %d", i)
	}
}

func TestSQLiteRecentLimitExceedsHistory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(testRecord(42)))

	got, err := s.Recent(100)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSQLiteRecentHugeLimit(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(testRecord(42)))

	got, err := s.Recent(math.MaxInt)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 42, got[0].Overall)
}

func TestSQLiteRecentNonPositiveLimit(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(testRecord(42)))

	for _, limit := range []int{0, -5} {
		got, err := s.Recent(limit)
		require.NoError(t, err)
		require.Empty(t, got, "limit %d", limit)
	}
}

func TestSQLiteLenAndPrune(t *testing.T) {
	s := newTestStore(t)
	for _, overall := range []int{10, 20, 30, 40, 50} {
		require.NoError(t, s.Append(testRecord(overall)))
	}

	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, 5, n)

	require.NoError(t, s.Prune(2))

	n, err = s.Len()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 50, got[0].Overall)
	require.Equal(t, 40, got[1].Overall)

	require.Error(t, s.Prune(-1))

	require.NoError(t, s.Prune(0), "keep zero clears the history")
	n, err = s.Len()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSQLiteEmptyRecommendationsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	record := testRecord(60)
	record.Recommendations = nil
	require.NoError(t, s.Append(record))

	got, err := s.Recent(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Empty(t, got[0].Recommendations)
}
