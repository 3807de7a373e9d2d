package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndListGenerations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &Generation{
		ResponseID: 1,
		Model:      "intense-rp-next-1",
		Prompt:     "User: hi",
		Response:   "Hello there.",
		Streamed:   true,
		DurationMS: 1200,
	}
	require.NoError(t, s.SaveGeneration(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := &Generation{
		ResponseID:  2,
		Model:       "intense-rp-next-1-reasoner",
		Prompt:      "User: think",
		Response:    "Partial",
		Deepthink:   true,
		Interrupted: true,
	}
	require.NoError(t, s.SaveGeneration(ctx, second))

	recent, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	assert.Equal(t, int64(2), recent[0].ResponseID)
	assert.True(t, recent[0].Deepthink)
	assert.True(t, recent[0].Interrupted)
	assert.Equal(t, int64(1), recent[1].ResponseID)
	assert.True(t, recent[1].Streamed)
	assert.Equal(t, int64(1200), recent[1].DurationMS)
}

func TestListRecentLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveGeneration(ctx, &Generation{
			ResponseID: int64(i + 1),
			Model:      "intense-rp-next-1",
			Prompt:     "p",
			Response:   "r",
		}))
	}

	recent, err := s.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.Equal(t, int64(5), recent[0].ResponseID)
}

func TestListRecentEmpty(t *testing.T) {
	s := openTestStore(t)

	recent, err := s.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
