package conversation

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-agent/pkg/config"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	id := "conv-" + uuid.NewString()

	empty, err := s.List(ctx, id, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Append(ctx, id, Turn{
			Query:     fmt.Sprintf("q%d", i),
			Response:  fmt.Sprintf("r%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.List(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "q0", all[0].Query)

	last, err := s.List(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "q2", last[0].Query)
	assert.Equal(t, "r3", last[1].Response)
	assert.True(t, last[1].Timestamp.Equal(base.Add(3*time.Minute)))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_DefaultTimestamp(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Append(context.Background(), "c", Turn{Query: "q"}))
	turns, _ := s.List(context.Background(), "c", 0)
	require.Len(t, turns, 1)
	assert.False(t, turns[0].Timestamp.IsZero())
}

func TestPgStore(t *testing.T) {
	dsn := os.Getenv("TEST_INVENTORY_DSN")
	if dsn == "" {
		t.Skip("TEST_INVENTORY_DSN 未设置")
	}
	s, err := NewPgStore(context.Background(), dsn)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestNewStore(t *testing.T) {
	s, closeFn, err := NewStore(context.Background(), config.ConversationConfig{})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &MemoryStore{}, s)

	_, _, err = NewStore(context.Background(), config.ConversationConfig{Type: "mongo"})
	assert.Error(t, err)
}
