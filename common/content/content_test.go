package content

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "about", "hero")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put(ctx, "about", "hero", json.RawMessage(`{"title":"GLITZFUSION"}`)))
	require.NoError(t, s.Put(ctx, "about", "journey", json.RawMessage(`[1,2,3]`)))
	assert.Error(t, s.Put(ctx, "about", "broken", json.RawMessage(`{`)))

	doc, err := s.Get(ctx, "about", "hero")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"GLITZFUSION"}`, string(doc))

	docs, err := s.List(ctx, "about")
	require.NoError(t, err)
	assert.Equal(t, []string{"hero", "journey"}, Keys(docs))

	require.NoError(t, s.Delete(ctx, "about", "hero"))
	assert.True(t, errors.Is(s.Delete(ctx, "about", "hero"), ErrNotFound))

	assert.Error(t, s.Put(ctx, "bad section", "k", json.RawMessage(`{}`)))
	assert.Error(t, s.Put(ctx, "about", "", json.RawMessage(`{}`)))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Connect(context.Background(), addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	s := NewRedisStore(client, "fusionx:test:"+t.Name())
	defer client.Del(context.Background(), s.hashKey("about"))
	exerciseStore(t, s)
}
