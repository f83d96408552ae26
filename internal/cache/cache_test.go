package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "suiven/event/0x1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "suiven/event/0x1", []byte("a"), 0))
	require.NoError(t, s.Set(ctx, "suiven/events", []byte("b"), time.Minute))
	require.NoError(t, s.Set(ctx, "suiven/events/0xorg", []byte("c"), time.Minute))
	require.NoError(t, s.Set(ctx, "suiven/tickets/0xa", []byte("d"), time.Minute))

	v, ok, err := s.Get(ctx, "suiven/event/0x1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), v)

	n, err := s.DeletePrefix(ctx, "suiven/events")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, _ = s.Get(ctx, "suiven/events/0xorg")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "suiven/tickets/0xa")
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "suiven/tickets/0xa", "missing"))
	_, ok, _ = s.Get(ctx, "suiven/tickets/0xa")
	assert.False(t, ok)

	type payload struct{ Sold uint64 }
	require.NoError(t, SetJSON(ctx, s, "suiven/json", payload{Sold: 5000}, time.Minute))
	var got payload
	ok, err = GetJSON(ctx, s, "suiven/json", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(5000), got.Sold)

	require.NoError(t, s.Set(ctx, "suiven/bad", []byte("{"), time.Minute))
	ok, err = GetJSON(ctx, s, "suiven/bad", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_Expiry(t *testing.T) {
	m := NewMemoryStore()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Second))
	assert.Equal(t, 1, m.Len())

	now = now.Add(2 * time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	v, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), v)
}

// TestRedisStore runs against a live Redis when SUIVEN_TEST_REDIS_URL is set,
// directly or through .env.test.
func TestRedisStore(t *testing.T) {
	_ = godotenv.Load(".env.test")
	url := os.Getenv("SUIVEN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SUIVEN_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, url, "test-"+uuid.NewString()+"/")
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url", "")
	assert.Error(t, err)
}

func TestRedisStore_Namespace(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	s := NewRedisStoreFromClient(client, "ns/")
	assert.Equal(t, "ns/suiven/events", s.key("suiven/events"))
}
