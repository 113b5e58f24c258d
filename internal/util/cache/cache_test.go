package cache_utils

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
)

type cachedEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func getTestCacheUtil(t *testing.T) *CacheUtil[cachedEntry] {
	t.Helper()

	host := os.Getenv("TEST_VALKEY_HOST")
	if host == "" {
		t.Skip("TEST_VALKEY_HOST is not set")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{host},
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewCacheUtil[cachedEntry](client, "test:entries:", time.Minute, log)
}

func Test_Get_AfterSet_ReturnsValue(t *testing.T) {
	cache := getTestCacheUtil(t)
	entry := cachedEntry{Name: "alpha", Count: 3}

	require.NoError(t, cache.Set("get-after-set", &entry))
	t.Cleanup(func() { cache.Invalidate("get-after-set") })

	retrieved := cache.Get("get-after-set")

	require.NotNil(t, retrieved)
	assert.Equal(t, entry, *retrieved)
}

func Test_Get_MissingKey_ReturnsNil(t *testing.T) {
	cache := getTestCacheUtil(t)

	assert.Nil(t, cache.Get("never-set"))
}

func Test_GetAndDelete_SecondTake_ReturnsNil(t *testing.T) {
	cache := getTestCacheUtil(t)
	entry := cachedEntry{Name: "beta", Count: 1}

	require.NoError(t, cache.Set("take-once", &entry))

	taken := cache.GetAndDelete("take-once")
	require.NotNil(t, taken)
	assert.Equal(t, entry, *taken)

	assert.Nil(t, cache.GetAndDelete("take-once"))
	assert.Nil(t, cache.Get("take-once"))
}

func Test_Invalidate_SetKey_RemovesValue(t *testing.T) {
	cache := getTestCacheUtil(t)
	entry := cachedEntry{Name: "gamma", Count: 7}

	require.NoError(t, cache.Set("invalidated", &entry))

	cache.Invalidate("invalidated")

	assert.Nil(t, cache.Get("invalidated"))
}
