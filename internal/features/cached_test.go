package features

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/pkg/config"
	"github.com/wonny/pvpforecast/pkg/redis"
)

func TestCachedStore_DisabledRedisPassesThrough(t *testing.T) {
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)

	key := contracts.Key{SKU: "X1", TimeKey: 1}
	inner := &mapStore{rows: map[contracts.Key]Row{key: {"price_lag_1": 1.0}}}
	store := NewCachedStore(inner, redis.NewCache(client), "features", time.Minute, zerolog.Nop())

	for i := 0; i < 2; i++ {
		row, err := store.Fetch(context.Background(), key)
		require.NoError(t, err)
		assert.Equal(t, 1.0, row["price_lag_1"])
	}
	assert.Equal(t, 2, inner.calls)

	_, err = store.Fetch(context.Background(), contracts.Key{SKU: "ghost", TimeKey: 1})
	assert.ErrorIs(t, err, ErrFeaturesNotFound)
}

func TestCachedRow_KeepsTypes(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := Row{
		"time_key": int64(9007199254740993),
		"small":    int32(7),
		"price":    10.5,
		"promo":    true,
		"region":   "north",
		"missing":  nil,
		"as_of":    ts,
	}

	cells, err := encodeRow(row)
	require.NoError(t, err)

	decoded, err := decodeRow(cells)
	require.NoError(t, err)

	assert.Equal(t, int64(9007199254740993), decoded["time_key"])
	assert.Equal(t, int64(7), decoded["small"])
	assert.Equal(t, 10.5, decoded["price"])
	assert.Equal(t, true, decoded["promo"])
	assert.Equal(t, "north", decoded["region"])
	assert.Nil(t, decoded["missing"])
	assert.Equal(t, "2024-01-01T00:00:00Z", decoded["as_of"])
}

func TestCachedRow_Unsupported(t *testing.T) {
	_, err := encodeRow(Row{"blob": []int{1}})
	assert.Error(t, err)

	_, err = decodeRow([]cachedCell{{Column: "x", Kind: cellInt}})
	assert.Error(t, err)
}
