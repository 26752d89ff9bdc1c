package sqlengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/pluggable-sqlengine-go/sqlengine"
)

func Test_CacheKeyBuilder_DistinguishesPartsAndTypes(t *testing.T) {
	// setup
	key := func(parts ...any) sqlengine.CacheKey {
		builder := sqlengine.NewCacheKeyBuilder("users.selectById")
		for _, part := range parts {
			builder.Update(part)
		}

		return builder.Build()
	}

	// act
	first := key(0, 10, "SELECT", int64(1))
	same := key(0, 10, "SELECT", int64(1))
	otherValue := key(0, 10, "SELECT", int64(2))
	otherType := key(0, 10, "SELECT", "1")

	// assert
	assert.Equal(t, first, same)
	assert.NotEqual(t, first, otherValue)
	assert.NotEqual(t, first, otherType)
	assert.Equal(t, 5, first.Parts)
	assert.Equal(t, "users.selectById", first.StatementID)
	assert.Regexp(t, `^users\.selectById:[0-9a-f]{16}:5$`, first.String())
}

func Test_PerpetualCache(t *testing.T) {
	// setup
	cache := sqlengine.NewPerpetualCache("executor-1")
	key := sqlengine.NewCacheKeyBuilder("users.selectAll").Build()
	otherKey := sqlengine.NewCacheKeyBuilder("users.selectNames").Build()

	// act & assert
	assert.Equal(t, "executor-1", cache.ID())

	_, found, err := cache.Get(key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Put(key, []any{"Ada"}))
	require.NoError(t, cache.Put(otherKey, []any{"Grace"}))
	value, found, err := cache.Get(key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []any{"Ada"}, value)
	assert.Equal(t, 2, cache.Size())

	require.NoError(t, cache.Remove(key))
	assert.Equal(t, 1, cache.Size())

	require.NoError(t, cache.Clear())
	assert.Zero(t, cache.Size())
}
