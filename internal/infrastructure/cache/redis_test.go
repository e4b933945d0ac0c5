package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis_Success(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := OpenRedis(context.Background(), s.Addr(), 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, 2, c.Options().DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Set(ctx, "k", "v", 0).Err())
	v, err := c.Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	assert.NoError(t, Ping(ctx, c))
	s.Close()
	assert.Error(t, Ping(ctx, c))
}

func TestOpenRedis_Failure(t *testing.T) {
	// unresolvable host fails fast
	_, err := OpenRedis(context.Background(), "not-a-real-host:6379", 0)
	assert.Error(t, err)
}
