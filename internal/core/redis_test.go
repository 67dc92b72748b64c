// AngelaMos | 2026
// redis_test.go

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/oneclick-server/internal/config"
)

func TestNewRedis_UnreachableServerStillStarts(t *testing.T) {
	r, err := NewRedis(context.Background(), config.RedisConfig{
		URL:      "redis://127.0.0.1:1/0",
		PoolSize: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.NotNil(t, r.Client)
	assert.Error(t, r.Ping(context.Background()))
	assert.NotNil(t, r.PoolStats())
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{URL: "not-a-url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}
