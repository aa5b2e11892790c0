package cache

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-registration-api/pkg/config"
)

func TestNewRedisConnects(t *testing.T) {
	srv := miniredis.RunT(t)
	host, portRaw, _ := strings.Cut(srv.Addr(), ":")
	port, err := strconv.Atoi(portRaw)
	require.NoError(t, err)

	client, err := NewRedis(context.Background(), config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	host, portRaw, _ := strings.Cut(srv.Addr(), ":")
	port, _ := strconv.Atoi(portRaw)
	srv.Close()

	_, err := NewRedis(context.Background(), config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
}
