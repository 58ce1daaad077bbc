package db

import (
	"context"
	"testing"

	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), config.Redis{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), config.Redis{Addr: addr})
	require.Error(t, err)
}

func TestNewPostgresDB_BadURL(t *testing.T) {
	_, err := NewPostgresDB(context.Background(), config.PG{URL: "::not a url"})
	require.Error(t, err)
}
