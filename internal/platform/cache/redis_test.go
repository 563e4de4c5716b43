package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := New(context.Background(), Config{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	srv.CheckGet(t, "k", "v")
}

func TestProbeReportsOutage(t *testing.T) {
	srv := miniredis.RunT(t)
	client, err := New(context.Background(), Config{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	probe := Probe(client)
	require.NoError(t, probe(context.Background(), time.Second))

	srv.Close()
	assert.Error(t, probe(context.Background(), 200*time.Millisecond))
}

func TestNewFailsWithoutServer(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := New(context.Background(), Config{Addr: addr, PingTimeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
