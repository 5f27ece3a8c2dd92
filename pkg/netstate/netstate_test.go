package netstate

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Probe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	w := NewWatcher(listener.Addr().String(), time.Second, time.Second)
	var changes []bool
	w.OnChange(
		func(online bool) {
			changes = append(changes, online)
		},
	)

	assert.True(t, w.Probe(context.Background()))
	assert.True(t, w.Online())
	assert.Empty(t, changes)

	require.NoError(t, listener.Close())

	assert.False(t, w.Probe(context.Background()))
	assert.False(t, w.Online())
	assert.Equal(t, []bool{false}, changes)
}

func TestWatcher_ZeroIntervalFallsBackToDefault(t *testing.T) {
	w := NewWatcher("127.0.0.1:1", 0, -time.Second)
	assert.Equal(t, DefaultInterval, w.interval)
	assert.Equal(t, DefaultTimeout, w.timeout)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
