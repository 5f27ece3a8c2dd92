// Package netstate tracks whether the generation service host is reachable.
package netstate

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Watcher probes a TCP address on an interval and reports the last result.
type Watcher struct {
	address  string
	interval time.Duration
	timeout  time.Duration
	dialer   Dialer

	online atomic.Bool

	mu        sync.Mutex
	listeners []func(online bool)
}

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 3 * time.Second
)

// NewWatcher replaces a non-positive interval or timeout with its default.
func NewWatcher(address string, interval, timeout time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	w := &Watcher{
		address:  address,
		interval: interval,
		timeout:  timeout,
		dialer:   &net.Dialer{},
	}
	w.online.Store(true)
	return w
}

func (w *Watcher) Online() bool {
	return w.online.Load()
}

// OnChange registers fn to be called whenever the online state flips.
func (w *Watcher) OnChange(fn func(online bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Run probes once immediately and then on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.Probe(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Probe(ctx)
		}
	}
}

func (w *Watcher) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	online := false
	conn, err := w.dialer.DialContext(probeCtx, "tcp", w.address)
	if err == nil {
		online = true
		_ = conn.Close()
	}
	w.set(online)
	return online
}

func (w *Watcher) set(online bool) {
	if w.online.Swap(online) == online {
		return
	}
	w.mu.Lock()
	listeners := append([]func(bool){}, w.listeners...)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(online)
	}
}
