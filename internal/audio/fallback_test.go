package audio

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

func TestCommandFallback_Speak(t *testing.T) {
	requireShell(t)

	ok := NewCommandFallback("sh", "-c", `test "$2" = 50 && test "$3" = "hello"`, "speak")
	assert.NoError(t, ok.Speak(context.Background(), "hello", 0.5))

	failing := NewCommandFallback("sh", "-c", "exit 3", "speak")
	assert.Error(t, failing.Speak(context.Background(), "hello", 1))
}

func TestCommandFallback_CancelKillsUtterance(t *testing.T) {
	requireShell(t)
	fallback := NewCommandFallback("sh", "-c", "sleep 10", "speak")

	done := make(chan error, 1)
	go func() {
		done <- fallback.Speak(context.Background(), "long text", 1)
	}()

	require.Eventually(
		t, func() bool {
			fallback.mu.Lock()
			defer fallback.mu.Unlock()
			return len(fallback.running) == 1
		}, 2*time.Second, 5*time.Millisecond,
	)
	fallback.Cancel()
	fallback.Cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("utterance was not cancelled")
	}
}

func TestAmplitude(t *testing.T) {
	assert.Equal(t, 0, amplitude(-1))
	assert.Equal(t, 50, amplitude(0.5))
	assert.Equal(t, 100, amplitude(2))
}
