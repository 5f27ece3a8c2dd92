package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"sync"
)

const defaultAmplitude = 100

// CommandFallback speaks through a host text-to-speech command such as espeak-ng. The
// amplitude flag and the text are appended to args.
type CommandFallback struct {
	command string
	args    []string

	mu      sync.Mutex
	nextID  uint64
	running map[uint64]context.CancelFunc
}

func NewCommandFallback(command string, args ...string) *CommandFallback {
	return &CommandFallback{
		command: command,
		args:    args,
		running: make(map[uint64]context.CancelFunc),
	}
}

func (f *CommandFallback) Speak(ctx context.Context, text string, volume float64) error {
	ctx, cancel := context.WithCancel(ctx)
	id := f.track(cancel)
	defer f.untrack(id)

	args := append(append([]string(nil), f.args...), "-a", strconv.Itoa(amplitude(volume)), text)
	cmd := exec.CommandContext(ctx, f.command, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("speech cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to run %s: %w", f.command, err)
	}
	return nil
}

// Cancel kills every running utterance.
func (f *CommandFallback) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cancel := range f.running {
		cancel()
	}
}

func (f *CommandFallback) track(cancel context.CancelFunc) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.running[f.nextID] = cancel
	return f.nextID
}

func (f *CommandFallback) untrack(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cancel, ok := f.running[id]; ok {
		cancel()
		delete(f.running, id)
	}
}

func amplitude(volume float64) int {
	return int(math.Round(math.Max(0, math.Min(1, volume)) * defaultAmplitude))
}
