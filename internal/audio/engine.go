// Package audio plays synthesized speech through one shared output graph.
package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/sirupsen/logrus"
)

const toneInstruction = "Say calmly and clearly, like a friendly Nigerian legal adviser: "

type Synthesizer interface {
	// Synthesize returns base64 encoded 16-bit little-endian PCM, 24 kHz mono.
	Synthesize(ctx context.Context, text string) (string, error)
}

// Fallback is the on-device synthesizer used when remote synthesis fails.
type Fallback interface {
	Speak(ctx context.Context, text string, volume float64) error
	Cancel()
}

// Source is one scheduled buffer on the graph.
type Source interface {
	Stop()
	Done() <-chan struct{}
}

// Graph is the output chain: every source passes through one gain node.
type Graph interface {
	SetGain(gain float64)
	Play(buf Buffer) (Source, error)
	Close() error
}

type GraphFactory func() (Graph, error)

type Event int

const (
	EventStarted Event = iota
	EventStopped
)

func (e Event) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type EngineDeps struct {
	Synthesizer Synthesizer
	Fallback    Fallback
	NewGraph    GraphFactory
	Logger      *logrus.Logger
}

type Engine struct {
	EngineDeps

	mu      sync.Mutex
	graph   Graph
	volume  float64
	current Source

	// stopFallback cancels the on-device utterance started by Speak.
	stopFallback context.CancelFunc
	active       bool
	utterance    uint64
	subscribers  []chan Event
}

func NewEngine(deps EngineDeps) *Engine {
	return &Engine{
		EngineDeps: deps,
		volume:     1.0,
	}
}

// SetVolume clamps v to [0, 1] and applies it to the graph when it exists. The value
// is kept for later utterances.
func (e *Engine) SetVolume(v float64) {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
	if e.graph != nil {
		e.graph.SetGain(v)
	}
}

func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Subscribe returns a channel of playback transitions. Events are dropped when the
// reader falls behind by more than the channel buffer.
func (e *Engine) Subscribe() <-chan Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan Event, 8)
	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Speak stops any current utterance and reads text aloud. It returns when playback
// ends, is stopped, or ctx is done.
func (e *Engine) Speak(ctx context.Context, text string) error {
	e.Stop()

	speech := CleanForSpeech(text)
	if speech == "" {
		return nil
	}
	utterance := e.begin()
	defer e.end(utterance)

	buf, err := e.synthesize(ctx, speech)
	if err != nil {
		e.Logger.WithError(err).Warn("remote speech failed, using on-device voice")
		return e.speakFallback(ctx, utterance, speech)
	}

	e.mu.Lock()
	if e.utterance != utterance {
		e.mu.Unlock()
		return nil
	}
	graph, err := e.graphLocked()
	if err != nil {
		e.mu.Unlock()
		e.Logger.WithError(err).Warn("audio output unavailable, using on-device voice")
		return e.speakFallback(ctx, utterance, speech)
	}
	source, err := graph.Play(buf)
	if err != nil {
		e.mu.Unlock()
		e.Logger.WithError(err).Warn("failed to schedule speech, using on-device voice")
		return e.speakFallback(ctx, utterance, speech)
	}
	e.current = source
	e.mu.Unlock()

	select {
	case <-source.Done():
	case <-ctx.Done():
		e.stopUtterance(utterance)
	}
	return nil
}

// Stop halts the current source and any on-device utterance. It is safe to call at
// any time, any number of times.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.utterance++
	e.haltLocked()
}

// Close stops playback and releases the output graph.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.utterance++
	e.haltLocked()
	if e.graph == nil {
		return nil
	}
	err := e.graph.Close()
	e.graph = nil
	return err
}

func (e *Engine) synthesize(ctx context.Context, speech string) (Buffer, error) {
	encoded, err := e.Synthesizer.Synthesize(ctx, toneInstruction+speech)
	if err != nil {
		return Buffer{}, &model.SynthesisError{Err: err}
	}
	if encoded == "" {
		return Buffer{}, &model.SynthesisError{Err: model.ErrMissingAudioData}
	}
	buf, err := DecodeBase64PCM16(encoded, SpeechSampleRate, SpeechChannels)
	if err != nil {
		return Buffer{}, &model.SynthesisError{Err: err}
	}
	return buf, nil
}

func (e *Engine) speakFallback(ctx context.Context, utterance uint64, speech string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.utterance != utterance {
		e.mu.Unlock()
		return nil
	}
	volume := e.volume
	e.stopFallback = cancel
	e.mu.Unlock()

	if err := e.Fallback.Speak(ctx, speech, volume); err != nil {
		if e.isCurrent(utterance) {
			return fmt.Errorf("failed to speak with on-device voice: %w", err)
		}
	}
	return nil
}

func (e *Engine) graphLocked() (Graph, error) {
	if e.graph != nil {
		return e.graph, nil
	}
	graph, err := e.NewGraph()
	if err != nil {
		return nil, err
	}
	graph.SetGain(e.volume)
	e.graph = graph
	return graph, nil
}

func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.utterance++
	e.active = true
	e.emitLocked(EventStarted)
	return e.utterance
}

func (e *Engine) end(utterance uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.utterance != utterance {
		return
	}
	e.current = nil
	e.stopFallback = nil
	if e.active {
		e.active = false
		e.emitLocked(EventStopped)
	}
}

func (e *Engine) stopUtterance(utterance uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.utterance == utterance {
		e.utterance++
		e.haltLocked()
	}
}

func (e *Engine) isCurrent(utterance uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.utterance == utterance
}

func (e *Engine) haltLocked() {
	if e.current != nil {
		e.current.Stop()
		e.current = nil
	}
	if e.stopFallback != nil {
		e.stopFallback()
		e.stopFallback = nil
	}
	if e.Fallback != nil {
		e.Fallback.Cancel()
	}
	if e.active {
		e.active = false
		e.emitLocked(EventStopped)
	}
}

func (e *Engine) emitLocked(event Event) {
	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
