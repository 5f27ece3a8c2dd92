package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynthesizer struct {
	mu    sync.Mutex
	audio string
	err   error
	calls []string
}

func (s *fakeSynthesizer) Synthesize(_ context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	return s.audio, s.err
}

func (s *fakeSynthesizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeSource struct {
	once    sync.Once
	done    chan struct{}
	stopped bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{done: make(chan struct{})}
}

func (s *fakeSource) Stop() {
	s.once.Do(
		func() {
			s.stopped = true
			close(s.done)
		},
	)
}

func (s *fakeSource) finish() {
	s.once.Do(func() { close(s.done) })
}

func (s *fakeSource) Done() <-chan struct{} {
	return s.done
}

type fakeGraph struct {
	mu      sync.Mutex
	gains   []float64
	played  []Buffer
	sources []*fakeSource
}

func (g *fakeGraph) SetGain(gain float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gains = append(g.gains, gain)
}

func (g *fakeGraph) Play(buf Buffer) (Source, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	source := newFakeSource()
	g.played = append(g.played, buf)
	g.sources = append(g.sources, source)
	return source, nil
}

func (g *fakeGraph) Close() error {
	return nil
}

func (g *fakeGraph) lastGain() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gains[len(g.gains)-1]
}

func (g *fakeGraph) source(i int) *fakeSource {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i >= len(g.sources) {
		return nil
	}
	return g.sources[i]
}

type fakeFallback struct {
	mu      sync.Mutex
	spoken  []string
	volumes []float64
	cancels int
	err     error
}

func (f *fakeFallback) Speak(_ context.Context, text string, volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	f.volumes = append(f.volumes, volume)
	return f.err
}

func (f *fakeFallback) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

var pcmSamples = base64.StdEncoding.EncodeToString([]byte{0x00, 0x40, 0x00, 0xC0})

type engineFixture struct {
	engine   *Engine
	synth    *fakeSynthesizer
	graph    *fakeGraph
	fallback *fakeFallback
	graphs   int
}

func newEngineFixture() *engineFixture {
	log, _ := test.NewNullLogger()
	f := &engineFixture{
		synth:    &fakeSynthesizer{audio: pcmSamples},
		graph:    &fakeGraph{},
		fallback: &fakeFallback{},
	}
	f.engine = NewEngine(
		EngineDeps{
			Synthesizer: f.synth,
			Fallback:    f.fallback,
			NewGraph: func() (Graph, error) {
				f.graphs++
				return f.graph, nil
			},
			Logger: log,
		},
	)
	return f
}

func (f *engineFixture) speakAsync(text string) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- f.engine.Speak(context.Background(), text)
	}()
	return done
}

func (f *engineFixture) waitSource(t *testing.T, i int) *fakeSource {
	t.Helper()
	require.Eventually(
		t, func() bool { return f.graph.source(i) != nil }, 2*time.Second, 5*time.Millisecond,
	)
	return f.graph.source(i)
}

func TestEngine_SpeakPlaysDecodedAudio(t *testing.T) {
	f := newEngineFixture()
	events := f.engine.Subscribe()

	done := f.speakAsync("**Section 35** protects you")
	source := f.waitSource(t, 0)
	assert.True(t, f.engine.Active())
	source.finish()
	require.NoError(t, <-done)

	require.Len(t, f.synth.calls, 1)
	assert.Equal(t, toneInstruction+"Section 35 protects you", f.synth.calls[0])
	buf := f.graph.played[0]
	assert.Equal(t, SpeechSampleRate, buf.SampleRate)
	assert.Equal(t, []float32{0.5, -0.5}, buf.Channels[0])
	assert.Equal(t, EventStarted, <-events)
	assert.Equal(t, EventStopped, <-events)
	assert.False(t, f.engine.Active())
	assert.Empty(t, f.fallback.spoken)
}

func TestEngine_StopHaltsAndIsIdempotent(t *testing.T) {
	f := newEngineFixture()
	events := f.engine.Subscribe()

	done := f.speakAsync("Hello")
	source := f.waitSource(t, 0)

	f.engine.Stop()
	f.engine.Stop()
	require.NoError(t, <-done)

	assert.True(t, source.stopped)
	assert.False(t, f.engine.Active())
	assert.Equal(t, EventStarted, <-events)
	assert.Equal(t, EventStopped, <-events)
	select {
	case event := <-events:
		t.Fatalf("unexpected event %s", event)
	default:
	}

	f.engine.Stop()
	assert.False(t, f.engine.Active())
}

func TestEngine_SpeakStopsPreviousUtterance(t *testing.T) {
	f := newEngineFixture()

	first := f.speakAsync("First")
	firstSource := f.waitSource(t, 0)
	second := f.speakAsync("Second")
	secondSource := f.waitSource(t, 1)

	require.NoError(t, <-first)
	assert.True(t, firstSource.stopped)
	assert.False(t, secondSource.stopped)
	assert.True(t, f.engine.Active())

	secondSource.finish()
	require.NoError(t, <-second)
	assert.Equal(t, 1, f.graphs)
}

func TestEngine_VolumeZeroKeepsSamples(t *testing.T) {
	f := newEngineFixture()
	f.engine.SetVolume(0)

	done := f.speakAsync("Quiet")
	source := f.waitSource(t, 0)

	assert.Equal(t, 0.0, f.graph.lastGain())
	assert.Equal(t, []float32{0.5, -0.5}, f.graph.played[0].Channels[0])
	source.finish()
	require.NoError(t, <-done)

	f.engine.SetVolume(3)
	assert.Equal(t, 1.0, f.engine.Volume())
	assert.Equal(t, 1.0, f.graph.lastGain())
	f.engine.SetVolume(-1)
	assert.Equal(t, 0.0, f.engine.Volume())
}

func TestEngine_FallbackOnSynthesisFailure(t *testing.T) {
	f := newEngineFixture()
	f.synth.err = errors.New("network down")
	f.engine.SetVolume(0.4)

	require.NoError(t, f.engine.Speak(context.Background(), "Know your rights"))

	assert.Equal(t, []string{"Know your rights"}, f.fallback.spoken)
	assert.Equal(t, []float64{0.4}, f.fallback.volumes)
	assert.Zero(t, f.graphs)
}

func TestEngine_FallbackOnMissingOrCorruptAudio(t *testing.T) {
	for name, audio := range map[string]string{"missing": "", "corrupt": "%%%"} {
		t.Run(
			name, func(t *testing.T) {
				f := newEngineFixture()
				f.synth.audio = audio

				require.NoError(t, f.engine.Speak(context.Background(), "Hello"))
				assert.Equal(t, []string{"Hello"}, f.fallback.spoken)
			},
		)
	}
}

func TestEngine_FallbackFailureIsReturned(t *testing.T) {
	f := newEngineFixture()
	f.synth.err = errors.New("network down")
	f.fallback.err = errors.New("espeak-ng not found")

	err := f.engine.Speak(context.Background(), "Hello")

	assert.ErrorIs(t, err, f.fallback.err)
	assert.False(t, f.engine.Active())
}

func TestEngine_ContextCancelStopsPlayback(t *testing.T) {
	f := newEngineFixture()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.engine.Speak(ctx, "Hello")
	}()

	source := f.waitSource(t, 0)
	cancel()

	require.NoError(t, <-done)
	assert.True(t, source.stopped)
	assert.False(t, f.engine.Active())
}

func TestCachedSynthesizer(t *testing.T) {
	synth := &fakeSynthesizer{audio: pcmSamples}
	cached := NewCachedSynthesizer(synth, "Kore", time.Minute)

	for i := 0; i < 3; i++ {
		audio, err := cached.Synthesize(context.Background(), "Hello")
		require.NoError(t, err)
		assert.Equal(t, pcmSamples, audio)
	}
	assert.Equal(t, 1, synth.callCount())

	synth.err = errors.New("boom")
	_, err := cached.Synthesize(context.Background(), "Other")
	assert.Error(t, err)
	_, err = cached.Synthesize(context.Background(), "Hello")
	assert.NoError(t, err)
}

// blockingFallback speaks until its context ends and ignores Cancel.
type blockingFallback struct {
	started chan struct{}
}

func (f *blockingFallback) Speak(ctx context.Context, _ string, _ float64) error {
	close(f.started)
	<-ctx.Done()
	return ctx.Err()
}

func (f *blockingFallback) Cancel() {}

func TestEngine_StopCancelsFallbackUtterance(t *testing.T) {
	log, _ := test.NewNullLogger()
	fallback := &blockingFallback{started: make(chan struct{})}
	engine := NewEngine(
		EngineDeps{
			Synthesizer: &fakeSynthesizer{err: errors.New("network down")},
			Fallback:    fallback,
			NewGraph:    func() (Graph, error) { return &fakeGraph{}, nil },
			Logger:      log,
		},
	)
	done := make(chan error, 1)
	go func() {
		done <- engine.Speak(context.Background(), "Hello")
	}()
	<-fallback.started

	engine.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("on-device voice kept speaking after Stop")
	}
	assert.False(t, engine.Active())
}
