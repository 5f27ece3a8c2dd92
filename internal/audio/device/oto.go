// Package device connects the audio engine to the system output through oto.
package device

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/iamvkosarev/legal-ai-assistant/internal/audio"
)

const drainInterval = 20 * time.Millisecond

// Graph owns the oto context. Every player created from it shares one gain.
type Graph struct {
	ctx *oto.Context

	mu      sync.Mutex
	gain    float64
	sources map[*source]struct{}
}

// NewGraph opens the system output for 24 kHz mono speech. oto permits one context per
// process, so the engine creates the graph once and reuses it.
func NewGraph() (audio.Graph, error) {
	ctx, ready, err := oto.NewContext(
		&oto.NewContextOptions{
			SampleRate:   audio.SpeechSampleRate,
			ChannelCount: audio.SpeechChannels,
			Format:       oto.FormatFloat32LE,
		},
	)
	if err != nil {
		return nil, err
	}
	<-ready
	return &Graph{
		ctx:     ctx,
		gain:    1.0,
		sources: make(map[*source]struct{}),
	}, nil
}

func (g *Graph) SetGain(gain float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gain = gain
	for s := range g.sources {
		s.player.SetVolume(gain)
	}
}

func (g *Graph) Play(buf audio.Buffer) (audio.Source, error) {
	if buf.SampleRate != audio.SpeechSampleRate || len(buf.Channels) != audio.SpeechChannels {
		return nil, errors.New("buffer format does not match the output graph")
	}
	s := &source{
		graph: g,
		done:  make(chan struct{}),
	}
	reader := &eofNotifier{reader: bytes.NewReader(encodeFloat32LE(buf)), eof: make(chan struct{})}
	s.player = g.ctx.NewPlayer(reader)

	g.mu.Lock()
	s.player.SetVolume(g.gain)
	g.sources[s] = struct{}{}
	g.mu.Unlock()

	s.player.Play()
	go s.watch(reader.eof)
	return s, nil
}

func (g *Graph) Close() error {
	g.mu.Lock()
	sources := make([]*source, 0, len(g.sources))
	for s := range g.sources {
		sources = append(sources, s)
	}
	g.mu.Unlock()
	for _, s := range sources {
		s.Stop()
	}
	return nil
}

func (g *Graph) release(s *source) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sources, s)
}

type source struct {
	graph  *Graph
	player *oto.Player
	once   sync.Once
	done   chan struct{}
}

func (s *source) Stop() {
	s.finish()
}

func (s *source) Done() <-chan struct{} {
	return s.done
}

func (s *source) finish() {
	s.once.Do(
		func() {
			s.player.Pause()
			_ = s.player.Close()
			s.graph.release(s)
			close(s.done)
		},
	)
}

// watch waits until the reader is exhausted and the device has drained the player.
func (s *source) watch(eof <-chan struct{}) {
	select {
	case <-s.done:
		return
	case <-eof:
	}
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if !s.player.IsPlaying() {
				s.finish()
				return
			}
		}
	}
}

type eofNotifier struct {
	reader io.Reader
	once   sync.Once
	eof    chan struct{}
}

func (r *eofNotifier) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if errors.Is(err, io.EOF) {
		r.once.Do(func() { close(r.eof) })
	}
	return n, err
}

func encodeFloat32LE(buf audio.Buffer) []byte {
	frames := buf.Frames()
	channels := len(buf.Channels)
	out := make([]byte, frames*channels*4)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			offset := (i*channels + ch) * 4
			binary.LittleEndian.PutUint32(out[offset:], math.Float32bits(buf.Channels[ch][i]))
		}
	}
	return out
}
