package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	timeoutShort = 2 * time.Second
	tick         = 5 * time.Millisecond
)

func newTestLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

type fakeStream struct {
	chunks []Chunk
	err    error
	// block, when set, is waited on before the first chunk is returned.
	block  chan struct{}
	pos    int
	closed bool
}

func (s *fakeStream) Recv() (Chunk, error) {
	if s.block != nil {
		<-s.block
		s.block = nil
	}
	if s.pos < len(s.chunks) {
		chunk := s.chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.err != nil {
		return Chunk{}, s.err
	}
	return Chunk{}, io.EOF
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeConnection struct {
	mu      sync.Mutex
	cfg     GenerationConfig
	history []model.Turn
	sent    [][]model.Part
	gen     *fakeGenerator
	sendErr error
}

func (c *fakeConnection) SendStream(_ context.Context, parts []model.Part) (ChunkStream, error) {
	next := c.gen.streamFactory()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, parts)
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	if next != nil {
		return next(), nil
	}
	return &fakeStream{}, nil
}

func (c *fakeConnection) History() []model.Turn {
	return c.history
}

type fakeGenerator struct {
	mu          sync.Mutex
	connections []*fakeConnection
	next        func() *fakeStream
	createErr   error
}

func (g *fakeGenerator) CreateChat(_ context.Context, cfg GenerationConfig, history []model.Turn) (ChatConnection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	conn := &fakeConnection{cfg: cfg, history: history, gen: g}
	g.connections = append(g.connections, conn)
	return conn, nil
}

func (g *fakeGenerator) streamFactory() func() *fakeStream {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}

func (g *fakeGenerator) created() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.connections)
}

func (g *fakeGenerator) sends() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, conn := range g.connections {
		conn.mu.Lock()
		total += len(conn.sent)
		conn.mu.Unlock()
	}
	return total
}

func streamOf(texts ...string) func() *fakeStream {
	return func() *fakeStream {
		chunks := make([]Chunk, 0, len(texts))
		for _, text := range texts {
			chunks = append(chunks, Chunk{Text: text})
		}
		return &fakeStream{chunks: chunks}
	}
}

type fakeSessionStorage struct {
	mu       sync.Mutex
	sessions []model.ChatSession
	saves    int
	saveErr  error
}

func (s *fakeSessionStorage) ListSessions(context.Context) ([]model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]model.ChatSession, len(s.sessions))
	copy(result, s.sessions)
	return result, nil
}

func (s *fakeSessionStorage) SaveSession(_ context.Context, session model.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	session.Messages = model.CloneMessages(session.Messages)
	s.sessions = model.UpsertSession(s.sessions, session, model.MaxStoredSessions)
	return nil
}

func (s *fakeSessionStorage) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = model.RemoveSession(s.sessions, id)
	return nil
}

func (s *fakeSessionStorage) ClearSessions(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	return nil
}

func (s *fakeSessionStorage) saved(id string) (model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.ID == id {
			return session, true
		}
	}
	return model.ChatSession{}, false
}

type fakeProfileStorage struct {
	profile model.UserProfile
	err     error
}

func (s *fakeProfileStorage) GetProfile(context.Context) (model.UserProfile, error) {
	return s.profile, s.err
}

func (s *fakeProfileStorage) SaveProfile(_ context.Context, profile model.UserProfile) error {
	s.profile = profile
	return nil
}

type fakeConnectivity struct {
	online bool
}

func (c fakeConnectivity) Online() bool {
	return c.online
}
