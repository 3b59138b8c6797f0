package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

// Store maps session ids to their histories. It is safe for concurrent use;
// a single history is not meant to be written by two requests at once.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*memory.ChatMessageHistory
	logger   *slog.Logger
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*memory.ChatMessageHistory),
		logger:   slog.Default().With("component", "session"),
	}
}

// New issues a fresh session id with an empty history.
func (s *Store) New() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = memory.NewChatMessageHistory()
	s.mu.Unlock()
	s.logger.Debug("session created", "session", id)
	return id
}

// History returns the turns of a session in order, creating an empty history
// for ids never seen before.
func (s *Store) History(ctx context.Context, id string) ([]core.Turn, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	messages, err := s.history(id).Messages(ctx)
	if err != nil {
		return nil, err
	}

	turns := make([]core.Turn, 0, len(messages))
	for _, msg := range messages {
		switch msg.GetType() {
		case llms.ChatMessageTypeHuman:
			turns = append(turns, core.Turn{Role: core.RoleUser, Text: msg.GetContent()})
		case llms.ChatMessageTypeAI:
			turns = append(turns, core.Turn{Role: core.RoleAssistant, Text: msg.GetContent()})
		}
	}
	return turns, nil
}

// Append adds one turn to the end of a session.
func (s *Store) Append(ctx context.Context, id string, role core.Role, text string) error {
	if id == "" {
		return ErrEmptySessionID
	}
	if err := core.ValidateRole(role); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history(id)
	if role == core.RoleUser {
		return h.AddUserMessage(ctx, text)
	}
	return h.AddAIMessage(ctx, text)
}

// AppendExchange records a question and its answer as consecutive turns.
func (s *Store) AppendExchange(ctx context.Context, id, question, answer string) error {
	if id == "" {
		return ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history(id)
	if err := h.AddUserMessage(ctx, question); err != nil {
		return err
	}
	return h.AddAIMessage(ctx, answer)
}

// Reset discards the history of id and returns a new session id.
func (s *Store) Reset(id string) string {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.logger.Debug("session reset", "session", id)
	return s.New()
}

// ResetAll discards every session.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*memory.ChatMessageHistory)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// history must be called with s.mu held.
func (s *Store) history(id string) *memory.ChatMessageHistory {
	h, ok := s.sessions[id]
	if !ok {
		h = memory.NewChatMessageHistory()
		s.sessions[id] = h
	}
	return h
}
