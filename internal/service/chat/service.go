package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/likeness-ai/command-center/backend/internal/model/chat"
	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

// WelcomeMessage 每个新会话的第一条模型消息
const WelcomeMessage = "Welcome to Likeness Ai. Record an idea, upload a photo to check for Deepfakes, or ask about copyright protection."

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
)

type messageRef struct {
	sessionID string
	index     int
}

// Service encapsulates conversation state management.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	index    map[string]messageRef
	now      func() time.Time
}

// NewService bootstraps the in-memory chat service; state lives for the lifetime of the process.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		index:    make(map[string]messageRef),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession provisions an anonymous session seeded with the welcome message.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
	}

	welcome := chat.Message{
		ID:        "welcome-" + session.ID,
		SessionID: session.ID,
		Role:      chat.RoleModel,
		Content:   WelcomeMessage,
		CreatedAt: session.CreatedAt,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = append(make([]chat.Message, 0, 16), welcome)
	s.index[welcome.ID] = messageRef{sessionID: session.ID, index: 0}
	s.mu.Unlock()

	return session, nil
}

// SaveMessage appends a message to the session history and returns the stored copy.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}
	// 音频只能通过 StoreAudio 挂载
	message.Audio = nil
	message.HasAudio = false

	msgs := s.messages[message.SessionID]
	s.index[message.ID] = messageRef{sessionID: message.SessionID, index: len(msgs)}
	s.messages[message.SessionID] = append(msgs, message)
	return message, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// GetMessage returns a single message by id.
func (s *Service) GetMessage(_ context.Context, messageID string) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.index[messageID]
	if !ok {
		return chat.Message{}, ErrMessageNotFound
	}
	return s.messages[ref.sessionID][ref.index], nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// CachedAudio returns the decoded audio attached to a message.
func (s *Service) CachedAudio(messageID string) (*speech.AudioBuffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.index[messageID]
	if !ok {
		return nil, false
	}
	msg := s.messages[ref.sessionID][ref.index]
	return msg.Audio, msg.Audio != nil
}

// StoreAudio attaches decoded audio to a message. An existing buffer is never replaced;
// the buffer that ends up on the message is returned.
func (s *Service) StoreAudio(messageID string, buf *speech.AudioBuffer) (*speech.AudioBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.index[messageID]
	if !ok {
		return nil, ErrMessageNotFound
	}
	msg := &s.messages[ref.sessionID][ref.index]
	if msg.Audio != nil {
		return msg.Audio, nil
	}
	msg.Audio = buf
	msg.HasAudio = true
	return buf, nil
}
