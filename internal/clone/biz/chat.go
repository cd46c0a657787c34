package biz

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/id"
	"github.com/kart-io/knowledge-clone/pkg/llm"
)

// 固定的助手消息。
const (
	Greeting        = "Hi there! I'm your knowledge clone assistant. Ask me anything based on your uploaded data."
	FallbackMessage = "Sorry, I couldn't generate a response. Please check your API keys in settings and try again."
)

// DefaultTurnTimeout 单个回合的默认超时。
const DefaultTurnTimeout = 90 * time.Second

// TranscriptEntry 会话记录中的一条消息。
type TranscriptEntry struct {
	ID   string   `json:"id"`
	Role llm.Role `json:"role"`
	ChatTurn
	// Fatal 表示这是补全失败时的兜底消息。
	Fatal     bool      `json:"fatal,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionView 会话的只读快照。
type SessionView struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"createdAt"`
	Busy       bool              `json:"busy"`
	Transcript []TranscriptEntry `json:"transcript"`
}

// TurnResult 一次提交的结果。
type TurnResult struct {
	ID       string   `json:"id"`
	Turn     ChatTurn `json:"turn"`
	Warnings []string `json:"warnings,omitempty"`
	Fatal    bool     `json:"fatal"`
}

type session struct {
	id        string
	createdAt time.Time
	busy      atomic.Bool

	mu         sync.RWMutex
	transcript []TranscriptEntry
	// history 发送给模型的消息，不含问候语和失败的回合。
	history []llm.Message
}

func (s *session) view() *SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	transcript := make([]TranscriptEntry, len(s.transcript))
	copy(transcript, s.transcript)
	return &SessionView{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		Busy:       s.busy.Load(),
		Transcript: transcript,
	}
}

// ChatService 管理会话并执行对话回合。
type ChatService struct {
	composer    *Composer
	config      *ConfigProvider
	ids         id.Generator
	turnTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewChatService 创建对话服务。
func NewChatService(composer *Composer, config *ConfigProvider, turnTimeout time.Duration) *ChatService {
	if turnTimeout <= 0 {
		turnTimeout = DefaultTurnTimeout
	}
	return &ChatService{
		composer:    composer,
		config:      config,
		ids:         id.NewULIDGenerator(),
		turnTimeout: turnTimeout,
		sessions:    make(map[string]*session),
	}
}

// CreateSession 创建会话，记录以问候语开始。
func (s *ChatService) CreateSession() *SessionView {
	sess := &session{id: s.ids.Generate(), createdAt: time.Now()}
	sess.transcript = append(sess.transcript, TranscriptEntry{
		ID:        s.ids.Generate(),
		Role:      llm.RoleAssistant,
		ChatTurn:  ChatTurn{DisplayContent: Greeting},
		Timestamp: sess.createdAt,
	})

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess.view()
}

// Session 返回会话快照。
func (s *ChatService) Session(sessionID string) (*SessionView, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.view(), nil
}

func (s *ChatService) lookup(sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	return sess, nil
}

// Submit 执行一个回合。同一会话同时只允许一个回合，回合不随请求取消。
// 补全失败时返回 Fatal 结果而不是错误。
func (s *ChatService) Submit(ctx context.Context, sessionID, prompt string) (*TurnResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.ErrEmptyPrompt
	}
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.busy.CompareAndSwap(false, true) {
		return nil, errors.ErrTurnInFlight
	}
	defer sess.busy.Store(false)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.turnTimeout)
	defer cancel()

	snap := s.config.Snapshot(ctx)
	ctx = WithSnapshot(ctx, snap)

	sess.mu.RLock()
	history := make([]llm.Message, len(sess.history))
	copy(history, sess.history)
	sess.mu.RUnlock()

	userEntry := TranscriptEntry{
		ID:        s.ids.Generate(),
		Role:      llm.RoleUser,
		ChatTurn:  ChatTurn{DisplayContent: prompt},
		Timestamp: time.Now(),
	}

	comp, err := s.composer.Compose(ctx, prompt, history, snap.Retrieval)
	result := &TurnResult{ID: s.ids.Generate()}
	if comp != nil {
		result.Warnings = comp.Warnings
	}

	if err != nil {
		logger.Errorw("Completion failed, returning fallback message",
			"session_id", sessionID, "error", err.Error())
		result.Turn = ChatTurn{DisplayContent: FallbackMessage}
		result.Fatal = true

		sess.mu.Lock()
		sess.transcript = append(sess.transcript, userEntry, TranscriptEntry{
			ID:        result.ID,
			Role:      llm.RoleAssistant,
			ChatTurn:  result.Turn,
			Fatal:     true,
			Timestamp: time.Now(),
		})
		sess.mu.Unlock()
		return result, nil
	}

	result.Turn = Gate(comp.Content, snap.Retrieval.SummarizeThreshold)

	sess.mu.Lock()
	sess.transcript = append(sess.transcript, userEntry, TranscriptEntry{
		ID:        result.ID,
		Role:      llm.RoleAssistant,
		ChatTurn:  result.Turn,
		Timestamp: time.Now(),
	})
	sess.history = append(sess.history,
		llm.Message{Role: llm.RoleUser, Content: prompt},
		llm.Message{Role: llm.RoleAssistant, Content: comp.Content},
	)
	sess.mu.Unlock()

	logger.Infow("Turn completed",
		"session_id", sessionID,
		"max_tokens", comp.MaxTokens,
		"summarized", result.Turn.IsSummarized,
		"warnings", len(result.Warnings),
	)
	return result, nil
}
