package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-widget/internal/clock"
	"chat-widget/internal/domain"
	"chat-widget/internal/session"
	"chat-widget/internal/storage"
)

const (
	defaultMaxQuestion = 300
	defaultLeaseTTL    = 2 * time.Minute
	releaseTimeout     = 5 * time.Second
	historyKeyPrefix   = session.DefaultKey + "#"
)

// Settings tunes the sessions the service runs. Zero values select the
// session defaults.
type Settings struct {
	MaxQuestionLen   int
	PlaceholderDelay time.Duration
	ClosingThreshold int
	// LeaseTTL bounds how long a crashed turn can hold a conversation. It
	// should outlast the answer timeout.
	LeaseTTL time.Duration
	Clock    clock.Clock
	Logger           *slog.Logger
}

// ChatService runs one widget session per request against a shared history
// store, keyed by conversation.
type ChatService struct {
	answerer session.Answerer
	store    storage.Store
	settings Settings
}

type SessionOutput struct {
	ConversationID string
	History        []domain.Message
	QuickAsks      []session.QuickAsk
}

type HistoryOutput struct {
	ConversationID string
	History        []domain.Message
}

func NewChatService(a session.Answerer, s storage.Store, settings Settings) (*ChatService, error) {
	if a == nil {
		return nil, errors.New("usecase: answerer must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	if settings.MaxQuestionLen <= 0 {
		settings.MaxQuestionLen = defaultMaxQuestion
	}
	if settings.LeaseTTL <= 0 {
		settings.LeaseTTL = defaultLeaseTTL
	}
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}
	return &ChatService{answerer: a, store: s, settings: settings}, nil
}

// HistoryKey is the store key of a conversation's history.
func HistoryKey(conversationID string) string {
	return historyKeyPrefix + conversationID
}

// StartSession opens a new conversation: it pings the answer service,
// stores the greeting and returns the new conversation ID.
func (s *ChatService) StartSession(ctx context.Context) (SessionOutput, error) {
	convID := newUUID()
	sess, err := s.newSession(convID, session.StartupReset)
	if err != nil {
		return SessionOutput{}, newError(ErrorInternal, "session_create_error", err)
	}
	defer sess.Close()

	if err := sess.Open(ctx); err != nil {
		return SessionOutput{}, newError(ErrorInternal, "session_start_error", err)
	}
	return SessionOutput{
		ConversationID: convID,
		History:        sess.History(),
		QuickAsks:      session.QuickAsks(),
	}, nil
}

// History returns the stored history of a conversation.
func (s *ChatService) History(ctx context.Context, conversationID string) (HistoryOutput, error) {
	convID := strings.TrimSpace(conversationID)
	if convID == "" {
		return HistoryOutput{}, newError(ErrorInvalidInput, "missing_conversation_id", nil)
	}
	data, err := s.store.Load(ctx, HistoryKey(convID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return HistoryOutput{}, newError(ErrorNotFound, "conversation_not_found", err)
		}
		return HistoryOutput{}, newError(ErrorInternal, "history_read_error", err)
	}
	history, err := session.DecodeHistory(data)
	if err != nil {
		return HistoryOutput{}, newError(ErrorInternal, "history_decode_error", err)
	}
	return HistoryOutput{ConversationID: convID, History: history}, nil
}

// requireConversation fails unless convID already has a stored history.
func (s *ChatService) requireConversation(ctx context.Context, convID string) error {
	if _, err := s.store.Load(ctx, HistoryKey(convID)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return newError(ErrorNotFound, "conversation_not_found", err)
		}
		return newError(ErrorInternal, "history_read_error", err)
	}
	return nil
}

// lock holds the conversation's lease for one turn when the store supports
// leases. Overlapping turns on one conversation get ErrorBusy.
func (s *ChatService) lock(ctx context.Context, convID string) (func(), error) {
	locker, ok := s.store.(storage.Locker)
	if !ok {
		return func() {}, nil
	}
	key := HistoryKey(convID)
	owner := newUUID()
	if err := locker.Acquire(ctx, key, owner, s.settings.LeaseTTL); err != nil {
		if errors.Is(err, storage.ErrLocked) {
			return nil, newError(ErrorBusy, "turn_in_flight", err)
		}
		return nil, newError(ErrorInternal, "lease_error", err)
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := locker.Release(releaseCtx, key, owner); err != nil {
			s.settings.Logger.Warn("release conversation lease failed", "conversationId", convID, "err", err)
		}
	}, nil
}

func (s *ChatService) newSession(convID string, policy session.StartupPolicy) (*session.Session, error) {
	return session.New(session.Config{
		Answerer:         s.answerer,
		Store:            s.store,
		Key:              HistoryKey(convID),
		Policy:           policy,
		Clock:            s.settings.Clock,
		Logger:           s.settings.Logger.With("conversationId", convID),
		IdleWindow:       -1,
		PlaceholderDelay: s.settings.PlaceholderDelay,
		ClosingThreshold: s.settings.ClosingThreshold,
	})
}

var newUUID = func() string {
	return uuid.NewString()
}
