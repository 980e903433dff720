// Package session implements the chat panel's state machine: submissions,
// the delayed pending placeholder, answers, idle nudges and persisted history.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-widget/internal/clock"
	"chat-widget/internal/domain"
	"chat-widget/internal/idle"
	"chat-widget/internal/integrations/answer"
	"chat-widget/internal/media"
	"chat-widget/internal/storage"
)

const (
	DefaultKey              = "chatHistory"
	DefaultIdleWindow       = idle.DefaultWindow
	DefaultPlaceholderDelay = 300 * time.Millisecond
	DefaultClosingThreshold = 5
	defaultSaveTimeout      = 5 * time.Second
	maxLinks                = 2
)

var newID = func() string { return uuid.NewString() }

// Answerer is the remote question-answering service.
type Answerer interface {
	Ask(ctx context.Context, question string) (answer.Answer, error)
	StartSession(ctx context.Context) error
}

// StartupPolicy decides what Start does with a previously stored history.
type StartupPolicy int

const (
	// StartupReset discards any stored history and greets.
	StartupReset StartupPolicy = iota
	// StartupRestore resumes the stored history, greeting when there is none.
	StartupRestore
)

// ParsePolicy accepts "reset" or "restore"; empty means reset.
func ParsePolicy(s string) (StartupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reset":
		return StartupReset, nil
	case "restore":
		return StartupRestore, nil
	default:
		return 0, fmt.Errorf("session: unknown startup policy %q", s)
	}
}

func (p StartupPolicy) String() string {
	if p == StartupRestore {
		return "restore"
	}
	return "reset"
}

// State is the submission state.
type State int

const (
	StateIdle State = iota
	StateAwaitingAnswer
)

type EventKind int

const (
	EventReset EventKind = iota
	EventAppended
	EventReplaced
)

// Event describes one history change. Index is the message position;
// it is -1 for EventReset.
type Event struct {
	Kind    EventKind
	Index   int
	Message domain.Message
}

type Config struct {
	Answerer Answerer
	// Store defaults to an in-memory store.
	Store storage.Store
	// Key defaults to DefaultKey.
	Key    string
	Policy StartupPolicy
	Clock  clock.Clock
	Logger *slog.Logger

	// Zero selects the default; negative disables the nudge.
	IdleWindow time.Duration
	// Zero selects the default; negative inserts the placeholder immediately.
	PlaceholderDelay time.Duration
	// Zero selects the default; negative never appends the closing message.
	ClosingThreshold int

	// OnChange receives history changes in order. It runs on whichever
	// goroutine made the change and must not call back into the Session.
	OnChange func(Event)
}

// Session is a single chat panel.
type Session struct {
	answerer         Answerer
	store            storage.Store
	key              string
	policy           StartupPolicy
	clock            clock.Clock
	logger           *slog.Logger
	placeholderDelay time.Duration
	closingThreshold int
	onChange         func(Event)
	idle             *idle.Timer

	mu        sync.Mutex
	history   []domain.Message
	state     State
	inflight  *Turn
	quickAsks bool
	started   bool
	closed    bool

	notifyMu sync.Mutex
}

func New(cfg Config) (*Session, error) {
	if cfg.Answerer == nil {
		return nil, errors.New("session: answerer must not be nil")
	}
	s := &Session{
		answerer:         cfg.Answerer,
		store:            cfg.Store,
		key:              cfg.Key,
		policy:           cfg.Policy,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
		placeholderDelay: cfg.PlaceholderDelay,
		closingThreshold: cfg.ClosingThreshold,
		onChange:         cfg.OnChange,
		quickAsks:        true,
	}
	if s.store == nil {
		s.store = storage.NewMemory()
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.placeholderDelay == 0 {
		s.placeholderDelay = DefaultPlaceholderDelay
	}
	if s.closingThreshold == 0 {
		s.closingThreshold = DefaultClosingThreshold
	}
	window := cfg.IdleWindow
	if window == 0 {
		window = DefaultIdleWindow
	}
	s.idle = idle.NewTimer(s.clock, window, s.nudge)
	return s, nil
}

// Open pings the session-start endpoint and then starts the session. The
// ping is best effort.
func (s *Session) Open(ctx context.Context) error {
	if err := s.answerer.StartSession(ctx); err != nil {
		s.logger.Warn("session start request failed", "key", s.key, "err", err)
	}
	return s.Start(ctx)
}

// Start applies the startup policy and arms the idle timer. Calling it again
// is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true

	var history []domain.Message
	switch s.policy {
	case StartupRestore:
		history = s.restoreLocked(ctx)
	default:
		if err := s.store.Delete(ctx, s.key); err != nil {
			s.logger.Warn("clear chat history failed", "key", s.key, "err", err)
		}
	}
	if len(history) == 0 {
		history = greetingHistory()
	}
	s.history = history
	s.persistLocked()

	events := make([]Event, 0, len(history)+1)
	events = append(events, Event{Kind: EventReset, Index: -1})
	for i, m := range history {
		events = append(events, Event{Kind: EventAppended, Index: i, Message: m})
	}
	s.unlockAndNotify(events)

	s.idle.Touch()
	return nil
}

func (s *Session) restoreLocked(ctx context.Context) []domain.Message {
	data, err := s.store.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("load chat history failed", "key", s.key, "err", err)
		}
		return nil
	}
	history, err := DecodeHistory(data)
	if err != nil {
		s.logger.Warn("stored chat history unreadable, greeting instead", "key", s.key, "err", err)
		return nil
	}
	return history
}

// Submit sends question to the answer service.
func (s *Session) Submit(ctx context.Context, question string) (*Turn, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, ErrEmptyQuestion
	}
	return s.submit(ctx, q, q)
}

// SubmitQuick sends a canned question, showing its label in the chat.
func (s *Session) SubmitQuick(ctx context.Context, qa QuickAsk) (*Turn, error) {
	q := strings.TrimSpace(qa.Question)
	if q == "" {
		return nil, ErrEmptyQuestion
	}
	label := strings.TrimSpace(qa.Label)
	if label == "" {
		label = q
	}
	return s.submit(ctx, label, q)
}

func (s *Session) submit(ctx context.Context, display, question string) (*Turn, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case !s.started:
		s.mu.Unlock()
		return nil, ErrNotStarted
	case s.inflight != nil:
		s.mu.Unlock()
		return nil, ErrBusy
	}

	reqCtx, cancel := context.WithCancel(ctx)
	turn := &Turn{question: question, done: make(chan struct{}), cancel: cancel}
	s.inflight = turn
	s.state = StateAwaitingAnswer
	s.quickAsks = false

	events := []Event{s.appendLocked(domain.Message{ID: newID(), Role: domain.RoleUser, Text: display})}
	if s.placeholderDelay < 0 {
		events = append(events, s.insertPlaceholderLocked(turn))
	} else {
		turn.placeholder = s.clock.AfterFunc(s.placeholderDelay, func() { s.placeholderDue(turn) })
	}
	s.persistLocked()
	s.unlockAndNotify(events)

	go s.run(reqCtx, turn)
	return turn, nil
}

func (s *Session) run(ctx context.Context, turn *Turn) {
	defer turn.cancel()
	ans, err := s.answerer.Ask(ctx, turn.question)
	if err != nil {
		s.logger.Warn("answer request failed", "key", s.key, "err", err)
		s.finish(turn, Outcome{Failure: classify(err), Err: err})
		return
	}
	links := ans.SourceURLs
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}
	s.finish(turn, Outcome{
		Answer:       ans.Text,
		Links:        append([]string(nil), links...),
		RelatedMedia: media.Related(turn.question),
	})
}

func (s *Session) placeholderDue(turn *Turn) {
	s.mu.Lock()
	if s.closed || s.inflight != turn || turn.resolved || turn.placeholderID != "" {
		s.mu.Unlock()
		return
	}
	ev := s.insertPlaceholderLocked(turn)
	s.persistLocked()
	s.unlockAndNotify([]Event{ev})
}

func (s *Session) insertPlaceholderLocked(turn *Turn) Event {
	turn.placeholderID = newID()
	return s.appendLocked(domain.Message{
		ID:      turn.placeholderID,
		Role:    domain.RoleBot,
		Text:    PendingText,
		Pending: true,
	})
}

func (s *Session) finish(turn *Turn, out Outcome) {
	defer close(turn.done)

	s.mu.Lock()
	turn.resolved = true
	if turn.placeholder != nil {
		turn.placeholder.Stop()
	}
	if s.inflight == turn {
		s.inflight = nil
		s.state = StateIdle
	}
	if s.closed {
		if out.OK() {
			out = Outcome{Failure: KindNetwork, Err: ErrClosed}
		}
		turn.outcome = out
		s.mu.Unlock()
		return
	}
	turn.outcome = out

	var final domain.Message
	if out.OK() {
		final = domain.Message{
			Role:         domain.RoleBot,
			Text:         out.Answer,
			Links:        out.Links,
			RelatedMedia: out.RelatedMedia,
		}
	} else {
		final = botMessage("", ErrorText)
	}

	var events []Event
	if idx := s.indexLocked(turn.placeholderID); idx >= 0 {
		final.ID = turn.placeholderID
		s.history[idx] = final
		events = append(events, Event{Kind: EventReplaced, Index: idx, Message: final})
	} else {
		final.ID = newID()
		events = append(events, s.appendLocked(final))
	}
	if out.OK() && s.closingThreshold > 0 && len(s.history) > s.closingThreshold {
		events = append(events, s.appendLocked(botMessage(newID(), ClosingText)))
	}
	s.persistLocked()
	s.unlockAndNotify(events)

	if out.OK() {
		s.idle.Touch()
	}
}

func (s *Session) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ID == id {
			return i
		}
	}
	return -1
}

// nudge runs when the idle window elapses.
func (s *Session) nudge() {
	s.mu.Lock()
	if s.closed || !s.started {
		s.mu.Unlock()
		return
	}
	ev := s.appendLocked(botMessage(newID(), NudgeText))
	s.persistLocked()
	s.unlockAndNotify([]Event{ev})
}

// Activity records user activity, re-arming the idle timer.
func (s *Session) Activity() {
	s.mu.Lock()
	active := s.started && !s.closed
	s.mu.Unlock()
	if active {
		s.idle.Touch()
	}
}

// History returns a copy of the current messages.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QuickAsksVisible reports whether the quick-ask buttons are still offered.
func (s *Session) QuickAsksVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quickAsks && !s.closed
}

// Idle returns the idle bookkeeping.
func (s *Session) Idle() idle.State {
	return s.idle.Snapshot()
}

func (s *Session) Key() string { return s.key }

// Close stops all timers and cancels an in-flight request. History does not
// change once Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if turn := s.inflight; turn != nil {
		if turn.placeholder != nil {
			turn.placeholder.Stop()
		}
		turn.cancel()
	}
	s.mu.Unlock()

	s.idle.Stop()
}

func (s *Session) appendLocked(m domain.Message) Event {
	s.history = append(s.history, m)
	return Event{Kind: EventAppended, Index: len(s.history) - 1, Message: m}
}

func (s *Session) persistLocked() {
	data, err := EncodeHistory(s.history)
	if err != nil {
		s.logger.Warn("encode chat history failed", "key", s.key, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultSaveTimeout)
	defer cancel()
	if err := s.store.Save(ctx, s.key, data); err != nil {
		s.logger.Warn("save chat history failed", "key", s.key, "err", err)
	}
}

// unlockAndNotify releases s.mu and delivers events. notifyMu is taken
// before s.mu is released so observers see changes in history order.
func (s *Session) unlockAndNotify(events []Event) {
	if s.onChange == nil || len(events) == 0 {
		s.mu.Unlock()
		return
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, ev := range events {
		s.onChange(ev)
	}
}
