package session

import (
	"context"

	"chat-widget/internal/clock"
	"chat-widget/internal/domain"
)

// Outcome is the result of one question/answer turn.
type Outcome struct {
	Answer       string
	Links        []string
	RelatedMedia []domain.MediaRef
	Failure      ErrorKind
	Err          error
}

// OK reports whether the turn produced an answer.
func (o Outcome) OK() bool { return o.Failure == KindNone }

// Turn is the asynchronous task behind a single submission.
type Turn struct {
	question string
	done     chan struct{}
	cancel   context.CancelFunc

	// guarded by the owning Session's mutex
	placeholder   clock.Timer
	placeholderID string
	resolved      bool

	outcome Outcome
}

// Question returns the text sent to the answer service.
func (t *Turn) Question() string { return t.question }

// Done is closed once the turn has resolved and history reflects it.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Wait blocks until the turn resolves or ctx ends.
func (t *Turn) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Outcome returns the result once Done is closed, and false before that.
func (t *Turn) Outcome() (Outcome, bool) {
	select {
	case <-t.done:
		return t.outcome, true
	default:
		return Outcome{}, false
	}
}
