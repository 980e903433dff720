package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"chat-widget/internal/domain"
	"chat-widget/internal/session"
)

type AskInput struct {
	Question       string
	QuickAsk       string
	ConversationID string
}

type AskOutput struct {
	ConversationID string
	Answer         string
	Links          []string
	RelatedMedia   []domain.MediaRef
	History        []domain.Message
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Ask resumes a stored conversation, runs one turn to completion and returns
// the updated history. An empty conversation ID starts a new conversation;
// an unknown one is rejected. Failed turns are still recorded in the history.
func (s *ChatService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	quick, hasQuick, err := resolveQuickAsk(in.QuickAsk)
	if err != nil {
		return AskOutput{}, err
	}
	if question == "" && !hasQuick {
		return AskOutput{}, newError(ErrorInvalidInput, "empty_question", nil)
	}
	if utf8.RuneCountInString(question) > s.settings.MaxQuestionLen {
		return AskOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}

	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" {
		convID = newUUID()
	} else if err := s.requireConversation(ctx, convID); err != nil {
		return AskOutput{}, err
	}

	release, err := s.lock(ctx, convID)
	if err != nil {
		return AskOutput{}, err
	}
	defer release()

	sess, err := s.newSession(convID, session.StartupRestore)
	if err != nil {
		return AskOutput{}, newError(ErrorInternal, "session_create_error", err)
	}
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		return AskOutput{}, newError(ErrorInternal, "session_start_error", err)
	}

	var turn *session.Turn
	if question != "" {
		turn, err = sess.Submit(ctx, question)
	} else {
		turn, err = sess.SubmitQuick(ctx, quick)
	}
	if err != nil {
		if errors.Is(err, session.ErrEmptyQuestion) {
			return AskOutput{}, newError(ErrorInvalidInput, "empty_question", err)
		}
		return AskOutput{}, newError(ErrorInternal, "submit_error", err)
	}

	out, err := turn.Wait(ctx)
	if err != nil {
		return AskOutput{}, newError(ErrorUpstream, "answer_timeout", err)
	}
	if !out.OK() {
		return AskOutput{}, failureError(out)
	}

	return AskOutput{
		ConversationID: convID,
		Answer:         out.Answer,
		Links:          out.Links,
		RelatedMedia:   out.RelatedMedia,
		History:        sess.History(),
	}, nil
}

func resolveQuickAsk(label string) (session.QuickAsk, bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return session.QuickAsk{}, false, nil
	}
	for _, qa := range session.QuickAsks() {
		if strings.EqualFold(qa.Label, label) {
			return qa, true, nil
		}
	}
	return session.QuickAsk{}, false, newError(ErrorInvalidQuestion, "unknown_quick_ask", nil)
}

func failureError(out session.Outcome) error {
	if out.Failure == session.KindService {
		if status, ok := upstreamStatusCode(out.Err); ok && status == http.StatusTooManyRequests {
			return newError(ErrorRateLimited, "answer_rate_limited", out.Err)
		}
		return newError(ErrorUpstream, "answer_error", out.Err)
	}
	return newError(ErrorUpstream, "answer_unavailable", out.Err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
