package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"chat-widget/internal/domain"
	"chat-widget/internal/session"
	"chat-widget/internal/usecase"
)

type stubUseCase struct {
	askOut     usecase.AskOutput
	sessionOut usecase.SessionOutput
	historyOut usecase.HistoryOutput
	err        error

	in        usecase.AskInput
	historyID string
}

func (s *stubUseCase) StartSession(context.Context) (usecase.SessionOutput, error) {
	return s.sessionOut, s.err
}

func (s *stubUseCase) Ask(_ context.Context, in usecase.AskInput) (usecase.AskOutput, error) {
	s.in = in
	return s.askOut, s.err
}

func (s *stubUseCase) History(_ context.Context, conversationID string) (usecase.HistoryOutput, error) {
	s.historyID = conversationID
	return s.historyOut, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/ask",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newTestHandler(t *testing.T, uc UseCase) *Handler {
	t.Helper()
	h, err := NewHandler(uc)
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_Ask_HappyPath(t *testing.T) {
	history := []domain.Message{
		{ID: "u1", Role: domain.RoleUser, Text: "What do you do?"},
		{ID: "b1", Role: domain.RoleBot, Text: "hello", Links: []string{"https://a.example"}},
	}
	uc := &stubUseCase{askOut: usecase.AskOutput{
		Answer:         "hello",
		ConversationID: "conv-1",
		Links:          []string{"https://a.example"},
		History:        history,
	}}
	h := newTestHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(`{"question":"What do you do?","conversationId":"conv-1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.AskInput{Question: "What do you do?", ConversationID: "conv-1"}, uc.in)

	out := parseBody[askResponse](t, resp.Body)
	require.Equal(t, "hello", out.Answer)
	require.Equal(t, "conv-1", out.ConversationID)
	require.Equal(t, history, out.History)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
}

func TestHandle_Ask_QuickAsk(t *testing.T) {
	uc := &stubUseCase{}
	h := newTestHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(`{"quickAsk":"Assignment Prep","conversationId":"conv-1"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.AskInput{QuickAsk: "Assignment Prep", ConversationID: "conv-1"}, uc.in)
}

func TestHandle_InvalidBody(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{})

	resp, err := h.Handle(context.Background(), makeEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_StartSession(t *testing.T) {
	uc := &stubUseCase{sessionOut: usecase.SessionOutput{
		ConversationID: "conv-9",
		History:        []domain.Message{{ID: "b1", Role: domain.RoleBot, Text: session.Greeting[0]}},
		QuickAsks:      session.QuickAsks(),
	}}
	h := newTestHandler(t, uc)

	event := makeEvent("")
	event.Path = "/session/"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[sessionResponse](t, resp.Body)
	require.Equal(t, "conv-9", out.ConversationID)
	require.Len(t, out.History, 1)
	require.Equal(t, session.QuickAsks(), out.QuickAsks)
}

func TestHandle_History(t *testing.T) {
	uc := &stubUseCase{historyOut: usecase.HistoryOutput{
		ConversationID: "conv-1",
		History:        []domain.Message{{ID: "b1", Role: domain.RoleBot, Text: "hi"}},
	}}
	h := newTestHandler(t, uc)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/history",
		QueryStringParameters: map[string]string{"conversationId": "conv-1"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "conv-1", uc.historyID)

	out := parseBody[historyResponse](t, resp.Body)
	require.Equal(t, "hi", out.History[0].Text)
}

func TestHandle_UnknownRoute(t *testing.T) {
	h := newTestHandler(t, &stubUseCase{})

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodDelete, Path: "/ask"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, string(usecase.ErrorNotFound), parseBody[errorResponse](t, resp.Body).Error)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_question"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "invalid question", err: &usecase.Error{Code: usecase.ErrorInvalidQuestion, Reason: "unknown_quick_ask"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidQuestion)},
		{name: "not found", err: &usecase.Error{Code: usecase.ErrorNotFound, Reason: "conversation_not_found"}, status: http.StatusNotFound, code: string(usecase.ErrorNotFound)},
		{name: "busy", err: &usecase.Error{Code: usecase.ErrorBusy, Reason: "turn_in_flight"}, status: http.StatusConflict, code: string(usecase.ErrorBusy)},
		{name: "rate limited", err: &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "answer_rate_limited"}, status: http.StatusTooManyRequests, code: string(usecase.ErrorRateLimited)},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "answer_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorUpstream)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "history_read_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubUseCase{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(`{"question":"What do you do?"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{askOut: usecase.AskOutput{Answer: "ok", ConversationID: "conv-1"}}
	h := newTestHandler(t, uc)

	event := makeEvent(`{"question":"What do you do?"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
