package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"chat-widget/internal/domain"
	"chat-widget/internal/session"
	"chat-widget/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type UseCase interface {
	StartSession(ctx context.Context) (usecase.SessionOutput, error)
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
	History(ctx context.Context, conversationID string) (usecase.HistoryOutput, error)
}

type Handler struct {
	uc     UseCase
	logger *slog.Logger
}

type askRequest struct {
	Question       string `json:"question"`
	QuickAsk       string `json:"quickAsk"`
	ConversationID string `json:"conversationId"`
}

type askResponse struct {
	ConversationID string            `json:"conversationId"`
	Answer         string            `json:"answer"`
	Links          []string          `json:"links,omitempty"`
	RelatedMedia   []domain.MediaRef `json:"relatedMedia,omitempty"`
	History        []domain.Message  `json:"history"`
}

type sessionResponse struct {
	ConversationID string             `json:"conversationId"`
	History        []domain.Message   `json:"history"`
	QuickAsks      []session.QuickAsk `json:"quickAsks"`
}

type historyResponse struct {
	ConversationID string           `json:"conversationId"`
	History        []domain.Message `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(uc UseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc, logger: slog.Default()}, nil
}

// Handle routes API Gateway proxy requests to the chat use cases.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(event.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	logger := h.logger.With("correlationId", corrID, "method", event.HTTPMethod, "path", event.Path)

	var (
		status int
		body   any
	)
	switch route(event) {
	case "POST /session":
		status, body = h.startSession(ctx, logger)
	case "POST /ask":
		status, body = h.ask(ctx, logger, event.Body)
	case "GET /history":
		status, body = h.history(ctx, logger, event.QueryStringParameters["conversationId"])
	default:
		status, body = http.StatusNotFound, errorResponse{Error: string(usecase.ErrorNotFound)}
	}
	return respond(status, body, corrID), nil
}

func (h *Handler) startSession(ctx context.Context, logger *slog.Logger) (int, any) {
	out, err := h.uc.StartSession(ctx)
	if err != nil {
		return h.failure(logger, err)
	}
	logger.Info("session started", "conversationId", out.ConversationID)
	return http.StatusOK, sessionResponse{
		ConversationID: out.ConversationID,
		History:        out.History,
		QuickAsks:      out.QuickAsks,
	}
}

func (h *Handler) ask(ctx context.Context, logger *slog.Logger, raw string) (int, any) {
	var req askRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		logger.Warn("invalid request body", "err", err)
		return http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)}
	}
	out, err := h.uc.Ask(ctx, usecase.AskInput{
		Question:       req.Question,
		QuickAsk:       req.QuickAsk,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		return h.failure(logger, err)
	}
	return http.StatusOK, askResponse{
		ConversationID: out.ConversationID,
		Answer:         out.Answer,
		Links:          out.Links,
		RelatedMedia:   out.RelatedMedia,
		History:        out.History,
	}
}

func (h *Handler) history(ctx context.Context, logger *slog.Logger, conversationID string) (int, any) {
	out, err := h.uc.History(ctx, conversationID)
	if err != nil {
		return h.failure(logger, err)
	}
	return http.StatusOK, historyResponse{ConversationID: out.ConversationID, History: out.History}
}

func (h *Handler) failure(logger *slog.Logger, err error) (int, any) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		logger.Error("unexpected error", "err", err)
		return http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}
	}
	status := statusFor(ucErr.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	} else {
		logger.Warn("request rejected", "code", ucErr.Code, "reason", ucErr.Reason)
	}
	return status, errorResponse{Error: string(ucErr.Code)}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorInvalidQuestion:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorBusy:
		return http.StatusConflict
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func route(event events.APIGatewayProxyRequest) string {
	path := event.Path
	if path == "" {
		path = event.Resource
	}
	path = "/" + strings.Trim(path, "/")
	return strings.ToUpper(event.HTTPMethod) + " " + path
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func respond(status int, body any, corrID string) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(payload),
	}
}
