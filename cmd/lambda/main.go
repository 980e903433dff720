package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"chat-widget/handler"
	"chat-widget/internal/config"
	"chat-widget/internal/integrations/answer"
	"chat-widget/internal/integrations/paramstore"
	"chat-widget/internal/repository"
	"chat-widget/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}
	cfg.HistoryBackend = config.BackendDynamoDB
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		fatal("failed to load AWS config", err)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		fatal("failed to create SSM client", err)
	}
	if err := cfg.ResolveParams(ctx, ssmClient); err != nil {
		fatal("failed to resolve parameters", err)
	}

	answerClient, err := answer.NewClient(cfg.AnswerBaseURL, answer.WithTimeout(cfg.AnswerTimeout))
	if err != nil {
		fatal("failed to create answer client", err)
	}

	stateClient, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	if err != nil {
		fatal("failed to create state client", err)
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(answerClient, stateClient, usecase.Settings{
		MaxQuestionLen:   cfg.MaxQuestionLen,
		PlaceholderDelay: cfg.PlaceholderDelay,
		ClosingThreshold: cfg.ClosingThreshold,
		LeaseTTL:         2 * cfg.AnswerTimeout,
		Logger:           logger,
	})
	if err != nil {
		fatal("failed to create chat service", err)
	}

	h, err := handler.NewHandler(chatService)
	if err != nil {
		fatal("failed to create handler", err)
	}

	lambda.Start(h.Handle)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
