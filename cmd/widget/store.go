package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"chat-widget/internal/cache"
	"chat-widget/internal/config"
	"chat-widget/internal/repository"
	"chat-widget/internal/storage"
)

const redisKeyPrefix = "chat-widget:"

// openStore builds the history store for the configured backend. The
// returned func releases its connections.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	noop := func() {}
	switch cfg.HistoryBackend {
	case config.BackendMemory:
		return storage.NewMemory(), noop, nil
	case config.BackendFile:
		store, err := storage.NewFile(cfg.HistoryPath)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.BackendRedis:
		client, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		store, err := cache.NewRedisStore(client, redisKeyPrefix, cfg.RedisTTL)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load AWS config: %w", err)
		}
		store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}
}
