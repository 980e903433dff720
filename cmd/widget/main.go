package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"chat-widget/internal/config"
	"chat-widget/internal/integrations/answer"
	"chat-widget/internal/integrations/paramstore"
	"chat-widget/internal/media"
	"chat-widget/internal/session"
	"chat-widget/internal/terminal"
)

const displayWidth = 100

func main() {
	if err := run(); err != nil {
		slog.Error("widget failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("failed to load .env file, continuing with the environment", "err", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if cfg.ParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return err
		}
		params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return err
		}
		if err := cfg.ResolveParams(ctx, params); err != nil {
			return err
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := answer.NewClient(cfg.AnswerBaseURL, answer.WithTimeout(cfg.AnswerTimeout))
	if err != nil {
		return err
	}
	display, err := terminal.NewDisplay(os.Stdout, displayWidth, "")
	if err != nil {
		return err
	}

	sess, err := session.New(session.Config{
		Answerer:         client,
		Store:            store,
		Policy:           cfg.HistoryPolicy,
		Logger:           logger,
		IdleWindow:       cfg.IdleWindow,
		PlaceholderDelay: cfg.PlaceholderDelay,
		ClosingThreshold: cfg.ClosingThreshold,
		OnChange:         display.Event,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	display.Welcome(session.QuickAsks())
	if err := sess.Open(ctx); err != nil {
		return err
	}
	logger.Debug("session opened", "key", sess.Key(), "backend", cfg.HistoryBackend, "policy", cfg.HistoryPolicy)

	return repl(ctx, sess, display, os.Stdin)
}

func repl(ctx context.Context, sess *session.Session, display *terminal.Display, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	display.Prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			sess.Activity()
			if quit := handleLine(ctx, sess, display, strings.TrimSpace(line)); quit {
				return nil
			}
			display.Prompt()
		}
	}
}

func handleLine(ctx context.Context, sess *session.Session, display *terminal.Display, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/exit", "/quit":
		return true
	case "/videos":
		display.Videos(media.Catalog())
	case "/history":
		display.History(sess.History())
	case "/quick":
		if !sess.QuickAsksVisible() {
			display.Notice("Quick asks are only offered before your first question.")
			return false
		}
		quick := session.QuickAsks()
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || n < 1 || n > len(quick) {
			display.QuickAsks(quick)
			return false
		}
		report(display, submitErr(sess.SubmitQuick(ctx, quick[n-1])))
	default:
		report(display, submitErr(sess.Submit(ctx, line)))
	}
	return false
}

func submitErr(_ *session.Turn, err error) error { return err }

func report(display *terminal.Display, err error) {
	switch {
	case err == nil, errors.Is(err, session.ErrEmptyQuestion):
	case errors.Is(err, session.ErrBusy):
		display.Notice("Still waiting for the previous answer.")
	default:
		display.Notice("Could not send: %v", err)
	}
}
