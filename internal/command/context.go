package command

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"chatsync/internal/adapter/repository"
	"chatsync/internal/usecase"
	"chatsync/pkg/config"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

// openBackend is replaced in tests so several commands can share one memory store.
var openBackend = repository.OpenBackend

// CommandContext provides shared command resources.
type CommandContext struct {
	SelfID   string
	JSONMode bool

	Store      *usecase.MessageStore
	Stream     *usecase.MessageStream
	Aggregator *usecase.ThreadAggregator
	Users      *usecase.UserUseCase

	backend *repository.Backend
}

// GetContext loads configuration and opens the store backend for a command.
func GetContext(ctx context.Context, cmd *cobra.Command) (*CommandContext, error) {
	selfID, _ := cmd.Flags().GetString("as")
	jsonMode, _ := cmd.Flags().GetBool("json")

	selfID = strings.TrimSpace(selfID)
	if selfID == "" {
		return nil, errors.InvalidArgument("--as is required (or set CHATSYNC_AS)")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.Environment)
	// Keep stdout for command output.
	logger.Logger().SetOutput(cmd.ErrOrStderr())

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		SelfID:     selfID,
		JSONMode:   jsonMode,
		Store:      usecase.NewMessageStore(backend.Messages, backend.Chats),
		Stream:     usecase.NewMessageStream(backend.Messages, cfg.SideEffectTimeout),
		Aggregator: usecase.NewThreadAggregator(backend.Messages, backend.Chats),
		Users:      usecase.NewUserUseCase(backend.Users),
		backend:    backend,
	}, nil
}

// Close drains pending delivered bumps before releasing the backend.
func (c *CommandContext) Close() {
	c.Stream.Shutdown()
	if err := c.backend.Close(); err != nil {
		logger.Warn("Failed to close backend: %v", err)
	}
}
