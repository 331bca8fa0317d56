package repository

import (
	"context"

	"chatsync/internal/adapter/repository/memory"
	"chatsync/internal/domain/repository"
	"chatsync/internal/infrastructure/firebase"
	"chatsync/pkg/config"
	"chatsync/pkg/logger"
)

// Backend is the set of repositories selected by STORE_BACKEND.
type Backend struct {
	Messages repository.MessageRepository
	Chats    repository.ChatRepository
	Users    repository.UserRepository

	// Firebase is nil for the memory backend.
	Firebase *firebase.Clients
}

func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn("Using the in-memory store; data is lost on exit")
		store := memory.NewStore()
		return &Backend{
			Messages: memory.NewMessageRepository(store),
			Chats:    memory.NewChatRepository(store),
			Users:    memory.NewUserRepository(store),
		}, nil
	}

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Backend{
		Messages: NewFirestoreMessageRepository(clients.Firestore),
		Chats:    NewFirestoreChatRepository(clients.Firestore),
		Users:    NewFirestoreUserRepository(clients.Firestore),
		Firebase: clients,
	}, nil
}

func (b *Backend) Close() error {
	if b.Firebase == nil {
		return nil
	}
	return b.Firebase.Close()
}
