package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"chatsync/pkg/config"
	"chatsync/pkg/logger"
)

// Clients bundles the Firebase services the chat backend talks to.
type Clients struct {
	Firestore *firestore.Client
	Auth      *auth.Client
}

func (c *Clients) Close() error {
	if c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}

// CredentialsOption picks the service account: inline JSON first, then a file
// path. With neither set, application default credentials are used.
func CredentialsOption(cfg *config.Config) ([]option.ClientOption, error) {
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))}, nil
	}

	if cfg.ServiceAccountPath != "" {
		if _, err := os.Stat(cfg.ServiceAccountPath); err != nil {
			return nil, fmt.Errorf("service account file %s: %w", cfg.ServiceAccountPath, err)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.ServiceAccountPath)}, nil
	}

	logger.Info("Using application default credentials")
	return nil, nil
}

func NewClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	opts, err := CredentialsOption(cfg)
	if err != nil {
		return nil, err
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase auth: %w", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &Clients{
		Firestore: firestoreClient,
		Auth:      authClient,
	}, nil
}
