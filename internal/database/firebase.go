package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

func clientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		// Application default credentials.
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}

// NewFirestore initializes a Firebase app for projectID and returns its
// Firestore client.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating firestore client: %w", err)
	}
	return client, nil
}

// NewStorage returns a Cloud Storage client using the same credentials as
// the Firebase app.
func NewStorage(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	client, err := storage.NewClient(ctx, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("error creating storage client: %w", err)
	}
	return client, nil
}
