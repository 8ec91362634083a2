package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewClient opens a Firestore client through the Firebase app. Empty
// credentials fall back to application default credentials, which also
// covers FIRESTORE_EMULATOR_HOST.
func NewClient(ctx context.Context, projectID string, credentialsJSON []byte) (*firestore.Client, error) {
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect firestore: %w", err)
	}
	return client, nil
}
