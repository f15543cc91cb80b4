// Package gcp builds Google Cloud clients from an optional service account
// file. Without one, Application Default Credentials apply.
package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

func clientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}

// NewFirebaseAuth initializes a Firebase App and returns its Auth client.
func NewFirebaseAuth(ctx context.Context, credentialsFile string) (*firebaseauth.Client, error) {
	app, err := firebase.NewApp(ctx, nil, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase auth [%w]", err)
	}
	return client, nil
}

// NewStorageClient returns a Cloud Storage client. Callers close it.
func NewStorageClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	client, err := storage.NewClient(ctx, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage client [%w]", err)
	}
	return client, nil
}
