package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type FirestoreStore struct {
	client     *firestore.Client
	collection *firestore.CollectionRef
}

func NewFirestoreStore(ctx context.Context, cfg firestoreConfig, collection string) (*FirestoreStore, error) {
	projectID := cfg.ProjectID
	if projectID == "" {
		var err error
		projectID, err = projectIDFromCredentials(cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
	}

	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return newFirestoreStoreFromClient(client, collection), nil
}

func newFirestoreStoreFromClient(client *firestore.Client, collection string) *FirestoreStore {
	return &FirestoreStore{
		client:     client,
		collection: client.Collection(collection),
	}
}

// projectIDFromCredentials reads project_id from a service account file.
func projectIDFromCredentials(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file: %w", err)
	}
	if !gjson.ValidBytes(content) {
		return "", fmt.Errorf("credentials file %s is not valid JSON", path)
	}
	projectID := gjson.GetBytes(content, "project_id").String()
	if projectID == "" {
		return "", fmt.Errorf("credentials file %s has no project_id", path)
	}
	return projectID, nil
}

func (s *FirestoreStore) doc(name string) (*firestore.DocumentRef, error) {
	ref := s.collection.Doc(name)
	if ref == nil {
		return nil, fmt.Errorf("invalid document id %q", name)
	}
	return ref, nil
}

// firestoreRecord maps a DocumentRef.Get result onto a record. NotFound means
// the city has no document yet.
func firestoreRecord(name string, snapshot *firestore.DocumentSnapshot, err error) (CityStatsRecord, error) {
	if status.Code(err) == codes.NotFound {
		return CityStatsRecord{Name: name}, nil
	}
	if err != nil {
		return CityStatsRecord{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !snapshot.Exists() {
		return CityStatsRecord{Name: name}, nil
	}
	return CityStatsRecord{
		Name:   name,
		Exists: true,
		Data:   snapshot.Data(),
	}, nil
}

func (s *FirestoreStore) GetMany(ctx context.Context, names []string) ([]CityStatsRecord, error) {
	records := make([]CityStatsRecord, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			ref, err := s.doc(name)
			if err != nil {
				return err
			}
			snapshot, err := ref.Get(gctx)
			record, err := firestoreRecord(name, snapshot, err)
			if err != nil {
				return err
			}
			records[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *FirestoreStore) CommitDefaults(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return errors.New("no writes to commit")
	}

	batch := s.client.Batch()
	for _, name := range names {
		ref, err := s.doc(name)
		if err != nil {
			return err
		}
		batch.Set(ref, map[string]interface{}{onlineCountField: 0}, firestore.MergeAll)
	}

	if _, err := batch.Commit(ctx); err != nil {
		return err
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
