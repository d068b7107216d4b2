package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/case-framework/case-backend/pkg/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const mongoDBName = "city-stats"

// MongoStore keeps one document per city with the city name as _id. Batch
// commits run in a transaction, so the server must be a replica set.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    int
}

func NewMongoStore(configs db.DBConfig, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer conCancel()

	if err := dbClient.Ping(ctx, nil); err != nil {
		_ = dbClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := configs.DBNamePrefix + mongoDBName
	slog.Info("Connected to MongoDB", slog.String("db", dbName), slog.String("collection", collection))

	return newMongoStoreFromClient(dbClient, dbName, collection, configs.Timeout), nil
}

func newMongoStoreFromClient(client *mongo.Client, dbName string, collection string, timeout int) *MongoStore {
	if timeout <= 0 {
		timeout = 10
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(collection),
		timeout:    timeout,
	}
}

// mongoRecord maps a FindOne result onto a record. ErrNoDocuments means the
// city has no document yet.
func mongoRecord(name string, doc bson.M, err error) (CityStatsRecord, error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return CityStatsRecord{Name: name}, nil
	}
	if err != nil {
		return CityStatsRecord{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return CityStatsRecord{
		Name:   name,
		Exists: true,
		Data:   map[string]interface{}(doc),
	}, nil
}

func (s *MongoStore) GetMany(ctx context.Context, names []string) ([]CityStatsRecord, error) {
	records := make([]CityStatsRecord, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			var doc bson.M
			err := s.collection.FindOne(gctx, bson.M{"_id": name}).Decode(&doc)
			record, err := mongoRecord(name, doc, err)
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

func (s *MongoStore) CommitDefaults(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return errors.New("no writes to commit")
	}

	models := make([]mongo.WriteModel, 0, len(names))
	for _, name := range names {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": name}).
			SetUpdate(bson.M{"$set": bson.M{onlineCountField: 0}}).
			SetUpsert(true))
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return s.collection.BulkWrite(sc, models, options.BulkWrite().SetOrdered(true))
	})
	return err
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.timeout)*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
