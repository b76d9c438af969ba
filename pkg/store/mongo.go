// Package store persists recipe records in MongoDB.
//
// Records are stored one document per record with a sequence number, so a
// load returns them in the order they were saved. Order matters: later
// records overwrite earlier edge quantities when the graph is built.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/recipegraph/pkg/cache"
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/recipe"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultDatabase   = "recipegraph"
	DefaultCollection = "recipes"
)

// Config configures a MongoDB connection.
type Config struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds connecting and pinging. Zero means 10 seconds.
	Timeout time.Duration
	// Retry governs the initial ping. Zero uses cache.DefaultBackoff.
	Retry cache.Backoff
}

// Mongo is a record source and sink backed by one collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type document struct {
	Seq           int `bson:"seq"`
	recipe.Record `bson:",inline"`
}

// Open connects to MongoDB and pings the server.
func Open(ctx context.Context, cfg Config) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, rgerrors.New(rgerrors.ErrCodeInvalidConfig, "mongo uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, rgerrors.Resource(err, "connect to mongo")
	}
	err = cfg.Retry.Do(ctx, func() error {
		if err := client.Ping(ctx, nil); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, rgerrors.Resource(err, "ping mongo")
	}

	return &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Load returns all stored records in save order.
func (m *Mongo) Load(ctx context.Context) ([]recipe.Record, error) {
	cur, err := m.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, rgerrors.Resource(err, "find records")
	}
	defer cur.Close(ctx)

	var records []recipe.Record
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, rgerrors.Resource(err, "decode record")
		}
		records = append(records, doc.Record)
	}
	if err := cur.Err(); err != nil {
		return nil, rgerrors.Resource(err, "iterate records")
	}
	return records, nil
}

// Save replaces the stored records with records. The new records are
// written to a staging collection that is renamed over the live one, so a
// failed save leaves the previous records in place.
func (m *Mongo) Save(ctx context.Context, records []recipe.Record) error {
	if len(records) == 0 {
		if err := m.coll.Drop(ctx); err != nil {
			return rgerrors.Resource(err, "drop records")
		}
		return nil
	}

	db := m.coll.Database()
	staging := db.Collection(m.coll.Name() + "_staging_" + uuid.NewString())
	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = document{Seq: i, Record: r}
	}
	if _, err := staging.InsertMany(ctx, docs); err != nil {
		_ = staging.Drop(context.WithoutCancel(ctx))
		return rgerrors.Resource(err, "insert %d records", len(records))
	}

	rename := bson.D{
		{Key: "renameCollection", Value: db.Name() + "." + staging.Name()},
		{Key: "to", Value: db.Name() + "." + m.coll.Name()},
		{Key: "dropTarget", Value: true},
	}
	if err := m.client.Database("admin").RunCommand(ctx, rename).Err(); err != nil {
		_ = staging.Drop(context.WithoutCancel(ctx))
		return rgerrors.Resource(err, "swap in %d records", len(records))
	}
	return nil
}

// Count returns the number of stored records.
func (m *Mongo) Count(ctx context.Context) (int64, error) {
	n, err := m.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, rgerrors.Resource(err, "count records")
	}
	return n, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
