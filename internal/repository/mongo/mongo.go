// Package mongo implements repository.BlobStore on a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/and161185/goph-social/internal/errs"
	"github.com/and161185/goph-social/internal/repository"
)

// CollectionName is the collection holding one document per blob key.
const CollectionName = "blobs"

type blobDoc struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	Ver       int64     `bson:"ver"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store keeps blobs in a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ repository.BlobStore = (*Store)(nil)

// Open connects to uri, pings the primary and uses database db.
func Open(ctx context.Context, uri, db string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{client: client, coll: client.Database(db).Collection(CollectionName)}, nil
}

// Get finds the document by key.
func (s *Store) Get(ctx context.Context, key string) (repository.Blob, error) {
	var doc blobDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.Blob{}, errs.ErrNotFound
	}
	if err != nil {
		return repository.Blob{}, err
	}
	return repository.Blob{Value: doc.Value, Ver: doc.Ver}, nil
}

// Put inserts a new document (baseVer=0) or updates it guarded by ver.
func (s *Store) Put(ctx context.Context, key string, value []byte, baseVer int64) (int64, error) {
	now := time.Now().UTC()
	if baseVer == 0 {
		_, err := s.coll.InsertOne(ctx, blobDoc{Key: key, Value: value, Ver: 1, UpdatedAt: now})
		if mongo.IsDuplicateKeyError(err) {
			return 0, errs.ErrVersionConflict
		}
		if err != nil {
			return 0, err
		}
		return 1, nil
	}

	newVer := baseVer + 1
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": key, "ver": baseVer},
		bson.M{"$set": bson.M{"value": value, "ver": newVer, "updated_at": now}},
	)
	if err != nil {
		return 0, err
	}
	if res.MatchedCount == 0 {
		return 0, errs.ErrVersionConflict
	}
	return newVer, nil
}

// Delete removes the document for key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
