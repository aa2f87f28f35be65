package cache

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/shakify/pkg/result"
)

// Defaults for [MongoOptions].
const (
	DefaultMongoDatabase   = "shakify"
	DefaultMongoCollection = "cache"
	mongoDocumentID        = "results"
)

// MongoOptions selects where the document is stored.
type MongoOptions struct {
	Database   string
	Collection string
}

// MongoStore keeps the document in a single MongoDB record. ReplaceOne with
// upsert swaps the record atomically.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoRecord struct {
	ID        string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// NewMongoStore connects to uri and verifies the connection.
func NewMongoStore(ctx context.Context, uri string, opts MongoOptions) (*MongoStore, error) {
	if opts.Database == "" {
		opts.Database = DefaultMongoDatabase
	}
	if opts.Collection == "" {
		opts.Collection = DefaultMongoCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
	}, nil
}

// Load fetches the document; a missing record yields an empty document.
func (s *MongoStore) Load(ctx context.Context) (result.Document, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": mongoDocumentID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return result.Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode([]byte(rec.Payload)), nil
}

// Save replaces the record.
func (s *MongoStore) Save(ctx context.Context, doc result.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	rec := mongoRecord{ID: mongoDocumentID, Payload: string(data), UpdatedAt: time.Now().UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": mongoDocumentID}, rec, options.Replace().SetUpsert(true))
	return err
}

// Clear deletes the record.
func (s *MongoStore) Clear(ctx context.Context) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": mongoDocumentID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// Location returns mongodb://<db>.<collection>.
func (s *MongoStore) Location() string {
	return "mongodb://" + s.coll.Database().Name() + "." + s.coll.Name()
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
