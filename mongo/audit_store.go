package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kbukum/mizzle/middleware"
)

// DefaultAuditCollection is the collection audit entries are written to.
const DefaultAuditCollection = "audit_log"

// AuditStore is a middleware.AuditStore writing one document per entry.
type AuditStore struct {
	coll *mongo.Collection
}

// NewAuditStore writes to the named collection of db. An empty name uses
// DefaultAuditCollection.
func NewAuditStore(db *mongo.Database, collection string) *AuditStore {
	if collection == "" {
		collection = DefaultAuditCollection
	}
	return &AuditStore{coll: db.Collection(collection)}
}

// EnsureIndexes creates the collection+timestamp and requestId indexes.
func (s *AuditStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "collection", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "requestId", Value: 1}}, Options: mongoopts.Index().SetSparse(true)},
	})
	if err != nil {
		return translateError(s.coll.Name(), err)
	}
	return nil
}

// Log inserts the entry. The audit id becomes the document _id.
func (s *AuditStore) Log(ctx context.Context, entry *middleware.AuditEntry) error {
	if _, err := s.coll.InsertOne(ctx, auditDocument(entry)); err != nil {
		return translateError(s.coll.Name(), err)
	}
	return nil
}

func auditDocument(entry *middleware.AuditEntry) bson.M {
	doc := bson.M{
		"_id":        entry.ID,
		"timestamp":  entry.Timestamp.UTC(),
		"collection": entry.Collection,
		"operation":  string(entry.Operation),
	}
	optional := map[string]any{
		"user":      entry.User,
		"filter":    entry.Filter,
		"data":      entry.Data,
		"oldDoc":    entry.OldDoc,
		"result":    entry.Result,
		"requestId": nilIfEmpty(entry.RequestID),
	}
	for k, v := range optional {
		if v != nil {
			doc[k] = v
		}
	}
	if len(entry.Metadata) > 0 {
		doc["metadata"] = entry.Metadata
	}
	return doc
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ middleware.AuditStore = (*AuditStore)(nil)
