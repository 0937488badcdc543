package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/kbukum/mizzle/errors"
	"github.com/kbukum/mizzle/middleware"
)

// Executor runs mizzle operations on the collections of one database.
type Executor struct {
	db  *mongo.Database
	now func() time.Time
}

// NewExecutor creates an executor on db.
func NewExecutor(db *mongo.Database) *Executor {
	return &Executor{db: db, now: time.Now}
}

// Execute dispatches on mc.Operation. Single-document reads and writes
// report a missing document as a nil result; many-document writes return the
// affected count.
func (e *Executor) Execute(ctx context.Context, mc *middleware.Context) (any, error) {
	coll := e.db.Collection(mc.Collection)
	qo := queryOptions(mc.Options)

	res, err := e.dispatch(ctx, coll, mc, qo)
	if err != nil {
		return nil, translateError(mc.Collection, err)
	}
	return res, nil
}

func (e *Executor) dispatch(ctx context.Context, coll *mongo.Collection, mc *middleware.Context, qo QueryOptions) (any, error) {
	readFilter := func(f any) any {
		if qo.IncludeDeleted {
			return f
		}
		return notDeleted(f)
	}

	switch mc.Operation {
	case middleware.OpCreate:
		return e.create(ctx, coll, mc.Data)
	case middleware.OpFindOne:
		return findOne(ctx, coll, readFilter(toFilter(mc.Filter)), qo)
	case middleware.OpFindByID:
		return findOne(ctx, coll, readFilter(idFilter(mc.Filter)), qo)
	case middleware.OpFindMany:
		return findMany(ctx, coll, readFilter(toFilter(mc.Filter)), qo)
	case middleware.OpCount:
		return coll.CountDocuments(ctx, readFilter(toFilter(mc.Filter)))
	case middleware.OpAggregate:
		return aggregate(ctx, coll, mc.Filter)
	case middleware.OpUpdate:
		return updateOne(ctx, coll, toFilter(mc.Filter), mc.Data)
	case middleware.OpUpdateByID:
		return updateOne(ctx, coll, idFilter(mc.Filter), mc.Data)
	case middleware.OpUpdateMany:
		update, err := updateDocument(mc.Data)
		if err != nil {
			return nil, err
		}
		res, err := coll.UpdateMany(ctx, toFilter(mc.Filter), update)
		if err != nil {
			return nil, err
		}
		return res.ModifiedCount, nil
	case middleware.OpDelete:
		return deleteOne(ctx, coll, toFilter(mc.Filter))
	case middleware.OpDeleteByID:
		return deleteOne(ctx, coll, idFilter(mc.Filter))
	case middleware.OpDeleteMany:
		res, err := coll.DeleteMany(ctx, toFilter(mc.Filter))
		if err != nil {
			return nil, err
		}
		return res.DeletedCount, nil
	case middleware.OpSoftDelete:
		update := bson.M{"$set": bson.M{DeletedAtField: e.now().UTC()}}
		res, err := coll.UpdateMany(ctx, notDeleted(toFilter(mc.Filter)), update)
		if err != nil {
			return nil, err
		}
		return res.ModifiedCount, nil
	}
	return nil, apperrors.UnsupportedOperation(string(mc.Operation))
}

func (e *Executor) create(ctx context.Context, coll *mongo.Collection, data any) (any, error) {
	if data == nil {
		return nil, errors.New("create requires a document")
	}
	res, err := coll.InsertOne(ctx, data)
	if err != nil {
		return nil, err
	}
	return findOne(ctx, coll, bson.M{"_id": res.InsertedID}, QueryOptions{})
}

func findOne(ctx context.Context, coll *mongo.Collection, filter any, qo QueryOptions) (any, error) {
	opts := mongoopts.FindOne()
	if qo.Sort != nil {
		opts.SetSort(qo.Sort)
	}
	if qo.Skip > 0 {
		opts.SetSkip(qo.Skip)
	}
	if qo.Projection != nil {
		opts.SetProjection(qo.Projection)
	}

	var doc bson.M
	if err := coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return normalize(doc), nil
}

func findMany(ctx context.Context, coll *mongo.Collection, filter any, qo QueryOptions) (any, error) {
	opts := mongoopts.Find()
	if qo.Sort != nil {
		opts.SetSort(qo.Sort)
	}
	if qo.Skip > 0 {
		opts.SetSkip(qo.Skip)
	}
	if qo.Limit > 0 {
		opts.SetLimit(qo.Limit)
	}
	if qo.Projection != nil {
		opts.SetProjection(qo.Projection)
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return normalizeAll(docs), nil
}

func aggregate(ctx context.Context, coll *mongo.Collection, stages any) (any, error) {
	if stages == nil {
		stages = mongo.Pipeline{}
	}
	cur, err := coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return normalizeAll(docs), nil
}

func updateOne(ctx context.Context, coll *mongo.Collection, filter, data any) (any, error) {
	update, err := updateDocument(data)
	if err != nil {
		return nil, err
	}
	opts := mongoopts.FindOneAndUpdate().SetReturnDocument(mongoopts.After)

	var doc bson.M
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return normalize(doc), nil
}

func deleteOne(ctx context.Context, coll *mongo.Collection, filter any) (any, error) {
	var doc bson.M
	if err := coll.FindOneAndDelete(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return normalize(doc), nil
}

func normalizeAll(docs []bson.M) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = normalize(d).(map[string]any)
	}
	return out
}

// translateError maps driver errors onto the mizzle error taxonomy so the
// retry policy can recognize transient failures.
func translateError(collection string, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case mongo.IsDuplicateKeyError(err):
		return apperrors.Conflict("duplicate key in " + collection).WithCause(err)
	case mongo.IsTimeout(err):
		return apperrors.Timeout(collection).WithCause(err)
	case mongo.IsNetworkError(err):
		return apperrors.ConnectionFailed("mongodb", err)
	}
	return apperrors.StorageError(err)
}
