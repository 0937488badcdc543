package mongo

import (
	"fmt"
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeletedAtField marks a soft-deleted document.
const DeletedAtField = "deletedAt"

// QueryOptions shapes find operations. Pass it as the call options
// (pipeline.WithOptions).
type QueryOptions struct {
	Sort       bson.D
	Skip       int64
	Limit      int64
	Projection any
	// IncludeDeleted returns soft-deleted documents too.
	IncludeDeleted bool
}

func queryOptions(v any) QueryOptions {
	switch o := v.(type) {
	case QueryOptions:
		return o
	case *QueryOptions:
		if o != nil {
			return *o
		}
	}
	return QueryOptions{}
}

// toFilter converts a caller filter into something the driver accepts.
// Nil becomes the empty document.
func toFilter(filter any) any {
	switch f := filter.(type) {
	case nil:
		return bson.M{}
	case map[string]any:
		return bson.M(f)
	}
	return filter
}

// idFilter matches on _id. Hex strings that parse as ObjectIDs are converted.
func idFilter(id any) bson.M {
	if s, ok := id.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return bson.M{"_id": oid}
		}
	}
	return bson.M{"_id": id}
}

// notDeleted restricts filter to documents without a deletedAt value.
// Filters that already constrain deletedAt are left alone.
func notDeleted(filter any) any {
	alive := bson.M{DeletedAtField: nil}

	switch f := filter.(type) {
	case bson.M:
		if len(f) == 0 {
			return alive
		}
		if _, set := f[DeletedAtField]; set {
			return f
		}
		merged := make(bson.M, len(f)+1)
		for k, v := range f {
			merged[k] = v
		}
		merged[DeletedAtField] = nil
		return merged
	case bson.D:
		if len(f) == 0 {
			return alive
		}
		for _, e := range f {
			if e.Key == DeletedAtField {
				return f
			}
		}
	}
	return bson.M{"$and": bson.A{filter, alive}}
}

// updateDocument wraps plain field maps and structs in $set. Documents that
// already use update operators pass through.
func updateDocument(data any) (any, error) {
	switch d := data.(type) {
	case nil:
		return nil, fmt.Errorf("update document is required")
	case bson.M:
		return wrapSet(d, hasOperator(keysOfM(d))), nil
	case map[string]any:
		return wrapSet(bson.M(d), hasOperator(keysOfM(d))), nil
	case bson.D:
		keys := make([]string, len(d))
		for i, e := range d {
			keys[i] = e.Key
		}
		return wrapSet(d, hasOperator(keys)), nil
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("update document must be a map or struct, got %T", data)
	}
	return bson.M{"$set": data}, nil
}

func wrapSet(doc any, operators bool) any {
	if operators {
		return doc
	}
	return bson.M{"$set": doc}
}

func keysOfM(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func hasOperator(keys []string) bool {
	for _, k := range keys {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// normalize turns decoded BSON into plain Go values (map[string]any,
// []any) so results encode to JSON as objects and arrays.
func normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	}
	return v
}
