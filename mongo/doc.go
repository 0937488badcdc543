// Package mongo runs mizzle pipelines against MongoDB with the official
// mongo-driver.
//
// Executor is a pipeline.Executor for every mizzle operation. Filters are
// passed to the driver as-is (maps, bson.M, bson.D or structs). ByID
// operations accept a hex ObjectID string, an ObjectID or any other _id
// value. Soft-deleted documents carry a deletedAt timestamp and are hidden
// from find and count operations.
//
//	client, err := mongo.Connect(ctx, mongo.Config{URI: "mongodb://localhost:27017", Database: "app"}, log)
//	users := pipeline.NewCollection[User](reg, "users", mongo.NewExecutor(client.Database()))
//
// AuditStore writes audit entries to a collection of the same database.
package mongo
