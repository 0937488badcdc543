package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kbukum/mizzle/logger"
)

// Client wraps a mongo.Client bound to one database.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	log      *logger.Logger
	cfg      Config
	closed   bool
	mu       sync.Mutex
}

// Connect dials MongoDB and verifies the connection with a ping. A nil
// logger uses the "mizzle.mongo" component logger.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mongo config: %w", err)
	}
	if log == nil {
		log = logger.Get("mizzle.mongo")
	}

	clientOpts := mongoopts.Client().
		ApplyURI(cfg.BuildURI()).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetConnectTimeout(duration(cfg.ConnectTimeout)).
		SetServerSelectionTimeout(duration(cfg.ServerSelectionTimeout)).
		SetMaxConnIdleTime(duration(cfg.MaxConnIdleTime))
	if cfg.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(cfg.MinPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("MongoDB client connected", map[string]interface{}{
		"database":      cfg.Database,
		"max_pool_size": cfg.MaxPoolSize,
	})

	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		log:      log,
		cfg:      cfg,
	}, nil
}

// Ping checks if the connection to MongoDB is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Database returns the configured database.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Close disconnects. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.log.Info("Closing MongoDB connection")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Raw returns the underlying mongo.Client.
func (c *Client) Raw() *mongo.Client {
	return c.client
}
