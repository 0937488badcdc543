package mongo

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds MongoDB connection configuration.
type Config struct {
	// URI is the full connection string. When set, Host/Port/credentials are ignored.
	URI      string `mapstructure:"uri"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// Database is the database collections are resolved in.
	Database   string `mapstructure:"database"`
	AuthSource string `mapstructure:"auth_source"`
	ReplicaSet string `mapstructure:"replica_set"`
	Direct     bool   `mapstructure:"direct"`

	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`

	// ConnectTimeout bounds connection establishment (e.g. "10s").
	ConnectTimeout string `mapstructure:"connect_timeout"`
	// ServerSelectionTimeout bounds server selection per operation (e.g. "5s").
	ServerSelectionTimeout string `mapstructure:"server_selection_timeout"`
	// MaxConnIdleTime closes pooled connections idle for longer (e.g. "5m").
	MaxConnIdleTime string `mapstructure:"max_conn_idle_time"`

	// AuditCollection names the collection AuditStore writes to.
	AuditCollection string `mapstructure:"audit_collection"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.URI == "" && c.Port == 0 {
		c.Port = 27017
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 100
	}
	if c.ConnectTimeout == "" {
		c.ConnectTimeout = "10s"
	}
	if c.ServerSelectionTimeout == "" {
		c.ServerSelectionTimeout = "5s"
	}
	if c.MaxConnIdleTime == "" {
		c.MaxConnIdleTime = "5m"
	}
	if c.AuditCollection == "" {
		c.AuditCollection = DefaultAuditCollection
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if c.URI == "" {
		if c.Host == "" {
			return fmt.Errorf("host is required when uri is not provided")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535")
		}
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.MinPoolSize > c.MaxPoolSize {
		return fmt.Errorf("min_pool_size (%d) must be <= max_pool_size (%d)", c.MinPoolSize, c.MaxPoolSize)
	}
	for name, v := range map[string]string{
		"connect_timeout":          c.ConnectTimeout,
		"server_selection_timeout": c.ServerSelectionTimeout,
		"max_conn_idle_time":       c.MaxConnIdleTime,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	return nil
}

// BuildURI returns URI, or a connection string assembled from the parts.
func (c *Config) BuildURI() string {
	if c.URI != "" {
		return c.URI
	}

	var uri strings.Builder
	uri.WriteString("mongodb://")
	if c.Username != "" {
		uri.WriteString(url.QueryEscape(c.Username))
		if c.Password != "" {
			uri.WriteString(":")
			uri.WriteString(url.QueryEscape(c.Password))
		}
		uri.WriteString("@")
	}
	uri.WriteString(c.Host)
	if c.Port != 0 {
		fmt.Fprintf(&uri, ":%d", c.Port)
	}
	uri.WriteString("/")
	uri.WriteString(c.Database)

	params := url.Values{}
	if c.AuthSource != "" && c.AuthSource != "admin" {
		params.Add("authSource", c.AuthSource)
	}
	if c.ReplicaSet != "" {
		params.Add("replicaSet", c.ReplicaSet)
	}
	if c.Direct {
		params.Add("directConnection", "true")
	}
	if len(params) > 0 {
		uri.WriteString("?")
		uri.WriteString(params.Encode())
	}
	return uri.String()
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
