package middleware

import (
	"time"
)

// Session is the caller-supplied request context (authenticated user,
// request id). The pipeline reads it but never mutates it.
type Session struct {
	User      any
	RequestID string
	Values    map[string]any
}

// Context is the per-call record threaded through the chain. Exactly one
// Context exists per logical call and the same pointer is passed to every
// middleware, so Metadata written on the way in is visible to inner links
// and writes made by inner links are visible on the way out.
type Context struct {
	Collection string
	Operation  Operation

	// Operation-specific payloads, opaque to the pipeline.
	Filter  any
	Data    any
	OldDoc  any
	Options any

	// Session is the request context (the "orm" handle).
	Session *Session
	// CollectionDef is the schema/relations descriptor, forwarded as-is.
	CollectionDef any

	// Metadata is scratch space shared by all middlewares of the call.
	Metadata map[string]any

	// StartedAt is set once, before the outermost middleware runs.
	StartedAt time.Time
}

// ContextOption configures a Context created by NewContext.
type ContextOption func(*Context)

// WithFilter sets the filter payload.
func WithFilter(filter any) ContextOption {
	return func(c *Context) { c.Filter = filter }
}

// WithData sets the data payload.
func WithData(data any) ContextOption {
	return func(c *Context) { c.Data = data }
}

// WithOldDoc sets the document as it was before the write.
func WithOldDoc(doc any) ContextOption {
	return func(c *Context) { c.OldDoc = doc }
}

// WithOptions sets driver-specific options.
func WithOptions(opts any) ContextOption {
	return func(c *Context) { c.Options = opts }
}

// WithSession attaches the request context.
func WithSession(s *Session) ContextOption {
	return func(c *Context) { c.Session = s }
}

// WithCollectionDef attaches the schema descriptor.
func WithCollectionDef(def any) ContextOption {
	return func(c *Context) { c.CollectionDef = def }
}

// NewContext creates the record for one call.
func NewContext(collection string, op Operation, opts ...ContextOption) *Context {
	c := &Context{
		Collection: collection,
		Operation:  op,
		Metadata:   make(map[string]any),
		StartedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns "collection.operation".
func (c *Context) Name() string {
	return c.Collection + "." + string(c.Operation)
}

// Set writes a metadata value.
func (c *Context) Set(key string, value any) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
}

// Get reads a metadata value.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.Metadata[key]
	return v, ok
}

// User returns the session user, or nil.
func (c *Context) User() any {
	if c.Session == nil {
		return nil
	}
	return c.Session.User
}

// RequestID returns the session request id, or "".
func (c *Context) RequestID() string {
	if c.Session == nil {
		return ""
	}
	return c.Session.RequestID
}

// Elapsed returns the time since StartedAt.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartedAt)
}

// snapshotMetadata copies Metadata for use outside the call's lifetime.
func (c *Context) snapshotMetadata() map[string]any {
	if len(c.Metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(c.Metadata))
	for k, v := range c.Metadata {
		out[k] = v
	}
	return out
}
