package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/mizzle/logger"
)

// AuditEntry records one audited call.
type AuditEntry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	User       any            `json:"user,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Collection string         `json:"collection"`
	Operation  Operation      `json:"operation"`
	Filter     any            `json:"filter,omitempty"`
	Data       any            `json:"data,omitempty"`
	OldDoc     any            `json:"old_doc,omitempty"`
	Result     any            `json:"result,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AuditStore persists audit entries.
type AuditStore interface {
	Log(ctx context.Context, entry *AuditEntry) error
}

// AuditStoreFunc adapts a function to AuditStore.
type AuditStoreFunc func(ctx context.Context, entry *AuditEntry) error

// Log calls f.
func (f AuditStoreFunc) Log(ctx context.Context, entry *AuditEntry) error { return f(ctx, entry) }

// LoggerAuditStore writes entries to a Logger at info level.
type LoggerAuditStore struct {
	log Logger
}

// NewLoggerAuditStore creates a store writing to log. Nil uses the
// "mizzle.audit" component logger.
func NewLoggerAuditStore(log Logger) *LoggerAuditStore {
	return &LoggerAuditStore{log: componentLogger(log, "audit")}
}

// Log writes the entry.
func (s *LoggerAuditStore) Log(_ context.Context, entry *AuditEntry) error {
	fields := logger.OperationFields(entry.Collection, string(entry.Operation))
	fields["audit_id"] = entry.ID
	fields["timestamp"] = entry.Timestamp
	fields["user"] = entry.User
	if entry.RequestID != "" {
		fields[logger.FieldRequestID] = entry.RequestID
	}
	if entry.Filter != nil {
		fields["filter"] = entry.Filter
	}
	if entry.Data != nil {
		fields["data"] = entry.Data
	}
	if entry.OldDoc != nil {
		fields["old_doc"] = entry.OldDoc
	}
	if entry.Result != nil {
		fields["result"] = entry.Result
	}
	if len(entry.Metadata) > 0 {
		fields["metadata"] = entry.Metadata
	}
	s.log.Info("audit", fields)
	return nil
}

// AuditConfig configures the Audit policy.
type AuditConfig struct {
	// Store receives the entries. Nil uses a LoggerAuditStore.
	Store AuditStore
	// IncludeReads audits read operations too.
	IncludeReads bool
	// Operations, when non-nil, is the exact set of audited operations and
	// overrides IncludeReads.
	Operations []Operation
	// TransformEntry may rewrite (for example redact) an entry before it is
	// stored. A nil return drops the entry.
	TransformEntry func(entry *AuditEntry) *AuditEntry
	// Logger receives store failures.
	Logger Logger
	// Runner executes the detached store writes. Nil spawns a goroutine.
	Runner Runner
}

// Audit returns a policy that records an entry for every successful
// auditable call. By default only writes are audited. The entry is stored in
// the background and store failures never affect the returned result.
func Audit(cfg AuditConfig) Middleware {
	if cfg.Store == nil {
		cfg.Store = NewLoggerAuditStore(cfg.Logger)
	}
	log := componentLogger(cfg.Logger, "audit")

	var explicit operationSet
	if cfg.Operations != nil {
		explicit = newOperationSet(cfg.Operations)
	}
	auditable := func(op Operation) bool {
		if explicit != nil {
			return explicit.has(op)
		}
		return cfg.IncludeReads || op.IsWrite()
	}

	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		if !auditable(mc.Operation) {
			return next(ctx)
		}

		result, err := next(ctx)
		if err != nil {
			return result, err
		}

		entry := &AuditEntry{
			ID:         uuid.NewString(),
			Timestamp:  time.Now().UTC(),
			User:       mc.User(),
			RequestID:  mc.RequestID(),
			Collection: mc.Collection,
			Operation:  mc.Operation,
			Filter:     mc.Filter,
			Data:       mc.Data,
			OldDoc:     mc.OldDoc,
			Result:     result,
			Metadata:   mc.snapshotMetadata(),
		}
		if cfg.TransformEntry != nil {
			entry = cfg.TransformEntry(entry)
		}
		if entry == nil {
			return result, nil
		}

		fields := opFields(mc)
		fields["audit_id"] = entry.ID
		detach(ctx, cfg.Runner, log, "audit log", fields, func(ctx context.Context) error {
			return cfg.Store.Log(ctx, entry)
		})
		return result, nil
	}
}
