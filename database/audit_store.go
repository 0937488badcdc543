package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/mizzle/middleware"
)

// DefaultAuditTable is the table audit rows are written to.
const DefaultAuditTable = "mizzle_audit_log"

// AuditRecord is the row shape of the audit table. Payload columns hold JSON.
type AuditRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Timestamp  time.Time `gorm:"index;not null"`
	Collection string    `gorm:"index;size:255;not null"`
	Operation  string    `gorm:"size:32;not null"`
	RequestID  string    `gorm:"size:128"`
	User       string    `gorm:"type:text"`
	Filter     string    `gorm:"type:text"`
	Data       string    `gorm:"type:text"`
	OldDoc     string    `gorm:"type:text"`
	Result     string    `gorm:"type:text"`
	Metadata   string    `gorm:"type:text"`
}

// RecordFromEntry flattens an audit entry into a row.
func RecordFromEntry(entry *middleware.AuditEntry) (*AuditRecord, error) {
	rec := &AuditRecord{
		ID:         entry.ID,
		Timestamp:  entry.Timestamp.UTC(),
		Collection: entry.Collection,
		Operation:  string(entry.Operation),
		RequestID:  entry.RequestID,
	}

	var metadata any
	if len(entry.Metadata) > 0 {
		metadata = entry.Metadata
	}

	columns := []struct {
		name  string
		value any
		dst   *string
	}{
		{"user", entry.User, &rec.User},
		{"filter", entry.Filter, &rec.Filter},
		{"data", entry.Data, &rec.Data},
		{"old_doc", entry.OldDoc, &rec.OldDoc},
		{"result", entry.Result, &rec.Result},
		{"metadata", metadata, &rec.Metadata},
	}

	for _, c := range columns {
		if c.value == nil {
			continue
		}
		raw, err := json.Marshal(c.value)
		if err != nil {
			return nil, fmt.Errorf("audit %s column: %w", c.name, err)
		}
		*c.dst = string(raw)
	}
	return rec, nil
}

// Entry rebuilds the audit entry. Payloads come back as generic JSON values.
func (r *AuditRecord) Entry() (*middleware.AuditEntry, error) {
	entry := &middleware.AuditEntry{
		ID:         r.ID,
		Timestamp:  r.Timestamp,
		Collection: r.Collection,
		Operation:  middleware.Operation(r.Operation),
		RequestID:  r.RequestID,
	}

	columns := []struct {
		name string
		raw  string
		dst  any
	}{
		{"user", r.User, &entry.User},
		{"filter", r.Filter, &entry.Filter},
		{"data", r.Data, &entry.Data},
		{"old_doc", r.OldDoc, &entry.OldDoc},
		{"result", r.Result, &entry.Result},
		{"metadata", r.Metadata, &entry.Metadata},
	}
	for _, c := range columns {
		if c.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c.raw), c.dst); err != nil {
			return nil, fmt.Errorf("audit %s column: %w", c.name, err)
		}
	}
	return entry, nil
}

// AuditStore is a middleware.AuditStore writing one row per entry.
type AuditStore struct {
	db    *gorm.DB
	table string
}

// NewAuditStore creates a store on db, using the configured audit table.
// When Config.AutoMigrate is set the table is created or updated first.
func NewAuditStore(ctx context.Context, db *DB) (*AuditStore, error) {
	s := &AuditStore{db: db.GormDB, table: db.cfg.AuditTable}
	if s.table == "" {
		s.table = DefaultAuditTable
	}
	if db.cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Migrate creates or updates the audit table.
func (s *AuditStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Table(s.table).AutoMigrate(&AuditRecord{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", s.table, err)
	}
	return nil
}

// Log inserts the entry.
func (s *AuditStore) Log(ctx context.Context, entry *middleware.AuditEntry) error {
	rec, err := RecordFromEntry(entry)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Table(s.table).Create(rec).Error; err != nil {
		return FromDatabase(err, s.table)
	}
	return nil
}

// AuditQuery filters List. Zero fields match everything.
type AuditQuery struct {
	Collection string
	Operation  middleware.Operation
	RequestID  string
	Since      time.Time
	// Limit caps the number of rows. Zero means 100.
	Limit int
}

// List returns matching entries, newest first.
func (s *AuditStore) List(ctx context.Context, q AuditQuery) ([]*middleware.AuditEntry, error) {
	tx := s.db.WithContext(ctx).Table(s.table)
	if q.Collection != "" {
		tx = tx.Where("collection = ?", q.Collection)
	}
	if q.Operation != "" {
		tx = tx.Where("operation = ?", string(q.Operation))
	}
	if q.RequestID != "" {
		tx = tx.Where("request_id = ?", q.RequestID)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("timestamp >= ?", q.Since.UTC())
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	var rows []AuditRecord
	if err := tx.Order("timestamp DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, FromDatabase(err, s.table)
	}

	entries := make([]*middleware.AuditEntry, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].Entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var _ middleware.AuditStore = (*AuditStore)(nil)
