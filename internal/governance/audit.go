package governance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditAction names the kind of operation an AuditEntry records.
type AuditAction string

const (
	ActionSearch AuditAction = "search"
	ActionAccess AuditAction = "access"
	ActionExport AuditAction = "export"
	ActionModify AuditAction = "modify"
)

// AuditEntry is produced for every secure search, success or failure.
type AuditEntry struct {
	ID                    string
	Timestamp             time.Time
	UserID                string
	UserRole              string
	Action                AuditAction
	Resource              string
	Query                 string
	ResultCount           int
	SearchTimeMs          int64
	Success               bool
	ErrorMessage          string
	SessionID             string
	SensitiveDataAccessed bool
	ComplianceFlags       []string
}

// NewAuditEntry builds an entry with a fresh UUID and current
// timestamp, redacting the query if it contains a sensitive pattern.
func NewAuditEntry(secCtx SecurityContext, resource, query string) AuditEntry {
	redacted := query
	sensitive := ContainsSensitive(query)
	if sensitive {
		redacted = "[REDACTED]"
	}
	return AuditEntry{
		ID:                    uuid.NewString(),
		Timestamp:             time.Now(),
		UserID:                secCtx.UserID,
		UserRole:              secCtx.UserRole,
		Action:                ActionSearch,
		Resource:              resource,
		Query:                 redacted,
		SessionID:             secCtx.SessionID,
		SensitiveDataAccessed: sensitive,
	}
}

// Sink persists audit entries. Durable storage is an explicit
// non-goal; the default sink keeps a bounded in-memory ring buffer,
// with this interface as the documented hook for a durable
// implementation (e.g. a database-backed sink).
type Sink interface {
	Record(ctx context.Context, entry AuditEntry) error
	Get(ctx context.Context, id string) (AuditEntry, bool, error)
}

// RingBufferSink is the default in-memory audit Sink, bounded to cap entries.
type RingBufferSink struct {
	mu      sync.Mutex
	entries []AuditEntry
	byID    map[string]int
	cap     int
}

// NewRingBufferSink constructs a RingBufferSink holding at most cap entries.
func NewRingBufferSink(capacity int) *RingBufferSink {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RingBufferSink{
		entries: make([]AuditEntry, 0, capacity),
		byID:    make(map[string]int),
		cap:     capacity,
	}
}

// Record appends entry, evicting the oldest entry if at capacity.
func (s *RingBufferSink) Record(ctx context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.cap {
		evicted := s.entries[0]
		s.entries = s.entries[1:]
		delete(s.byID, evicted.ID)
		for id, idx := range s.byID {
			s.byID[id] = idx - 1
		}
	}
	s.entries = append(s.entries, entry)
	s.byID[entry.ID] = len(s.entries) - 1
	return nil
}

// Get retrieves a previously recorded entry by id.
func (s *RingBufferSink) Get(ctx context.Context, id string) (AuditEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return AuditEntry{}, false, nil
	}
	return s.entries[idx], true, nil
}
