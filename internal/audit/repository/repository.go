// Package repository stores audit entries in Postgres.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	LevelDebug    = "DEBUG"
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// ValidLevel reports whether level is one of the stored severities.
func ValidLevel(level string) bool {
	switch level {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical:
		return true
	}
	return false
}

// Entry is one audit_log row. It doubles as the wire format on the broker.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	Service    string          `json:"service"`
	EventType  string          `json:"eventType"`
	Level      string          `json:"level"`
	ActorID    *uuid.UUID      `json:"actorId,omitempty"`
	SubjectRef *string         `json:"subjectRef,omitempty"`
	Message    string          `json:"message"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Filter narrows List. Empty strings match everything.
type Filter struct {
	Service string
	Level   string
	Offset  int
	Limit   int
}

// LevelCount is the number of entries with one severity.
type LevelCount struct {
	Level string
	Count int
}

// Stats summarizes the audit log.
type Stats struct {
	Total        int
	ByLevel      []LevelCount
	ByService    map[string]int
	RecentErrors []Entry
}

// Repository provides database operations for the audit log.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, service, event_type, level, actor_id, subject_ref, message, detail, occurred_at`

// Write inserts an entry. Replayed broker deliveries are ignored by id.
func (r *Repository) Write(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Service, e.EventType, e.Level, e.ActorID, e.SubjectRef, e.Message, nullableJSON(e.Detail), e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first together with the filtered total.
func (r *Repository) List(ctx context.Context, f Filter) ([]Entry, int, error) {
	service := optional(f.Service)
	level := optional(f.Level)

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_log
		WHERE ($1::text IS NULL OR service = $1) AND ($2::text IS NULL OR level = $2)`,
		service, level,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	items, err := r.list(ctx, `SELECT `+entryColumns+`
		FROM audit_log
		WHERE ($1::text IS NULL OR service = $1) AND ($2::text IS NULL OR level = $2)
		ORDER BY occurred_at DESC
		OFFSET $3 LIMIT $4`, service, level, f.Offset, f.Limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Stats counts entries by level and service and returns the latest errors.
func (r *Repository) Stats(ctx context.Context, recentErrors int) (*Stats, error) {
	stats := &Stats{ByService: map[string]int{}}

	rows, err := r.pool.Query(ctx, `
		SELECT level, COUNT(*) FROM audit_log
		GROUP BY level ORDER BY COUNT(*) DESC, level`)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit levels: %w", err)
	}
	for rows.Next() {
		var lc LevelCount
		if err := rows.Scan(&lc.Level, &lc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan audit level count: %w", err)
		}
		stats.ByLevel = append(stats.ByLevel, lc)
		stats.Total += lc.Count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `SELECT service, COUNT(*) FROM audit_log GROUP BY service`)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit services: %w", err)
	}
	for rows.Next() {
		var (
			service string
			count   int
		)
		if err := rows.Scan(&service, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan audit service count: %w", err)
		}
		stats.ByService[service] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.RecentErrors, err = r.list(ctx, `SELECT `+entryColumns+`
		FROM audit_log
		WHERE level IN ('ERROR', 'CRITICAL')
		ORDER BY occurred_at DESC
		LIMIT $1`, recentErrors)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteBefore removes entries older than cutoff and returns how many went.
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_log WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	items := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e      Entry
		detail []byte
	)
	if err := row.Scan(&e.ID, &e.Service, &e.EventType, &e.Level, &e.ActorID, &e.SubjectRef, &e.Message, &detail, &e.OccurredAt); err != nil {
		return Entry{}, fmt.Errorf("failed to scan audit entry: %w", err)
	}
	if len(detail) > 0 {
		e.Detail = json.RawMessage(detail)
	}
	return e, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
