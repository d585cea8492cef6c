// Package sink fans audit entries out to the configured backends without
// ever holding up the caller.
package sink

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"vehicle_inspection_backend/internal/audit/repository"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultWriteTimeout = 3 * time.Second
	defaultBufferSize   = 1024
	defaultService      = "lifecycle"
)

// Writer is one audit backend.
type Writer interface {
	Write(ctx context.Context, e repository.Entry) error
}

// Sink queues entries in memory and writes them to every backend from Run.
type Sink struct {
	writers []Writer
	queue   chan repository.Entry
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time
	dropped atomic.Int64
}

// New creates a sink. A zero timeout or buffer size picks the defaults.
func New(log *logger.Logger, timeout time.Duration, bufferSize int, writers ...Writer) *Sink {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Sink{
		writers: writers,
		queue:   make(chan repository.Entry, bufferSize),
		timeout: timeout,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record queues e and returns immediately. When the buffer is full the entry
// is dropped and counted.
func (s *Sink) Record(ctx context.Context, e repository.Entry) {
	e = s.normalize(e)
	select {
	case s.queue <- e:
	default:
		s.dropped.Add(1)
		s.log.WithContext(ctx).Warn("audit entry dropped; buffer full", "eventType", e.EventType, "level", e.Level)
	}
}

// Dropped returns the number of entries lost to a full buffer.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Run writes queued entries until ctx is cancelled, then flushes what is
// still buffered.
func (s *Sink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return nil
		case e := <-s.queue:
			s.write(e)
		}
	}
}

func (s *Sink) flush() {
	for {
		select {
		case e := <-s.queue:
			s.write(e)
		default:
			return
		}
	}
}

func (s *Sink) write(e repository.Entry) {
	for _, w := range s.writers {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := w.Write(ctx, e)
		cancel()
		if err != nil {
			s.log.SideEffectDropped("audit.write", err)
		}
	}
}

func (s *Sink) normalize(e repository.Entry) repository.Entry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	e.Level = strings.ToUpper(strings.TrimSpace(e.Level))
	if !repository.ValidLevel(e.Level) {
		e.Level = repository.LevelInfo
	}
	if strings.TrimSpace(e.Service) == "" {
		e.Service = defaultService
	}
	return e
}
