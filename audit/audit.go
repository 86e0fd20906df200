// Package audit records user actions to the audit log without blocking the caller.
package audit

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"litoralcitrus/db"
	"litoralcitrus/geo"
	"litoralcitrus/metrics"
	"litoralcitrus/models"
)

var ErrShutdownTimeout = errors.New("audit queue not drained before deadline")

// Event is one action to be recorded.
type Event struct {
	UserID       string
	UserEmail    string
	Action       models.AuditAction
	ResourceType string
	ResourceID   string
	Details      map[string]interface{}
	IP           string
	UserAgent    string
	At           time.Time
}

// Recorder accepts audit events. Record must return immediately.
type Recorder interface {
	Record(ev Event)
}

type Options struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
}

// Dispatcher writes events on a bounded worker pool. When the queue is full
// the event is dropped and logged; audit failures never reach the caller.
type Dispatcher struct {
	store   db.Store
	locator geo.Locator
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics

	queue  chan Event
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(store db.Store, locator geo.Locator, opts Options, log zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if locator == nil {
		locator = geo.Disabled{}
	}

	d := &Dispatcher{
		store:   store,
		locator: locator,
		opts:    opts,
		log:     log.With().Str("component", "audit").Logger(),
		metrics: m,
		queue:   make(chan Event, opts.QueueSize),
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Record(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	ev.Details = maps.Clone(ev.Details)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ev, "dispatcher closed")
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.drop(ev, "queue full")
	}
}

func (d *Dispatcher) drop(ev Event, reason string) {
	d.count("dropped")
	d.log.Warn().
		Str("action", string(ev.Action)).
		Str("resource_type", ev.ResourceType).
		Str("resource_id", ev.ResourceID).
		Str("user_id", ev.UserID).
		Msgf("audit event dropped: %s", reason)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.write(ev)
	}
}

// write runs detached from any request so a disconnecting client cannot cancel it.
func (d *Dispatcher) write(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.WriteTimeout)
	defer cancel()

	entry := &models.AuditLogEntry{
		UserID:       ev.UserID,
		UserEmail:    ev.UserEmail,
		Action:       ev.Action,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		Timestamp:    ev.At,
		Details:      ev.Details,
		IP:           ev.IP,
		UserAgent:    ev.UserAgent,
	}
	if entry.Details == nil {
		entry.Details = map[string]interface{}{}
	}
	if res := d.locator.Lookup(ctx, ev.IP); res != nil {
		entry.IP = res.IP
		entry.Location = res.Location
	}

	if err := d.store.AppendAudit(ctx, entry); err != nil {
		d.count("failed")
		d.log.Error().Err(err).
			Str("action", string(ev.Action)).
			Str("resource_id", ev.ResourceID).
			Msg("failed to write audit log")
		return
	}
	d.count("written")
	d.log.Debug().
		Str("audit_id", entry.ID).
		Str("action", string(ev.Action)).
		Str("resource_type", ev.ResourceType).
		Msg("audit log written")
}

func (d *Dispatcher) count(result string) {
	if d.metrics != nil {
		d.metrics.AuditEvents.WithLabelValues(result).Inc()
	}
}

// Shutdown stops accepting events and waits for queued ones to be written.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrShutdownTimeout
	}
}

// Nop discards every event; used when auditing is disabled.
type Nop struct{}

func (Nop) Record(Event) {}
