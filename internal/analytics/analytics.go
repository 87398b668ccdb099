// Package analytics is a fire-and-forget event sink.
package analytics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Event names emitted by the storage layer.
const (
	EventRelocationSkipped   = "relocation_skipped"
	EventRelocationDeferred  = "relocation_deferred"
	EventRelocationCompleted = "relocation_completed"
	EventDatabaseRelocated   = "database_relocated"
	EventDatabaseDiscarded   = "database_discarded"
	EventDocumentRelocated   = "document_relocated"
	EventDocumentFailed      = "document_relocation_failed"
	EventMigrationApplied    = "migration_applied"
	EventMigrationFailed     = "migration_failed"
	EventShareImported       = "share_imported"
	EventBackupCompleted     = "backup_completed"
	EventBackupFailed        = "backup_failed"
)

// Sink receives events. Implementations must not block and must not fail.
type Sink interface {
	Track(event string, props map[string]string)
}

// Nop discards every event.
type Nop struct{}

// Track implements Sink.
func (Nop) Track(string, map[string]string) {}

// PromSink counts events per name in a Prometheus counter vector.
// Properties are not turned into labels to keep cardinality fixed.
type PromSink struct {
	events *prometheus.CounterVec
}

// NewPromSink creates the counter and registers it with reg.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tripkeeper",
		Name:      "events_total",
		Help:      "Total number of analytics events by name.",
	}, []string{"event"})
	if err := reg.Register(events); err != nil {
		return nil, err
	}
	return &PromSink{events: events}, nil
}

// Track implements Sink.
func (s *PromSink) Track(event string, _ map[string]string) {
	s.events.WithLabelValues(event).Inc()
}

// Counter returns the counter for event, for inspection.
func (s *PromSink) Counter(event string) prometheus.Counter {
	return s.events.WithLabelValues(event)
}

// Recorder keeps events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

// Recorded is one tracked event.
type Recorded struct {
	Name  string
	Props map[string]string
}

// Track implements Sink.
func (r *Recorder) Track(event string, props map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{Name: event, Props: props})
}

// Count returns how many times event was tracked.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.Events {
		if e.Name == event {
			n++
		}
	}
	return n
}
