// Package events publishes marketplace domain events. Publishing is best
// effort: failures are logged by callers and never undo the mutation.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ListingCreated  = "listing.created"
	ListingUpdated  = "listing.updated"
	ListingDeleted  = "listing.deleted"
	MatchCreated    = "match.created"
	MatchUpdated    = "match.updated"
	ClaimCreated    = "claim.created"
	ClaimUpdated    = "claim.updated"
	DriveCreated    = "drive.created"
	DonationCreated = "donation.created"
	DonationUpdated = "donation.updated"
	MessageSent     = "message.sent"
)

// Event is the envelope written to the events topic. SubjectID is also the
// partition key so events for one entity stay ordered.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       string            `json:"type"`
	ActorID    uuid.UUID         `json:"actor_id"`
	SubjectID  uuid.UUID         `json:"subject_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// New stamps an event with an id and the current time.
func New(eventType string, actor, subject uuid.UUID, attrs map[string]string) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		ActorID:    actor,
		SubjectID:  subject,
		Attributes: attrs,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the logger. Used when no brokers are configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Info("event",
		zap.String("type", e.Type),
		zap.String("actor", e.ActorID.String()),
		zap.String("subject", e.SubjectID.String()),
		zap.Any("attributes", e.Attributes))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
