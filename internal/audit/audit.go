// Package audit is the append-only audit sink. Recording never fails the
// caller: publish and persistence errors are logged and swallowed.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Vishal-43/smart-attendece-system/internal/queue"
)

// Entry describes one audited action.
type Entry struct {
	ID         string         `json:"id"`
	UserID     int64          `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Recorder accepts audit entries. Implementations must not propagate
// failures to the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// QueueRecorder publishes entries to the work queue; the worker persists
// them. Fire-and-forget by construction.
type QueueRecorder struct {
	q queue.Queue
}

// NewQueueRecorder wraps a queue as a Recorder.
func NewQueueRecorder(q queue.Queue) *QueueRecorder {
	return &QueueRecorder{q: q}
}

// Record publishes the entry. Errors are logged, never returned.
func (r *QueueRecorder) Record(ctx context.Context, e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		log.Printf("audit: marshal failed: %v", err)
		return
	}
	if err := r.q.Publish(ctx, queue.Message{Type: "audit", Body: raw}); err != nil {
		log.Printf("audit: publish failed: %v", err)
	}
}

// Nop discards entries; used in tests.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
