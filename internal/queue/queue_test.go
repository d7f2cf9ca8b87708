package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q := NewInMemory(4)
	body, _ := json.Marshal(map[string]string{"hello": "world"})
	if err := q.Publish(ctx, Message{Type: "audit", Body: body}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case msg := <-msgs:
		if msg.Type != "audit" {
			t.Fatalf("type = %q, expected audit", msg.Type)
		}
		var decoded map[string]string
		if err := json.Unmarshal(msg.Body, &decoded); err != nil {
			t.Fatalf("body did not round-trip: %v", err)
		}
		if decoded["hello"] != "world" {
			t.Fatalf("body = %v", decoded)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for message")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, Message{Type: "a"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.Publish(cancelled, Message{Type: "b"}); err == nil {
		t.Fatalf("expected context error on full queue")
	}
}
