package eventing

import (
	"context"
	"errors"
	"testing"
)

type sampleEvent struct {
	Name string
}

func TestInMemoryBus_PublishDelivers(t *testing.T) {
	bus := NewInMemoryBus()
	var got []string
	bus.Subscribe(EventTypeOf[sampleEvent](), func(_ context.Context, event any) error {
		evt, ok := event.(sampleEvent)
		if !ok {
			return ErrInvalidEventType
		}
		got = append(got, evt.Name)
		return nil
	})

	if err := bus.Publish(context.Background(), sampleEvent{Name: "first"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.Publish(context.Background(), sampleEvent{Name: "second"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestInMemoryBus_PublishNil(t *testing.T) {
	bus := NewInMemoryBus()
	if err := bus.Publish(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent, got %v", err)
	}
}

func TestInMemoryBus_NoHandlersIsFine(t *testing.T) {
	bus := NewInMemoryBus()
	if err := bus.Publish(context.Background(), sampleEvent{}); err != nil {
		t.Fatalf("publish without handlers: %v", err)
	}
}

func TestEventType_PointerAndValueAgree(t *testing.T) {
	if EventType(sampleEvent{}) != EventType(&sampleEvent{}) {
		t.Fatalf("pointer and value types differ")
	}
	if EventType(sampleEvent{}) != EventTypeOf[sampleEvent]() {
		t.Fatalf("EventTypeOf mismatch")
	}
}
