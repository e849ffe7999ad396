package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPublishDeliversEveryGeneration(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(4)
	b := bus.Subscribe(4)
	defer a.Close()
	defer b.Close()

	for i := 1; i <= 3; i++ {
		gen, err := bus.Publish(context.Background())
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if gen != uint64(i) {
			t.Errorf("Publish() generation = %d, want %d", gen, i)
		}
	}

	for _, sub := range []*Subscription{a, b} {
		for want := uint64(1); want <= 3; want++ {
			if got := (<-sub.C).Generation; got != want {
				t.Errorf("received generation %d, want %d", got, want)
			}
		}
	}
	if bus.Generation() != 3 {
		t.Errorf("Generation() = %d, want 3", bus.Generation())
	}
}

func TestPublishBlocksUntilRead(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(0)
	defer sub.Close()

	published := make(chan struct{})
	go func() {
		_, _ = bus.Publish(context.Background())
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("Publish() returned before the subscriber read")
	case <-time.After(20 * time.Millisecond):
	}

	<-sub.C
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("Publish() did not return after the subscriber read")
	}
}

func TestPublishHonorsContext(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(0)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := bus.Publish(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Publish() error = %v, want deadline exceeded", err)
	}
}

func TestClosedSubscriptionDoesNotBlock(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(0)
	sub.Close()
	sub.Close()

	if bus.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", bus.Subscribers())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := bus.Publish(ctx); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
	select {
	case <-sub.Done():
	default:
		t.Error("Done() not closed after Close()")
	}
}
