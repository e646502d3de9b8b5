package event

import (
	"sync"
	"testing"
)

func TestSubscribePublishDelivers(t *testing.T) {
	p := NewPublisher()
	var mu sync.Mutex
	var got []any

	sub := p.Subscribe(func(evt any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt)
	})
	defer sub.Close()

	p.Publish(ErrorEvent{})
	p.Publish(QueryEvent{})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
}

func TestCloseDeregisters(t *testing.T) {
	p := NewPublisher()
	var count int
	sub := p.Subscribe(func(evt any) { count++ })

	p.Publish(ErrorEvent{})
	sub.Close()
	p.Publish(ErrorEvent{})

	if count != 1 {
		t.Fatalf("count = %d, want 1 (handler should stop firing after Close)", count)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p := NewPublisher()
	sub := p.Subscribe(func(evt any) {})
	sub.Close()
	sub.Close() // must not panic
}

func TestPublishInvokesHandlersInRegistrationOrder(t *testing.T) {
	p := NewPublisher()
	var mu sync.Mutex
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		sub := p.Subscribe(func(evt any) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
		defer sub.Close()
	}

	p.Publish(ErrorEvent{})

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want 0,1,2,3,4 (registration order)", order)
		}
	}
}

func TestMultipleSubscribersAllReceive(t *testing.T) {
	p := NewPublisher()
	var mu sync.Mutex
	var a, b int

	subA := p.Subscribe(func(evt any) { mu.Lock(); a++; mu.Unlock() })
	subB := p.Subscribe(func(evt any) { mu.Lock(); b++; mu.Unlock() })
	defer subA.Close()
	defer subB.Close()

	p.Publish(ErrorEvent{})

	mu.Lock()
	defer mu.Unlock()
	if a != 1 || b != 1 {
		t.Errorf("a=%d b=%d, want both 1", a, b)
	}
}
