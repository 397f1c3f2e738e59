package broadcast

import (
	"testing"
	"time"
)

func recv[E any](t *testing.T, ch <-chan E) E {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed before expected event")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	panic("unreachable")
}

func expectClosed[E any](t *testing.T, ch <-chan E) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel, got event %v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for channel close")
	}
}

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()

	b.Publish(1)
	b.Publish(2)
	b.Publish(3)

	for want := 1; want <= 3; want++ {
		if got := recv(t, sub.Events()); got != want {
			t.Fatalf("expected event %d, got %d", want, got)
		}
	}

	b.Close()
	expectClosed(t, sub.Events())
}

func TestBroadcaster_LateSubscriberSkipsPastEvents(t *testing.T) {
	b := New[int]()
	b.Publish(1)

	sub := b.Subscribe()
	b.Publish(2)

	if got := recv(t, sub.Events()); got != 2 {
		t.Fatalf("expected only the post-subscribe event 2, got %d", got)
	}

	b.Close()
	expectClosed(t, sub.Events())
}

func TestBroadcaster_CloseDrainsPending(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()

	b.Publish(1)
	b.Publish(2)
	b.Publish(3)
	b.Close()

	for want := 1; want <= 3; want++ {
		if got := recv(t, sub.Events()); got != want {
			t.Fatalf("expected drained event %d, got %d", want, got)
		}
	}
	expectClosed(t, sub.Events())
}

func TestBroadcaster_StopDetachesOneSubscriber(t *testing.T) {
	b := New[int]()
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(1)
	if got := recv(t, s1.Events()); got != 1 {
		t.Fatalf("expected 1 on first subscriber, got %d", got)
	}
	if got := recv(t, s2.Events()); got != 1 {
		t.Fatalf("expected 1 on second subscriber, got %d", got)
	}

	s1.Stop()
	s1.Stop() // idempotent
	expectClosed(t, s1.Events())

	if n := b.Active(); n != 1 {
		t.Fatalf("expected 1 active subscriber after stop, got %d", n)
	}

	b.Publish(2)
	if got := recv(t, s2.Events()); got != 2 {
		t.Fatalf("expected surviving subscriber to get 2, got %d", got)
	}

	b.Close()
	expectClosed(t, s2.Events())
}

func TestBroadcaster_PublishAfterCloseIsNoop(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()

	b.Close()
	b.Close() // idempotent
	b.Publish(1)

	expectClosed(t, sub.Events())
}

func TestBroadcaster_SubscribeAfterClose(t *testing.T) {
	b := New[int]()
	b.Close()

	sub := b.Subscribe()
	expectClosed(t, sub.Events())
	sub.Stop() // safe on a never-registered subscription
}

func TestBroadcaster_SlowConsumerDoesNotBlockPublish(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe()

	const n = 1000
	for i := 0; i < n; i++ {
		b.Publish(i)
	}
	b.Close()

	for i := 0; i < n; i++ {
		if got := recv(t, sub.Events()); got != i {
			t.Fatalf("expected event %d, got %d", i, got)
		}
	}
	expectClosed(t, sub.Events())
}

func TestBroadcaster_Listen(t *testing.T) {
	b := New[int]()
	got := make(chan int, 8)

	cancel := b.Listen(func(v int) { got <- v })
	b.Publish(1)
	if v := recv(t, got); v != 1 {
		t.Fatalf("expected callback with 1, got %d", v)
	}

	cancel()
	b.Publish(2)
	select {
	case v := <-got:
		t.Fatalf("expected no callback after cancel, got %d", v)
	case <-time.After(50 * time.Millisecond):
	}
	b.Close()
}

func TestBroadcaster_ListenWithQueueDefersCallbacks(t *testing.T) {
	b := New[int]()
	queue := NewQueue()
	var got []int

	cancel := b.ListenWith(queue, func(v int) { got = append(got, v) })
	defer cancel()

	b.Publish(1)
	b.Publish(2)

	// Delivery is asynchronous; flush until both callbacks ran.
	flushed := 0
	deadline := time.Now().Add(2 * time.Second)
	for flushed < 2 && time.Now().Before(deadline) {
		flushed += queue.Flush()
		time.Sleep(time.Millisecond)
	}
	if flushed != 2 {
		t.Fatalf("expected 2 flushed callbacks, got %d", flushed)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected callback order: %v", got)
	}
	b.Close()
}
