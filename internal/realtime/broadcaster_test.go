package realtime

import "testing"

func TestBroadcaster_PublishDeliversToMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster[string](1)
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish("players")
	if got := <-ch1; got != "players" {
		t.Errorf("ch1 got %q, want players", got)
	}
	if got := <-ch2; got != "players" {
		t.Errorf("ch2 got %q, want players", got)
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[int](1)
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel should be closed after Unsubscribe")
	}
	// second unsubscribe is a no-op
	b.Unsubscribe(ch)
}

func TestBroadcaster_PublishClosesLaggingSubscriber(t *testing.T) {
	b := NewBroadcaster[int](1)
	slow := b.Subscribe()
	fast := b.Subscribe()
	defer b.Unsubscribe(fast)

	if evicted := b.Publish(1); evicted != 0 {
		t.Errorf("evicted %d, want 0", evicted)
	}
	<-fast
	if evicted := b.Publish(2); evicted != 1 {
		t.Errorf("evicted %d, want 1", evicted)
	}
	if got := <-slow; got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if _, open := <-slow; open {
		t.Error("lagging subscriber should be closed instead of skipping a value")
	}
	if got := <-fast; got != 2 {
		t.Errorf("fast subscriber got %d, want 2", got)
	}
	if n := b.Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
	// unsubscribing an evicted channel is a no-op
	b.Unsubscribe(slow)
}

func TestTopics_IsolatesKeys(t *testing.T) {
	tp := NewTopics[string](4)
	a := tp.Subscribe("room-a")
	b := tp.Subscribe("room-b")

	tp.Publish("room-a", "hello")
	if got := <-a; got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
	select {
	case v := <-b:
		t.Errorf("room-b received %q", v)
	default:
	}

	tp.Close("room-a")
	if _, open := <-a; open {
		t.Error("room-a subscriber should be closed")
	}
	if n := tp.Publish("room-a", "late"); n != 0 {
		t.Errorf("publish to closed topic dropped %d", n)
	}

	tp.Unsubscribe("room-b", b)
	if _, open := <-b; open {
		t.Error("room-b subscriber should be closed")
	}
}
