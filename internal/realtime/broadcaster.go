package realtime

import "sync"

// Broadcaster fans values out to channel subscribers.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	buffer int
	subs   map[chan T]struct{}
}

// NewBroadcaster creates an empty broadcaster whose subscriber channels hold buffer values.
func NewBroadcaster[T any](buffer int) *Broadcaster[T] {
	return &Broadcaster[T]{
		buffer: buffer,
		subs:   make(map[chan T]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Broadcaster[T]) Subscribe() chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers v to all subscribers and returns how many were cut off.
// A subscriber whose buffer is full is removed and its channel closed, so it
// never sees a stream with gaps and must resubscribe.
func (b *Broadcaster[T]) Publish(v T) (evicted int) {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			delete(b.subs, ch)
			close(ch)
			evicted++
		}
	}
	b.mu.Unlock()
	return evicted
}

// Close unsubscribes everyone.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Len reports the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Topics keeps one broadcaster per key, created on first use.
type Topics[T any] struct {
	mu     sync.Mutex
	buffer int
	topics map[string]*Broadcaster[T]
}

// NewTopics creates an empty topic set.
func NewTopics[T any](buffer int) *Topics[T] {
	return &Topics[T]{buffer: buffer, topics: make(map[string]*Broadcaster[T])}
}

// Subscribe registers a subscriber on key.
func (t *Topics[T]) Subscribe(key string) chan T {
	t.mu.Lock()
	b, ok := t.topics[key]
	if !ok {
		b = NewBroadcaster[T](t.buffer)
		t.topics[key] = b
	}
	t.mu.Unlock()
	return b.Subscribe()
}

// Unsubscribe removes a subscriber from key and forgets empty topics.
func (t *Topics[T]) Unsubscribe(key string, ch chan T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.topics[key]
	if !ok {
		return
	}
	b.Unsubscribe(ch)
	if b.Len() == 0 {
		delete(t.topics, key)
	}
}

// Publish delivers v to the subscribers of key and returns how many were cut off.
func (t *Topics[T]) Publish(key string, v T) int {
	t.mu.Lock()
	b, ok := t.topics[key]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	return b.Publish(v)
}

// Close closes every subscriber of key.
func (t *Topics[T]) Close(key string) {
	t.mu.Lock()
	b, ok := t.topics[key]
	delete(t.topics, key)
	t.mu.Unlock()
	if ok {
		b.Close()
	}
}
