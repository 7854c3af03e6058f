// Package realtime fans order-change signals out to subscribed views. A
// signal is a cue to re-fetch, never a payload: delivery is at-least-once
// and unordered, and a pending undelivered cue absorbs later duplicates.
package realtime

import (
	"log/slog"
	"sync"
)

// Change identifies what mutated, just precisely enough to scope fan-out.
type Change struct {
	Collection string
	OwnerID    string
}

type subscriber struct {
	all     bool
	ownerID string
	ch      chan struct{}
}

type Bridge struct {
	log  *slog.Logger
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

func NewBridge(log *slog.Logger) *Bridge {
	return &Bridge{log: log, subs: make(map[int]*subscriber)}
}

// SubscribeAll registers an unscoped subscriber (operator view). The
// returned cancel func tears the subscription down and closes the channel.
func (b *Bridge) SubscribeAll() (<-chan struct{}, func()) {
	return b.subscribe(&subscriber{all: true, ch: make(chan struct{}, 1)})
}

// SubscribeOwner registers a subscriber that is only cued for changes to
// orders owned by ownerID (customer view).
func (b *Bridge) SubscribeOwner(ownerID string) (<-chan struct{}, func()) {
	return b.subscribe(&subscriber{ownerID: ownerID, ch: make(chan struct{}, 1)})
}

func (b *Bridge) subscribe(sub *subscriber) (<-chan struct{}, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Notify cues every subscriber whose scope matches the change. The send
// never blocks: a subscriber that already holds an undelivered cue simply
// keeps it, which coalesces bursts without losing the at-least-once
// guarantee.
func (b *Bridge) Notify(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if !sub.all && (c.OwnerID == "" || c.OwnerID != sub.ownerID) {
			continue
		}
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}
