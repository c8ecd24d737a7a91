// Package events carries change notifications from the services to the views
// that need to re-run their queries.
package events

import (
	"context"
	"sync"

	"github.com/cursolab/campus-backend/internal/model"
)

// Handler receives a published change.
type Handler func(model.Change)

// Bus fans out changes to subscribers.
type Bus interface {
	Publish(ctx context.Context, change model.Change)
	// Subscribe registers h and returns a function that removes it.
	Subscribe(h Handler) (unsubscribe func())
}

type subscriber struct {
	id int
	h  Handler
}

// LocalBus delivers changes synchronously, in subscription order, on the
// publisher's goroutine. When Publish returns every subscriber has run.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber
}

// NewLocalBus returns an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(_ context.Context, change model.Change) {
	b.dispatch(change)
}

func (b *LocalBus) dispatch(change model.Change) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.h(change)
	}
}

func (b *LocalBus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, h: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}
