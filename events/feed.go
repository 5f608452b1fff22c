package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

type Callback[T any] func(data T)

type subscription[T any] struct {
	s event.Subscription
	c chan T
	w *sync.WaitGroup
}

// FeedOf wraps go-ethereum/event.FeedOf so that subscribers register a
// callback under an id instead of managing channels.
type FeedOf[T any] struct {
	feed event.FeedOf[T]

	mu            sync.Mutex
	subscriptions map[string]*subscription[T]
}

// Send delivers data to all subscribers, blocking until every callback
// goroutine has received it.
func (e *FeedOf[T]) Send(data T) (sent int) {
	return e.feed.Send(data)
}

// Subscribe registers callback under id, replacing any previous
// subscription with the same id.
func (e *FeedOf[T]) Subscribe(id string, callback Callback[T]) {
	e.Unsubscribe(id)

	sub := &subscription[T]{c: make(chan T), w: &sync.WaitGroup{}}
	sub.s = e.feed.Subscribe(sub.c)
	sub.w.Add(1)
	go func() {
		defer sub.w.Done()
		for {
			select {
			case t := <-sub.c:
				callback(t)
			case <-sub.s.Err():
				return
			}
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subscriptions == nil {
		e.subscriptions = make(map[string]*subscription[T])
	}
	e.subscriptions[id] = sub
}

// Unsubscribe removes the subscription of id. The returned WaitGroup is done
// once the callback goroutine has exited.
func (e *FeedOf[T]) Unsubscribe(id string) *sync.WaitGroup {
	e.mu.Lock()
	sub, ok := e.subscriptions[id]
	if ok {
		delete(e.subscriptions, id)
	}
	e.mu.Unlock()

	if ok {
		sub.s.Unsubscribe()
		return sub.w
	}
	return &sync.WaitGroup{}
}
