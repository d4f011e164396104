package service

import (
	"sync"

	"moi-note/internal/domain"
)

// Subscription is a live view over the ordered entry list. C receives the current
// snapshot first and a new one after every change; it is closed by Close.
type Subscription struct {
	C <-chan []domain.MoneyEntry

	feed *entryFeed
	id   int
	done chan struct{}
	once sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.remove(s.id)
		close(s.done)
	})
}

// Done is closed once the subscription has been released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

type entryFeed struct {
	mu   sync.Mutex
	subs map[int]chan []domain.MoneyEntry
	next int
}

func newEntryFeed() *entryFeed {
	return &entryFeed{subs: make(map[int]chan []domain.MoneyEntry)}
}

func (f *entryFeed) add(initial []domain.MoneyEntry) *Subscription {
	ch := make(chan []domain.MoneyEntry, 1)
	ch <- initial

	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	return &Subscription{C: ch, feed: f, id: id, done: make(chan struct{})}
}

func (f *entryFeed) remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

// publish replaces whatever snapshot a slow reader has not taken yet.
func (f *entryFeed) publish(snapshot []domain.MoneyEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}

func (f *entryFeed) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
