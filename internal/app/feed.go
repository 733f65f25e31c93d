package app

import (
	"sync"

	"quiz-backend/internal/domain"
)

const feedBuffer = 8

// ResultFeed fans scored submissions out to live subscribers of a quiz.
type ResultFeed struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.ScoreEvent]struct{}
}

func NewResultFeed() *ResultFeed {
	return &ResultFeed{subscribers: make(map[int64]map[chan domain.ScoreEvent]struct{})}
}

// Subscribe returns a channel of events for one quiz.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *ResultFeed) Subscribe(quizID int64) (<-chan domain.ScoreEvent, func()) {
	ch := make(chan domain.ScoreEvent, feedBuffer)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.ScoreEvent]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers an event without blocking. A subscriber whose buffer is
// full loses its oldest pending event.
func (f *ResultFeed) Publish(event domain.ScoreEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[event.QuizID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// Subscribers reports how many listeners a quiz has.
func (f *ResultFeed) Subscribers(quizID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[quizID])
}
