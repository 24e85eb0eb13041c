package passer

import "sync"

// Passer is the single exit point for structural updates.
type Passer interface {
	Send(m Message)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Send(Message) {}

// Queue collects messages in memory until drained.
type Queue struct {
	mu       sync.Mutex
	messages []Message
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Send(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, m)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Drain returns the queued messages in send order and empties the queue.
func (q *Queue) Drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.messages
	q.messages = nil
	return out
}

// Multi fans every message out to several passers.
type Multi []Passer

func (m Multi) Send(msg Message) {
	for _, p := range m {
		p.Send(msg)
	}
}
