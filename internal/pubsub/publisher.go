package pubsub

import (
	"errors"
	"sync"
)

const (
	DefaultPublisherBufSize  = 1
	DefaultSubscriberBufSize = 1
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
)

// A Publisher sends each message to every subscriber, in the order the messages were sent. A slow subscriber holds
// up every other subscriber, so subscribers must keep receiving until they are closed.
type Publisher[T any] interface {
	SenderCloser[T]
	// AddSubscriber adds s to the subscribers. If closeWith, s is closed when the publisher is closed.
	AddSubscriber(s SenderCloser[T], closeWith bool) error
	// Subscribe adds a new Channel as a subscriber, which the receiver should Close when it is no longer interested.
	Subscribe() (ReceiverCloser[T], error)
	SubscribeBufSize(int) (ReceiverCloser[T], error)
}

type publisher[T any] struct {
	mu      sync.Mutex
	ch      Channel[T]
	running sync.WaitGroup
	closed  bool

	subMu       sync.Mutex
	subscribers map[SenderCloser[T]]bool
}

func NewPublisher[T any]() Publisher[T] {
	return NewPublisherBufSize[T](DefaultPublisherBufSize)
}

func NewPublisherBufSize[T any](bufSize int) Publisher[T] {
	p := &publisher[T]{
		ch:          NewChannel[T](bufSize),
		subscribers: make(map[SenderCloser[T]]bool),
	}
	p.running.Add(1)
	go p.run()
	return p
}

func (p *publisher[T]) run() {
	defer p.running.Done()
	for msg := range p.ch.Receive() {
		for _, s := range p.snapshot() {
			if !s.Send(msg) {
				// Subscriber closed itself
				p.remove(s)
			}
		}
	}
}

// snapshot copies the subscribers, so the lock isn't held while sending.
func (p *publisher[T]) snapshot() []SenderCloser[T] {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	subscribers := make([]SenderCloser[T], 0, len(p.subscribers))
	for s := range p.subscribers {
		subscribers = append(subscribers, s)
	}
	return subscribers
}

func (p *publisher[T]) remove(s SenderCloser[T]) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	delete(p.subscribers, s)
}

// Send queues msg for every subscriber, returning false if the publisher is closed.
func (p *publisher[T]) Send(msg T) bool {
	return p.ch.Send(msg)
}

func (p *publisher[T]) Subscribe() (ReceiverCloser[T], error) {
	return p.SubscribeBufSize(DefaultSubscriberBufSize)
}

func (p *publisher[T]) SubscribeBufSize(bufSize int) (ReceiverCloser[T], error) {
	s := NewChannel[T](bufSize)
	if err := p.AddSubscriber(s, true); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *publisher[T]) AddSubscriber(s SenderCloser[T], closeWith bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribers[s] = closeWith
	return nil
}

// Close idempotently shuts down the publisher. Messages already sent are delivered first, then subscribers added
// with closeWith are closed.
func (p *publisher[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.ch.Close()
	p.running.Wait()

	p.subMu.Lock()
	subscribers := p.subscribers
	p.subscribers = make(map[SenderCloser[T]]bool)
	p.subMu.Unlock()
	for s, closeWith := range subscribers {
		if closeWith {
			s.Close()
		}
	}
}

func (p *publisher[T]) Closed() <-chan struct{} {
	return p.ch.Closed()
}
