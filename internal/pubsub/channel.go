// Package pubsub provides closable channels, and a publisher that fans each message out to any number of them.
package pubsub

import (
	"sync"
)

type Sender[T any] interface {
	Send(T) bool
}

type Receiver[T any] interface {
	Receive() <-chan T
}

type Closer interface {
	Close()
	// Closed returns a channel that is closed once Close has been called.
	Closed() <-chan struct{}
}

type SenderCloser[T any] interface {
	Sender[T]
	Closer
}

type ReceiverCloser[T any] interface {
	Receiver[T]
	Closer
}

type Channel[T any] interface {
	Sender[T]
	Receiver[T]
	Closer
}

// channel is a `chan` that may be closed by either side, and Send after Close fails instead of panicking.
type channel[T any] struct {
	mu      sync.RWMutex
	ch      chan T
	done    chan struct{}
	closed  bool
	sending sync.WaitGroup
}

// NewChannel creates a Channel with the given buffer size.
func NewChannel[T any](bufSize int) Channel[T] {
	return &channel[T]{
		ch:   make(chan T, bufSize),
		done: make(chan struct{}),
	}
}

func (c *channel[T]) Receive() <-chan T {
	return c.ch
}

// Send blocks until msg is accepted, returning true, or until the channel is closed, returning false.
func (c *channel[T]) Send(msg T) bool {
	// Register as a sender while holding the read lock, so Close can wait for every sender it didn't prevent
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	c.sending.Add(1)
	defer c.sending.Done()
	c.mu.RUnlock()

	select {
	case c.ch <- msg:
		return true
	case <-c.done:
		return false
	}
}

// Close idempotently closes the channel. Pending and future Send calls fail, and receivers see the channel close
// once any buffered messages are drained.
func (c *channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.sending.Wait()
	close(c.ch)
}

func (c *channel[T]) Closed() <-chan struct{} {
	return c.done
}
