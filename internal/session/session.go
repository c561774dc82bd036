// Package session connects a user's input to summary fetches: each submission is resolved and fetched, and the
// newest submission always owns what is displayed.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/video-summary"
	"github.com/alanbriolat/video-summary/internal/pubsub"
	"github.com/alanbriolat/video-summary/summary"
)

// Fetcher is implemented by *summary.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, id video_summary.VideoID, sink summary.Sink) error
}

// A Describer looks up a human-readable description of a video, such as its title.
type Describer interface {
	Describe(ctx context.Context, id video_summary.VideoID) (string, error)
}

const eventBufSize = 16

type Config struct {
	Fetcher Fetcher
	// Optional
	Describer Describer
	// How many times a transient failure is retried.
	Retries int
	// Delay before the first retry, growing exponentially for later retries.
	RetryBackoff time.Duration
}

var DefaultConfig = Config{
	RetryBackoff: 500 * time.Millisecond,
}

type Session struct {
	config    Config
	ctx       context.Context
	ctxCancel context.CancelFunc
	log       *zap.SugaredLogger

	// Held while changing a request and sending the resulting event, so events are in the same order as changes
	emitMu sync.Mutex
	events pubsub.Publisher[Event]

	mu         sync.Mutex
	generation uint64
	current    *Request
	closed     bool
	running    sync.WaitGroup
}

func New(ctx context.Context, config Config) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		config:    config,
		ctx:       ctx,
		ctxCancel: cancel,
		log:       video_summary.Logger(ctx).Named("session").Sugar(),
		events:    pubsub.NewPublisherBufSize[Event](eventBufSize),
	}
}

// Subscribe returns a receiver of every event, in order. The receiver must keep receiving until it is closed, either
// by Close on the receiver or by Close on the session.
func (s *Session) Subscribe() (pubsub.ReceiverCloser[Event], error) {
	return s.events.SubscribeBufSize(eventBufSize)
}

// SubscribeFiltered is like Subscribe, but only receives the events for which keep returns true.
func (s *Session) SubscribeFiltered(keep func(Event) bool) (pubsub.ReceiverCloser[Event], error) {
	ch := pubsub.NewChannel[Event](eventBufSize)
	if err := s.events.AddSubscriber(pubsub.Filter[Event](ch, keep), true); err != nil {
		return nil, err
	}
	return ch, nil
}

// Submit starts a new request for raw, a video URL or identifier, superseding any earlier request.
func (s *Session) Submit(raw string) *Request {
	r := &Request{
		ID:      NewRequestID(),
		session: s,
		done:    make(chan struct{}),
	}
	r.ctx, r.cancel = context.WithCancel(s.ctx)
	r.state = State{Raw: raw, Attempt: 1}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		r.state.Status = StatusEmpty
	} else if res := video_summary.Resolve(trimmed); !res.Resolved() {
		r.state.Status = StatusUnresolved
		s.log.Debugf("could not resolve %q: %v", trimmed, video_summary.Explain(trimmed))
	} else {
		r.state.VideoID = res.ID
		r.state.Status = StatusLoading
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		r.state.Status = StatusClosed
		r.cancel()
		close(r.done)
		return r
	}
	s.generation++
	r.Generation = s.generation
	prev := s.current
	var superseded State
	if prev != nil && prev.state.Status.IsRunning() {
		prev.state.Status = StatusSuperseded
		superseded = prev.state
		prev.cancel()
	} else {
		prev = nil
	}
	s.current = r
	state := r.state
	if state.Status.IsRunning() {
		s.running.Add(1)
	}
	s.mu.Unlock()

	if prev != nil {
		s.log.Debugf("%v superseded by %v", prev, r)
		s.events.Send(RequestFinished{requestEvent{prev, superseded}, context.Canceled})
	}
	s.events.Send(RequestSubmitted{requestEvent{r, state}})
	if state.Status.IsRunning() {
		go r.run()
	} else {
		s.log.Debugf("not fetching %q: %s", raw, state.Status)
		s.events.Send(RequestFinished{requestEvent{r, state}, nil})
		r.cancel()
		close(r.done)
	}
	return r
}

// Current returns the newest request, or nil if nothing has been submitted.
func (s *Session) Current() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Text returns what should currently be displayed.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.state.Display()
}

// Close cancels any running request, waits for it to finish, then closes every subscriber.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.ctxCancel()
	s.running.Wait()
	s.events.Close()
}
