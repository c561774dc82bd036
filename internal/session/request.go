package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alanbriolat/video-summary"
	"github.com/alanbriolat/video-summary/summary"
)

const (
	TextEmptyInput  = "Please set url or id"
	TextUnresolved  = "Unrecognised video URL or id"
	TextPlaceholder = "loading.."
)

type RequestID string

func NewRequestID() RequestID {
	return RequestID(uuid.New().String())
}

type Status string

const (
	StatusEmpty      Status = "empty"
	StatusUnresolved Status = "unresolved"
	StatusLoading    Status = "loading"
	StatusStreaming  Status = "streaming"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusSuperseded Status = "superseded"
	StatusClosed     Status = "closed"
)

// IsRunning returns true if a fetch may still be updating the request.
func (s Status) IsRunning() bool {
	return s == StatusLoading || s == StatusStreaming
}

// State is a snapshot of a Request.
type State struct {
	Raw     string                `diff:"raw"`
	VideoID video_summary.VideoID `diff:"video_id"`
	Status  Status                `diff:"status"`
	Title   string                `diff:"title"`
	// Text accumulated from the updates of the current attempt.
	Text    string `diff:"text"`
	Updates int    `diff:"updates"`
	Attempt int    `diff:"attempt"`
	Error   string `diff:"error"`
}

// Display returns the text that should be shown for the request.
func (s State) Display() string {
	switch {
	case s.Status == StatusEmpty:
		return TextEmptyInput
	case s.Status == StatusUnresolved:
		return TextUnresolved
	case s.Updates == 0 && (s.Status.IsRunning() || s.Status == StatusSuperseded):
		return TextPlaceholder
	default:
		return s.Text
	}
}

// A Request is one submission to a Session.
type Request struct {
	ID RequestID
	// Generation is the value of the session generation ordering this request after every earlier submission.
	Generation uint64

	session *Session
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// Guarded by session.mu
	state State
}

func (r *Request) String() string {
	return fmt.Sprintf("Request{ID:\"%s\", Generation:%d, VideoID:\"%s\"}", r.ID, r.Generation, r.state.VideoID)
}

// State returns a snapshot of the request.
func (r *Request) State() State {
	r.session.mu.Lock()
	defer r.session.mu.Unlock()
	return r.state
}

// Done is closed once nothing more will happen to the request.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// sink returns a summary.Sink that applies updates to the request's text. Updates arriving after the request is
// superseded are dropped.
func (r *Request) sink() summary.Sink {
	return summary.SinkFunc(func(u summary.Update) {
		r.change(func(state *State) {
			state.Text = u.Apply(state.Text)
			state.Updates++
			if state.Status == StatusLoading {
				state.Status = StatusStreaming
			}
		}, func(old, cur State) Event {
			return RequestUpdated{requestEvent{r, cur}, u, old}
		})
	})
}

// change applies f to the request state and emits the event built from the old and new state. Nothing happens, and
// false is returned, if the request is no longer the newest or has already finished.
func (r *Request) change(f func(*State), event func(old, cur State) Event) bool {
	s := r.session
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if r.Generation != s.generation || !r.state.Status.IsRunning() {
		s.mu.Unlock()
		return false
	}
	old := r.state
	f(&r.state)
	cur := r.state
	s.mu.Unlock()

	s.events.Send(event(old, cur))
	return true
}
