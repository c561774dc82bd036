package session

import (
	"time"

	"github.com/alanbriolat/video-summary/summary"
)

// An Event describes a change to a Request, carrying the request state after the change so that subscribers never
// need to read it back from the Session.
type Event interface {
	// The Request this event relates to.
	Request() *Request
	// State of the request as of this event.
	State() State
}

type requestEvent struct {
	request *Request
	state   State
}

func (e requestEvent) Request() *Request {
	return e.request
}

func (e requestEvent) State() State {
	return e.state
}

// RequestSubmitted is the first event of every Request, and supersedes any earlier Request.
type RequestSubmitted struct {
	requestEvent
}

// RequestDescribed reports the title of the video, if looked up.
type RequestDescribed struct {
	requestEvent
	Title string
}

// RequestRetrying reports that an attempt failed in a way that might succeed if tried again. The text is reset to
// the placeholder before the next attempt.
type RequestRetrying struct {
	requestEvent
	Attempt int
	Err     error
	Delay   time.Duration
}

// RequestUpdated is one update to the summary text.
type RequestUpdated struct {
	requestEvent
	Update   summary.Update
	OldState State
}

// NewState is the state after the update.
func (e RequestUpdated) NewState() State {
	return e.state
}

// RequestFinished is the last event of every Request. Err is nil if the summary completed.
type RequestFinished struct {
	requestEvent
	Err error
}
