package main

import (
	"github.com/r3labs/diff/v3"
	"go.uber.org/zap"

	"github.com/alanbriolat/video-summary/internal/pubsub"
	"github.com/alanbriolat/video-summary/internal/session"
)

// hasFetch keeps the events of requests that fetch a summary; the others never change after submission.
func hasFetch(event session.Event) bool {
	status := event.State().Status
	return status != session.StatusEmpty && status != session.StatusUnresolved
}

// logChanges logs how each event changed the state of its request.
func logChanges(events pubsub.Receiver[session.Event], log *zap.SugaredLogger) {
	previous := make(map[session.RequestID]session.State)
	for event := range events.Receive() {
		id := event.Request().ID
		state := event.State()
		old, ok := previous[id]
		if e, isUpdate := event.(session.RequestUpdated); isUpdate {
			old, state, ok = e.OldState, e.NewState(), true
		}
		previous[id] = state
		if _, isFinished := event.(session.RequestFinished); isFinished {
			delete(previous, id)
		}
		log := log.With("request_id", id, "event", eventName(event))
		if !ok {
			log.Debugf("new state: %+v", state)
			continue
		}
		changes, err := diff.Diff(old, state)
		if err != nil {
			log.Errorf("failed to diff old and new request state: %v", err)
			continue
		}
		for _, change := range changes {
			log.Debugf("%v: %#v -> %#v", change.Path, change.From, change.To)
		}
	}
}

func eventName(event session.Event) string {
	switch event.(type) {
	case session.RequestSubmitted:
		return "submitted"
	case session.RequestDescribed:
		return "described"
	case session.RequestRetrying:
		return "retrying"
	case session.RequestUpdated:
		return "updated"
	case session.RequestFinished:
		return "finished"
	default:
		return "unknown"
	}
}
