package summary

import (
	"fmt"
	"net/http"
)

// DiagnosticMarker starts every failure message delivered to a Sink.
const DiagnosticMarker = "Something went wrong"

// Diagnostic converts a failure into the human-readable text delivered as a terminal update.
func Diagnostic(err error) string {
	if err == nil || err.Error() == "" {
		return DiagnosticMarker
	}
	return DiagnosticMarker + ": " + err.Error()
}

// StatusError is returned when the summary service responds with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
	// Body is (the start of) the response body, which the service may use to explain the failure.
	Body string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	if e.Body != "" {
		return fmt.Sprintf("server responded with %s: %s", status, e.Body)
	}
	return fmt.Sprintf("server responded with %s", status)
}

// Temporary returns true for statuses where trying again later might succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
