package main

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"

	"github.com/alanbriolat/video-summary/internal/pubsub"
	"github.com/alanbriolat/video-summary/internal/session"
	"github.com/alanbriolat/video-summary/summary"
)

// renderer shows the newest request: summary text on stdout, everything else on stderr.
type renderer struct {
	stdout io.Writer
	stderr io.Writer
	// Show a spinner until each summary is complete, instead of the text as it arrives
	wait bool

	current *session.Request
	// Whether stdout is part way through a line
	midLine bool
	spinner *progressbar.ProgressBar
}

func newRenderer(stdout, stderr io.Writer, wait bool) *renderer {
	return &renderer{stdout: stdout, stderr: stderr, wait: wait}
}

func (r *renderer) run(events pubsub.Receiver[session.Event]) {
	for event := range events.Receive() {
		r.handle(event)
	}
	r.stopSpinner()
	r.endLine()
}

func (r *renderer) handle(event session.Event) {
	if _, ok := event.(session.RequestSubmitted); ok {
		r.stopSpinner()
		r.endLine()
		r.current = event.Request()
	} else if event.Request() != r.current {
		return
	}

	state := event.State()
	switch e := event.(type) {
	case session.RequestSubmitted:
		if !state.Status.IsRunning() {
			fmt.Fprintln(r.stderr, state.Display())
		} else if r.wait {
			r.startSpinner()
		} else {
			fmt.Fprintln(r.stderr, session.TextPlaceholder)
		}
	case session.RequestDescribed:
		if r.spinner != nil {
			r.spinner.Describe(e.Title)
		} else {
			r.endLine()
			fmt.Fprintf(r.stderr, "# %s\n", e.Title)
		}
	case session.RequestRetrying:
		r.endLine()
		if r.spinner != nil {
			_ = r.spinner.Set(0)
		}
		fmt.Fprintf(r.stderr, "retrying in %v (attempt %d): %v\n", e.Delay, e.Attempt, e.Err)
	case session.RequestUpdated:
		if r.spinner != nil {
			_ = r.spinner.Set(utf8.RuneCountInString(state.Text))
			return
		}
		if e.Update.Kind == summary.KindReplace {
			r.endLine()
		}
		r.write(e.Update.Text)
	case session.RequestFinished:
		if r.spinner != nil {
			r.stopSpinner()
			if state.Status != session.StatusSuperseded {
				r.write(state.Display())
			}
		}
		r.endLine()
	}
}

func (r *renderer) write(text string) {
	if text == "" {
		return
	}
	_, _ = io.WriteString(r.stdout, text)
	r.midLine = text[len(text)-1] != '\n'
}

// endLine makes sure whatever is written to stdout next starts on a new line.
func (r *renderer) endLine() {
	if r.midLine {
		_, _ = io.WriteString(r.stdout, "\n")
		r.midLine = false
	}
}

func (r *renderer) startSpinner() {
	r.spinner = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.stderr),
		progressbar.OptionSetDescription(session.TextPlaceholder),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *renderer) stopSpinner() {
	if r.spinner != nil {
		_ = r.spinner.Finish()
		r.spinner = nil
	}
}
