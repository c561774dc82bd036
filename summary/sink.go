package summary

// A Sink receives the updates of a single Fetch, in order. The accumulated summary is whatever results from applying
// each update to the text accumulated so far.
type Sink interface {
	// Replace discards the accumulated text in favour of text.
	Replace(text string)
	// Append adds text to the end of the accumulated text.
	Append(text string)
}

type UpdateKind int

const (
	KindReplace UpdateKind = iota
	KindAppend
)

func (k UpdateKind) String() string {
	switch k {
	case KindReplace:
		return "replace"
	case KindAppend:
		return "append"
	default:
		return "unknown"
	}
}

// An Update is one Sink call as a value.
type Update struct {
	Kind UpdateKind
	Text string
}

// Apply returns the text accumulated after this update, given the text accumulated before it.
func (u Update) Apply(prev string) string {
	if u.Kind == KindAppend {
		return prev + u.Text
	}
	return u.Text
}

// SinkFunc adapts a function receiving Update values to the Sink interface.
type SinkFunc func(Update)

func (f SinkFunc) Replace(text string) {
	f(Update{Kind: KindReplace, Text: text})
}

func (f SinkFunc) Append(text string) {
	f(Update{Kind: KindAppend, Text: text})
}

// terminalSink stops forwarding once a terminal update has been sent, so nothing can follow it.
type terminalSink struct {
	sink Sink
	done bool
}

func (s *terminalSink) Replace(text string) {
	if !s.done {
		s.sink.Replace(text)
	}
}

func (s *terminalSink) Append(text string) {
	if !s.done {
		s.sink.Append(text)
	}
}

func (s *terminalSink) terminate(text string) {
	s.Replace(text)
	s.done = true
}
