package pubsub

// Filter wraps s so that only messages for which keep returns true are sent on. Dropped messages still count as
// sent, so a publisher only gives up on a filtered subscriber once it is closed.
func Filter[T any](s SenderCloser[T], keep func(T) bool) SenderCloser[T] {
	return &filtered[T]{SenderCloser: s, keep: keep}
}

type filtered[T any] struct {
	SenderCloser[T]
	keep func(T) bool
}

func (f *filtered[T]) Send(msg T) bool {
	select {
	case <-f.Closed():
		return false
	default:
	}
	if f.keep != nil && !f.keep(msg) {
		return true
	}
	return f.SenderCloser.Send(msg)
}
