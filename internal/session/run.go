package session

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/alanbriolat/video-summary"
	"github.com/alanbriolat/video-summary/summary"
)

// Upper bound on the delay between retries.
const maxRetryInterval = 30 * time.Second

func (r *Request) run() {
	defer r.session.running.Done()
	defer close(r.done)
	defer r.cancel()

	logger := video_summary.Logger(r.ctx).With(zap.String("request_id", string(r.ID)))
	ctx := video_summary.WithLogger(r.ctx, logger)
	log := logger.Named("session").Sugar()
	id := r.state.VideoID

	if d := r.session.config.Describer; d != nil {
		if title, err := d.Describe(ctx, id); err != nil {
			log.Infof("failed to describe video %s: %v", id, err)
		} else {
			r.change(func(state *State) {
				state.Title = title
			}, func(old, cur State) Event {
				return RequestDescribed{requestEvent{r, cur}, title}
			})
		}
	}

	err := r.fetch(ctx, log, id)
	r.change(func(state *State) {
		switch {
		case err == nil:
			state.Status = StatusComplete
		case ctx.Err() != nil && errors.Is(err, context.Canceled):
			state.Status = StatusClosed
		default:
			state.Status = StatusFailed
			state.Error = err.Error()
		}
	}, func(old, cur State) Event {
		log.Debugf("request finished: %s", cur.Status)
		return RequestFinished{requestEvent{r, cur}, err}
	})
}

// fetch runs the fetcher, retrying transient failures as configured.
func (r *Request) fetch(ctx context.Context, log *zap.SugaredLogger, id video_summary.VideoID) error {
	config := r.session.config
	attempt := 1
	operation := func() error {
		err := config.Fetcher.Fetch(ctx, id, r.sink())
		if err != nil && (ctx.Err() != nil || !IsTransient(err)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		attempt++
		log.Infof("attempt %d failed, retrying in %v: %v", attempt-1, delay, err)
		r.change(func(state *State) {
			state.Status = StatusLoading
			state.Text = ""
			state.Updates = 0
			state.Attempt = attempt
		}, func(old, cur State) Event {
			return RequestRetrying{requestEvent{r, cur}, attempt, err, delay}
		})
	}
	return backoff.RetryNotify(operation, newBackOff(ctx, config), notify)
}

func newBackOff(ctx context.Context, config Config) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.RetryBackoff
	b.MaxInterval = maxRetryInterval
	// Bounded by the number of retries instead
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(config.Retries)), ctx)
}

// IsTransient returns true if err is a fetch failure that might not happen again: timeouts, refused or reset
// connections, temporary DNS failures, and 5xx or 429 responses. Unknown hosts and certificate errors are permanent.
func IsTransient(err error) bool {
	var statusErr *summary.StatusError
	var decodeErr *summary.DecodeError
	var dnsErr *net.DNSError
	var netErr net.Error
	var opErr *net.OpError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.As(err, &decodeErr):
		return false
	case errors.As(err, &statusErr):
		return statusErr.Temporary()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	case errors.As(err, &dnsErr):
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	case errors.As(err, &netErr) && netErr.Timeout():
		return true
	case errors.As(err, &opErr):
		return true
	default:
		return false
	}
}
