package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/video-summary"
	"github.com/alanbriolat/video-summary/internal/textdecode"
)

const (
	DefaultChunkSize = 4096

	// Limit on how much of an error response body is kept in StatusError.
	maxErrorBody = 512
)

// Doer is the subset of *http.Client needed by a Fetcher.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DecodeError is returned when the response body is not valid text in its charset.
type DecodeError struct {
	Charset string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s text: %v", e.Charset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// A Fetcher retrieves video summaries from a summary service. A Fetcher holds no per-request state, so one Fetcher
// may serve any number of concurrent Fetch calls.
type Fetcher struct {
	baseURL   string
	client    Doer
	stream    bool
	chunkSize int
	strict    bool
	timeout   time.Duration
	userAgent string
}

type Option func(*Fetcher)

// WithClient sets the HTTP client, http.DefaultClient otherwise.
func WithClient(client Doer) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithStreaming controls whether the response is delivered as it arrives (the default), or read in full and delivered
// as a single update.
func WithStreaming(stream bool) Option {
	return func(f *Fetcher) {
		f.stream = stream
	}
}

// WithChunkSize sets the maximum number of bytes read (and so decoded and delivered) at a time when streaming.
func WithChunkSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

// WithStrictDecoding makes invalid UTF-8 a failure, instead of replacing it with U+FFFD.
func WithStrictDecoding(strict bool) Option {
	return func(f *Fetcher) {
		f.strict = strict
	}
}

// WithTimeout limits how long each Fetch may take in total, including reading the whole response. Zero means no
// limit beyond whatever the client imposes.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// New creates a Fetcher for the summary service at baseURL, which summarises a video at {baseURL}/summary/{id}.
func New(baseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    http.DefaultClient,
		stream:    true,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SummaryURL returns the URL the summary for id is fetched from. The ID alphabet is URL-safe so is not escaped.
func (f *Fetcher) SummaryURL(id video_summary.VideoID) string {
	return f.baseURL + "/summary/" + string(id)
}

// Fetch retrieves the summary of a video, reporting it to sink as it arrives. The id is not validated.
//
// When streaming, each chunk of the response is decoded and delivered with Sink.Append, ending with an Append of
// whatever the decoder was still holding (often ""). Otherwise the whole response is delivered with one Sink.Replace.
// Any failure is delivered as a single Sink.Replace of Diagnostic(err), after which nothing else is delivered, and
// the failure is also returned. Fetch never retries.
//
// If ctx is cancelled, Fetch stops delivering updates without a terminal update, and returns an error wrapping
// context.Canceled; this is how a superseded fetch is abandoned.
func (f *Fetcher) Fetch(ctx context.Context, id video_summary.VideoID, sink Sink) error {
	log := video_summary.Logger(ctx).Named("summary").Sugar().With("video_id", id)
	parent := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	guard := &terminalSink{sink: sink}
	start := time.Now()
	stats, err := f.fetch(ctx, log, id, guard)
	log = log.With("bytes", stats.bytes, "updates", stats.updates, "elapsed", time.Since(start))
	switch {
	case err == nil:
		log.Debug("summary complete")
		return nil
	case parent.Err() != nil && errors.Is(parent.Err(), context.Canceled):
		log.Debug("summary abandoned")
		return fmt.Errorf("summary abandoned: %w", parent.Err())
	case f.timeout > 0 && errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		err = fmt.Errorf("timed out after %v: %w", f.timeout, err)
	}
	log.Infof("summary failed: %v", err)
	guard.terminate(Diagnostic(err))
	return err
}

type fetchStats struct {
	bytes   int
	updates int
}

func (f *Fetcher) fetch(ctx context.Context, log *zap.SugaredLogger, id video_summary.VideoID, sink *terminalSink) (stats fetchStats, err error) {
	url := f.SummaryURL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	log.Debugf("fetching %s", url)
	// Transport errors are returned as-is so their message reaches the sink verbatim
	resp, err := f.client.Do(req)
	if err != nil {
		return stats, err
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	defer resp.Body.Close()
	log.Debugf("response: %s (%s)", resp.Status, resp.Header.Get("Content-Type"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return stats, newStatusError(resp)
	}

	decoder, charset := textdecode.ForContentType(resp.Header.Get("Content-Type"), f.strict)
	body := &readerContext{ctx: ctx, r: resp.Body}
	if !f.stream || resp.Body == http.NoBody {
		return f.readAll(ctx, body, decoder, charset, sink)
	}
	return f.readStream(ctx, body, decoder, charset, sink)
}

// readStream delivers each chunk of the body as it is read.
func (f *Fetcher) readStream(ctx context.Context, body io.Reader, decoder *textdecode.Decoder, charset string, sink *terminalSink) (stats fetchStats, err error) {
	buf := make([]byte, f.chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			stats.bytes += n
			text, err := decoder.Decode(buf[:n])
			if err != nil {
				return stats, &DecodeError{Charset: charset, Err: err}
			}
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			sink.Append(text)
			stats.updates++
		}
		if readErr == io.EOF {
			break
		} else if readErr != nil {
			return stats, readErr
		}
	}
	text, err := decoder.Flush()
	if err != nil {
		return stats, &DecodeError{Charset: charset, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	sink.Append(text)
	stats.updates++
	sink.done = true
	return stats, nil
}

// readAll delivers the whole body as a single update.
func (f *Fetcher) readAll(ctx context.Context, body io.Reader, decoder *textdecode.Decoder, charset string, sink *terminalSink) (stats fetchStats, err error) {
	data, err := io.ReadAll(body)
	stats.bytes = len(data)
	if err != nil {
		return stats, err
	}
	head, err := decoder.Decode(data)
	if err != nil {
		return stats, &DecodeError{Charset: charset, Err: err}
	}
	tail, err := decoder.Flush()
	if err != nil {
		return stats, &DecodeError{Charset: charset, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	sink.Replace(head + tail)
	stats.updates++
	sink.done = true
	return stats, nil
}

func newStatusError(resp *http.Response) *StatusError {
	e := &StatusError{Code: resp.StatusCode, Status: resp.Status}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err == nil {
		e.Body = strings.TrimSpace(string(data))
	}
	return e
}

// A context-aware io.Reader wrapper, so cancellation is noticed before each read even if the underlying reader
// doesn't watch the context itself.
type readerContext struct {
	ctx context.Context
	r   io.Reader
}

func (r *readerContext) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
