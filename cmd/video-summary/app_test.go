package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alanbriolat/video-summary"
	"github.com/alanbriolat/video-summary/internal/config"
	"github.com/alanbriolat/video-summary/internal/session"
	"github.com/alanbriolat/video-summary/summary"
)

func newServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/summary/dQw4w9WgXcQ":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = fmt.Fprint(w, "Hello, ")
			w.(http.Flusher).Flush()
			_, _ = fmt.Fprint(w, "world")
		case "/summary/overloaded1":
			http.Error(w, "model overloaded", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

type result struct {
	stdout string
	stderr string
	err    error
}

func runApp(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{config.KeyBaseURL, config.KeyTimeout, config.KeyStream, config.KeyChunkSize, config.KeyStrictUTF8, config.KeyRetries, config.KeyTitle, config.KeyLogLevel} {
		t.Setenv(config.EnvPrefix+"_"+key, "")
		require_.NoError(t, os.Unsetenv(config.EnvPrefix+"_"+key))
	}
	var stdout, stderr bytes.Buffer
	app := newApp(strings.NewReader(stdin), &stdout, &stderr, zap.NewAtomicLevel())
	err := app.RunContext(context.Background(), append([]string{"video-summary"}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	if exitErr, ok := err.(cli.ExitCoder); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func TestApp_Stream(t *testing.T) {
	assert := assert_.New(t)
	server := newServer(t)
	res := runApp(t, "", "--base-url", server.URL, "https://youtu.be/dQw4w9WgXcQ")
	assert.NoError(res.err)
	assert.Equal("Hello, world\n", res.stdout)
	assert.Contains(res.stderr, session.TextPlaceholder)
}

func TestApp_NoStream(t *testing.T) {
	assert := assert_.New(t)
	server := newServer(t)
	res := runApp(t, "", "--base-url", server.URL, "--no-stream", "--chunk-size", "2", "dQw4w9WgXcQ")
	assert.NoError(res.err)
	assert.Equal("Hello, world\n", res.stdout)
}

func TestApp_Wait(t *testing.T) {
	assert := assert_.New(t)
	server := newServer(t)
	res := runApp(t, "", "--base-url", server.URL, "--wait", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=30")
	assert.NoError(res.err)
	assert.Equal("Hello, world\n", res.stdout)
}

func TestApp_Failures(t *testing.T) {
	assert := assert_.New(t)
	server := newServer(t)
	res := runApp(t, "", "--base-url", server.URL, "dQw4w9WgXcQ", "https://example.com/foo", "overloaded1")
	assert.Equal(1, exitCode(res.err))
	assert.EqualError(res.err, "2 of 3 summaries failed")
	assert.Equal("Hello, world\nSomething went wrong: server responded with 500 Internal Server Error: model overloaded\n", res.stdout)
	assert.Contains(res.stderr, session.TextUnresolved)
}

func TestApp_Interactive(t *testing.T) {
	assert := assert_.New(t)
	server := newServer(t)
	res := runApp(t, "\nnot a video\n  dQw4w9WgXcQ  \n", "--base-url", server.URL)
	assert.NoError(res.err)
	assert.Equal("Hello, world\n", res.stdout)
	assert.Contains(res.stderr, session.TextEmptyInput)
	assert.Contains(res.stderr, session.TextUnresolved)
}

func TestApp_InvalidConfig(t *testing.T) {
	res := runApp(t, "", "--base-url", "ftp://example.com", "dQw4w9WgXcQ")
	assert_.Equal(t, 2, exitCode(res.err))
	assert_.Empty(t, res.stdout)
}

func TestRenderer_Replace(t *testing.T) {
	assert := assert_.New(t)
	var stdout, stderr bytes.Buffer
	s := session.New(context.Background(), session.Config{Fetcher: fetcherFunc(func(ctx context.Context, id video_summary.VideoID, sink summary.Sink) error {
		sink.Append("partial")
		sink.Replace("Something went wrong: connection reset")
		return nil
	})})
	events, err := s.Subscribe()
	require_.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		newRenderer(&stdout, &stderr, false).run(events)
	}()
	<-s.Submit("dQw4w9WgXcQ").Done()
	s.Close()
	<-done
	assert.Equal("partial\nSomething went wrong: connection reset\n", stdout.String())
	assert.Equal(session.TextPlaceholder+"\n", stderr.String())
}

type fetcherFunc func(ctx context.Context, id video_summary.VideoID, sink summary.Sink) error

func (f fetcherFunc) Fetch(ctx context.Context, id video_summary.VideoID, sink summary.Sink) error {
	return f(ctx, id, sink)
}

func TestLogChanges(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := session.New(context.Background(), session.Config{Fetcher: fetcherFunc(func(ctx context.Context, id video_summary.VideoID, sink summary.Sink) error {
		sink.Append("text")
		return nil
	})})
	changes, err := s.SubscribeFiltered(hasFetch)
	require_.NoError(t, err)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logChanges(changes, zap.New(core).Sugar())
	}()
	<-s.Submit("").Done()
	<-s.Submit("dQw4w9WgXcQ").Done()
	s.Close()
	<-done

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert_.Contains(t, messages, `[status]: "loading" -> "streaming"`)
	assert_.Contains(t, messages, `[text]: "" -> "text"`)
	assert_.Contains(t, messages, `[status]: "streaming" -> "complete"`)
	for _, m := range messages {
		assert_.NotContains(t, m, session.StatusEmpty)
	}
}
