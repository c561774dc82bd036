package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/video-summary/async"
	"github.com/alanbriolat/video-summary/internal/config"
	"github.com/alanbriolat/video-summary/internal/session"
	"github.com/alanbriolat/video-summary/internal/videoinfo"
	"github.com/alanbriolat/video-summary/summary"
)

const userAgent = "video-summary/1.0"

func newApp(stdin io.Reader, stdout, stderr io.Writer, level zap.AtomicLevel) *cli.App {
	return &cli.App{
		Name:      config.AppName,
		Usage:     "summarise YouTube videos",
		ArgsUsage: "[URL or ID...]",
		Description: "Fetches a summary of each video given as an argument. With no arguments, reads one video URL or ID " +
			"per line from standard input, each line replacing the summary in progress.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "read configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "summary service at `URL`",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "give up on each summary after `DURATION`",
			},
			&cli.BoolFlag{
				Name:  "no-stream",
				Usage: "read the whole summary before showing it",
			},
			&cli.BoolFlag{
				Name:  "strict-utf8",
				Usage: "treat invalid UTF-8 as a failure",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "read up to `BYTES` at a time",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "retry transient failures `N` times",
			},
			&cli.BoolFlag{
				Name:  "title",
				Usage: "look up the video title first",
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "show a spinner, and print each summary once complete",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log at `LEVEL` (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log debug messages, including every state change",
			},
		},
		Action: func(c *cli.Context) error {
			return run(c, stdin, stdout, stderr, level)
		},
		Reader:          stdin,
		Writer:          stdout,
		ErrWriter:       stderr,
		HideHelpCommand: true,
		// Exit codes are handled by main
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// overrides returns the configuration given by flags that were set explicitly.
func overrides(c *cli.Context) map[string]any {
	o := make(map[string]any)
	if c.IsSet("base-url") {
		o[config.KeyBaseURL] = c.String("base-url")
	}
	if c.IsSet("timeout") {
		o[config.KeyTimeout] = c.Duration("timeout")
	}
	if c.IsSet("no-stream") {
		o[config.KeyStream] = !c.Bool("no-stream")
	}
	if c.IsSet("strict-utf8") {
		o[config.KeyStrictUTF8] = c.Bool("strict-utf8")
	}
	if c.IsSet("chunk-size") {
		o[config.KeyChunkSize] = c.Int("chunk-size")
	}
	if c.IsSet("retries") {
		o[config.KeyRetries] = c.Int("retries")
	}
	if c.IsSet("title") {
		o[config.KeyTitle] = c.Bool("title")
	}
	if c.IsSet("log-level") {
		o[config.KeyLogLevel] = c.String("log-level")
	}
	return o
}

func run(c *cli.Context, stdin io.Reader, stdout, stderr io.Writer, level zap.AtomicLevel) error {
	cfg, err := config.Load(c.String("config"), overrides(c))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	debug := c.Bool("debug")
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	} else if l, err := cfg.Level(); err == nil {
		level.SetLevel(l)
	}
	log := zap.S().Named("cli")
	if cfg.File != "" {
		log.Debugf("read config from %s", cfg.File)
	}
	log.Debugf("config: %+v", *cfg)

	sessionConfig := session.DefaultConfig
	sessionConfig.Fetcher = summary.New(cfg.BaseURL, append(cfg.FetcherOptions(), summary.WithUserAgent(userAgent))...)
	sessionConfig.Retries = cfg.Retries
	if cfg.Title {
		sessionConfig.Describer = videoinfo.New(nil)
	}
	s := session.New(c.Context, sessionConfig)
	defer s.Close()

	var running sync.WaitGroup
	events, err := s.Subscribe()
	if err != nil {
		return err
	}
	r := newRenderer(stdout, stderr, c.Bool("wait"))
	running.Add(1)
	go func() {
		defer running.Done()
		r.run(events)
	}()
	if debug {
		changes, err := s.SubscribeFiltered(hasFetch)
		if err != nil {
			return err
		}
		running.Add(1)
		go func() {
			defer running.Done()
			logChanges(changes, zap.S().Named("state"))
		}()
	}

	var submitted, failed int
	if c.NArg() > 0 {
		for _, ref := range c.Args().Slice() {
			submitted++
			if !succeeded(s.Submit(ref)) {
				failed++
			}
			if c.Context.Err() != nil {
				break
			}
		}
	} else {
		readInput(c.Context, stdin, s, log)
		if current := s.Current(); current != nil {
			submitted++
			if !succeeded(current) {
				failed++
			}
		}
	}

	// Let the renderer finish before returning
	s.Close()
	running.Wait()

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d summaries failed", failed, submitted), 1)
	}
	return nil
}

// readInput submits each line of input until the end of input or until ctx is done. A read blocked on a terminal
// can't be interrupted, so it's left behind when ctx is done.
func readInput(ctx context.Context, input io.Reader, s *session.Session, log *zap.SugaredLogger) {
	lines, errs := async.Lines(ctx, input)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				if err := <-errs; err != nil && ctx.Err() == nil {
					log.Errorf("failed reading input: %v", err)
				}
				return
			}
			s.Submit(line)
		case <-ctx.Done():
			return
		}
	}
}

// succeeded waits for r to finish, returning true if its summary completed. Cancelling the session's context also
// finishes r.
func succeeded(r *session.Request) bool {
	<-r.Done()
	return r.State().Status == session.StatusComplete
}
