package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/video-summary"
	"github.com/alanbriolat/video-summary/async"
)

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = video_summary.WithLogger(ctx, logger)

	app := newApp(os.Stdin, os.Stdout, os.Stderr, config.Level)
	result := async.Run(func() error { return app.RunContext(ctx, os.Args) })

	select {
	case err = <-result:
	case <-ctx.Done():
		stop()
		err = <-result
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			logger.Error(msg)
		}
		_ = logger.Sync()
		os.Exit(exitErr.ExitCode())
	} else if err != nil {
		logger.Fatal(err.Error())
	}
}
