package async

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	assert := assert_.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(123, a)
	err := <-Run(func() error {
		return errors.New("error")
	})
	assert.EqualError(err, "error")
}

func TestLines(t *testing.T) {
	assert := assert_.New(t)
	lines, errs := Lines(context.Background(), strings.NewReader("one\n\nhttps://youtu.be/dQw4w9WgXcQ\r\nlast"))
	var got []string
	for line := range lines {
		got = append(got, line)
	}
	assert.Equal([]string{"one", "", "https://youtu.be/dQw4w9WgXcQ", "last"}, got)
	assert.NoError(<-errs)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestLines_Error(t *testing.T) {
	lines, errs := Lines(context.Background(), failingReader{})
	for range lines {
		assert_.Fail(t, "expected no lines")
	}
	assert_.ErrorIs(t, <-errs, io.ErrClosedPipe)
}

func TestLines_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	lines, errs := Lines(ctx, strings.NewReader("one\ntwo\n"))
	// Nobody receives, so the first line can't be sent before the context is noticed
	assert_.ErrorIs(t, <-errs, context.Canceled)
	_, ok := <-lines
	assert_.False(t, ok)
}
