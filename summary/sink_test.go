package summary

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestUpdate_Apply(t *testing.T) {
	assert := assert_.New(t)
	text := "loading.."
	for _, u := range []Update{
		{Kind: KindReplace, Text: ""},
		{Kind: KindAppend, Text: "one"},
		{Kind: KindAppend, Text: ""},
		{Kind: KindAppend, Text: " two"},
	} {
		text = u.Apply(text)
	}
	assert.Equal("one two", text)
	assert.Equal("gone", Update{Kind: KindReplace, Text: "gone"}.Apply(text))
	assert.Equal("replace", KindReplace.String())
	assert.Equal("append", KindAppend.String())
	assert.Equal("unknown", UpdateKind(99).String())
}

func TestTerminalSink(t *testing.T) {
	assert := assert_.New(t)
	rec := &recorder{}
	s := &terminalSink{sink: rec.sink()}
	s.Append("partial")
	s.terminate("Something went wrong")
	s.Append("late")
	s.Replace("later")
	s.terminate("again")
	assert.Equal([]Update{
		{Kind: KindAppend, Text: "partial"},
		{Kind: KindReplace, Text: "Something went wrong"},
	}, rec.Updates())
}

func TestDiagnostic(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal("Something went wrong", Diagnostic(nil))
	assert.Equal("Something went wrong", Diagnostic(errors.New("")))
	assert.Equal("Something went wrong: boom", Diagnostic(errors.New("boom")))
	assert.Equal("Something went wrong: outer: boom", Diagnostic(fmt.Errorf("outer: %w", errors.New("boom"))))
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		err       StatusError
		message   string
		temporary bool
	}{
		{StatusError{Code: 404, Status: "404 Not Found"}, "server responded with 404 Not Found", false},
		{StatusError{Code: 400, Body: "bad id"}, "server responded with 400 Bad Request: bad id", false},
		{StatusError{Code: http.StatusTooManyRequests}, "server responded with 429 Too Many Requests", true},
		{StatusError{Code: 500, Status: "500 Internal Server Error"}, "server responded with 500 Internal Server Error", true},
		{StatusError{Code: 503, Status: "503 Service Unavailable", Body: "try later"}, "server responded with 503 Service Unavailable: try later", true},
	}
	for _, tt := range tests {
		assert_.Equal(t, tt.message, tt.err.Error())
		assert_.Equal(t, tt.temporary, tt.err.Temporary())
	}
}
