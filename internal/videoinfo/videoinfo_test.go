package videoinfo

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
)

func TestInfo_String(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{ID: "dQw4w9WgXcQ"}, "dQw4w9WgXcQ"},
		{Info{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up"}, "Never Gonna Give You Up"},
		{Info{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Author: "Rick Astley"}, "Never Gonna Give You Up by Rick Astley"},
		{Info{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Author: "Rick Astley", Duration: 212*time.Second + 300*time.Millisecond}, "Never Gonna Give You Up by Rick Astley (3m32s)"},
	}
	for _, tt := range tests {
		assert_.Equal(t, tt.want, tt.info.String())
	}
}

func TestWatchURL(t *testing.T) {
	assert_.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", WatchURL("dQw4w9WgXcQ"))
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestClient_Describe_Error(t *testing.T) {
	assert := assert_.New(t)
	offline := errors.New("offline")
	var requested bool
	c := New(&http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		requested = true
		return nil, offline
	})})

	desc, err := c.Describe(context.Background(), "dQw4w9WgXcQ")
	assert.Equal("", desc)
	assert.ErrorContains(err, "failed to get video info")
	assert.True(requested)
}
