// Package videoinfo looks up the details of a YouTube video, to describe a video while its summary is fetched.
package videoinfo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/video-summary"
)

type Info struct {
	ID       video_summary.VideoID
	Title    string
	Author   string
	Duration time.Duration
}

// String describes the video as "Title by Author (duration)", leaving out whatever is unknown.
func (i *Info) String() string {
	var b strings.Builder
	if i.Title != "" {
		b.WriteString(i.Title)
	} else {
		b.WriteString(string(i.ID))
	}
	if i.Author != "" {
		fmt.Fprintf(&b, " by %s", i.Author)
	}
	if i.Duration > 0 {
		fmt.Fprintf(&b, " (%v)", i.Duration.Round(time.Second))
	}
	return b.String()
}

// WatchURL returns the canonical URL of a video.
func WatchURL(id video_summary.VideoID) string {
	return "https://www.youtube.com/watch?v=" + string(id)
}

type Client struct {
	client youtube.Client
}

// New creates a Client using httpClient, or http.DefaultClient if nil.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{client: youtube.Client{HTTPClient: httpClient}}
}

func (c *Client) Lookup(ctx context.Context, id video_summary.VideoID) (*Info, error) {
	video, err := c.client.GetVideoContext(ctx, WatchURL(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	return &Info{
		ID:       id,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
	}, nil
}

// Describe implements session.Describer.
func (c *Client) Describe(ctx context.Context, id video_summary.VideoID) (string, error) {
	info, err := c.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	return info.String(), nil
}
