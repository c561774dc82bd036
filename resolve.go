package video_summary

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrUnresolved = errors.New("not a recognised video URL or ID")
)

// MinIDLength is the shortest string accepted as a bare video ID. Current IDs are 11 characters, historical ones 9.
const MinIDLength = 9

// A VideoID is an opaque video identifier drawn from [A-Za-z0-9_-]. It is never empty and never contains "/".
type VideoID string

func (id VideoID) String() string {
	return string(id)
}

// Shape is the kind of reference a VideoID was extracted from.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeID
	ShapeShortLink
	ShapeLongLink
)

func (s Shape) String() string {
	switch s {
	case ShapeID:
		return "id"
	case ShapeShortLink:
		return "short-link"
	case ShapeLongLink:
		return "long-link"
	default:
		return "none"
	}
}

// A Resolution is the result of Resolve. The zero value means the reference could not be resolved.
type Resolution struct {
	ID    VideoID
	Shape Shape
}

// Resolved returns true if a VideoID was extracted.
func (r Resolution) Resolved() bool {
	return r.ID != ""
}

// Optional scheme and userinfo, then any subdomains, so that the host that follows must be the URL's own host and not
// something in its path or query (e.g. "https://example.com/youtu.be/...").
const authorityPrefix = `^(?:[A-Za-z][A-Za-z0-9+.-]*://)?(?:[^/?#@]*@)?(?:[\w-]+\.)*`

var (
	idPattern        = regexp.MustCompile(`^[\w-]+$`)
	shortLinkPattern = regexp.MustCompile(authorityPrefix + `(?i:youtu\.be)(?::\d+)?/([^/?#&]*)`)
	longLinkPattern  = regexp.MustCompile(authorityPrefix + `(?i:youtube\.com)(?::\d+)?/watch/?\?([^#]*)`)
)

// A matcher extracts a VideoID from a reference, or explains why it can't.
type matcher struct {
	shape Shape
	match func(string) (VideoID, error)
}

// Priority order; the first successful matcher wins.
var matchers = []matcher{
	{ShapeID, matchID},
	{ShapeShortLink, matchShortLink},
	{ShapeLongLink, matchLongLink},
}

// Resolve extracts a VideoID from a bare ID or a video URL. Allowed formats:
//
//	{VIDEO_ID}                                      (at least MinIDLength characters)
//	[http(s)://]youtu.be/{VIDEO_ID}[?...]
//	[http(s)://][www.|m.|...]youtube.com/watch?[...&]v={VIDEO_ID}[&...]
//
// Input is matched with patterns rather than parsed as a URL, so malformed input simply fails to resolve.
func Resolve(raw string) Resolution {
	for _, m := range matchers {
		if id, err := m.match(raw); err == nil {
			return Resolution{ID: id, Shape: m.shape}
		}
	}
	return Resolution{}
}

// Explain returns nil if Resolve would succeed, otherwise an error wrapping ErrUnresolved along with the reason each
// shape was rejected.
func Explain(raw string) error {
	var result *multierror.Error
	for _, m := range matchers {
		_, err := m.match(raw)
		if err == nil {
			return nil
		}
		result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", m.shape)))
	}
	return fmt.Errorf("%w: %w", ErrUnresolved, result)
}

func matchID(s string) (VideoID, error) {
	if len(s) < MinIDLength {
		return "", fmt.Errorf("shorter than %d characters", MinIDLength)
	}
	if !idPattern.MatchString(s) {
		return "", fmt.Errorf("contains characters outside [A-Za-z0-9_-]")
	}
	return VideoID(s), nil
}

func matchShortLink(s string) (VideoID, error) {
	m := shortLinkPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("no youtu.be host")
	}
	if !idPattern.MatchString(m[1]) {
		return "", fmt.Errorf("path segment %q is not a video ID", m[1])
	}
	return VideoID(m[1]), nil
}

func matchLongLink(s string) (VideoID, error) {
	m := longLinkPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("no youtube.com/watch?... URL")
	}
	for _, param := range strings.Split(m[1], "&") {
		value, found := strings.CutPrefix(param, "v=")
		if !found {
			continue
		}
		if !idPattern.MatchString(value) {
			return "", fmt.Errorf("v=%q is not a video ID", value)
		}
		return VideoID(value), nil
	}
	return "", fmt.Errorf("missing ?v= query parameter")
}
