// Package textdecode decodes text that arrives in arbitrary byte chunks, holding back incomplete multi-byte sequences
// until the rest of the sequence (or the end of input) arrives.
package textdecode

import (
	"errors"
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	CharsetUTF8 = "utf-8"

	defaultBufSize = 4096
)

// Decoder wraps a transform.Transformer (usually an encoding.Decoder) so that it can be fed one chunk at a time.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

func New(t transform.Transformer) *Decoder {
	return &Decoder{t: t, dst: make([]byte, defaultBufSize)}
}

// UTF8 returns a Decoder for UTF-8 text. If strict, invalid sequences are an error, otherwise each is replaced with
// U+FFFD.
func UTF8(strict bool) *Decoder {
	if strict {
		return New(encoding.UTF8Validator)
	}
	return New(unicode.UTF8.NewDecoder())
}

// ForContentType returns a Decoder for the charset named in a Content-Type header value, and the name of the charset
// actually used. UTF-8 is used when there is no charset parameter or it names an unsupported charset, and strict only
// applies to UTF-8.
func ForContentType(contentType string, strict bool) (*Decoder, string) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return UTF8(strict), CharsetUTF8
	}
	label := strings.TrimSpace(params["charset"])
	if label == "" {
		return UTF8(strict), CharsetUTF8
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return UTF8(strict), CharsetUTF8
	}
	name, err := htmlindex.Name(enc)
	if err != nil || name == CharsetUTF8 {
		return UTF8(strict), CharsetUTF8
	}
	return New(enc.NewDecoder()), name
}

// Decode converts as much of the pending input plus p as possible. Bytes that might be the start of an incomplete
// sequence are held back for the next call to Decode or Flush.
func (d *Decoder) Decode(p []byte) (string, error) {
	return d.decode(p, false)
}

// Flush decodes any held-back bytes as the end of input, and resets the Decoder so it can be reused.
func (d *Decoder) Flush() (string, error) {
	s, err := d.decode(nil, true)
	d.pending = nil
	d.t.Reset()
	return s, err
}

func (d *Decoder) decode(p []byte, atEOF bool) (string, error) {
	src := p
	if len(d.pending) > 0 {
		src = append(d.pending, p...)
		d.pending = nil
	}
	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]
		switch {
		case err == nil:
			return out.String(), nil
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				// Not even one unit of output fits
				d.dst = make([]byte, 2*len(d.dst))
			}
		case errors.Is(err, transform.ErrShortSrc):
			if atEOF {
				return out.String(), err
			}
			d.pending = append([]byte(nil), src...)
			return out.String(), nil
		default:
			return out.String(), err
		}
	}
}
