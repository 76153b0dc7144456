package transport

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const initialDecodeBuffer = 4096

// TextDecoder converts a byte stream to text in the configured encoding.
// Multi-byte sequences split across chunks are held back until complete.
type TextDecoder struct {
	name    string
	tr      transform.Transformer
	pending []byte
	dst     []byte
}

// NewTextDecoder accepts any WHATWG encoding label ("utf-8", "latin1",
// "windows-1251", ...).
func NewTextDecoder(label string) (*TextDecoder, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = label
	}

	return &TextDecoder{
		name: name,
		tr:   enc.NewDecoder(),
		dst:  make([]byte, initialDecodeBuffer),
	}, nil
}

func (d *TextDecoder) Name() string {
	return d.name
}

// Decode returns the text for every complete sequence seen so far.
func (d *TextDecoder) Decode(chunk []byte) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}

	return d.run(src, false)
}

// Flush decodes whatever is still held back, substituting replacement
// characters for incomplete sequences.
func (d *TextDecoder) Flush() string {
	src := d.pending
	d.pending = nil
	out := d.run(src, true)
	d.tr.Reset()

	return out
}

func (d *TextDecoder) run(src []byte, atEOF bool) string {
	var out strings.Builder
	for {
		nDst, nSrc, err := d.tr.Transform(d.dst, src, atEOF)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return out.String()
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
		case errors.Is(err, transform.ErrShortSrc):
			d.pending = append([]byte(nil), src...)

			return out.String()
		default:
			// Skip the offending byte so the stream keeps flowing.
			out.WriteRune('\uFFFD')
			if len(src) == 0 {
				return out.String()
			}
			src = src[1:]
		}
	}
}
