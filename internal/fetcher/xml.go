package fetcher

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// StreamXML decodes every element named elementName from r and sends it on
// the returned channel. Non-UTF-8 documents are transcoded using the
// charset in their XML declaration. Both channels close when decoding ends.
func StreamXML[T any](ctx context.Context, r io.Reader, elementName string) (<-chan T, <-chan error) {
	outCh := make(chan T, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		dec := xml.NewDecoder(r)
		dec.Strict = false
		dec.CharsetReader = charsetReader

		for {
			if err := ctx.Err(); err != nil {
				errCh <- eris.Wrap(err, "xml: context cancelled")
				return
			}

			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != elementName {
				continue
			}

			var item T
			if err := dec.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrap(err, "xml: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

// CollectXML drains StreamXML, stopping after limit items when limit > 0.
// Items decoded before an error are returned alongside it.
func CollectXML[T any](ctx context.Context, r io.Reader, elementName string, limit int) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items, errs := StreamXML[T](ctx, r, elementName)
	var out []T
	for item := range items {
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			cancel()
			for range items {
			}
			return out, nil
		}
	}
	return out, <-errs
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}
