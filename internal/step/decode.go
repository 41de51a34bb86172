package step

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/storeysplit/internal/ctxlog"
	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/inmemorystore"
)

// Namer names the attribute at a position of an entity type.
type Namer interface {
	AttributeName(label string, index int) string
}

// Options configures Decode.
type Options struct {
	// Namer selects attribute names for the declared schema. When nil, or
	// when it returns nil, attributes are named Arg0, Arg1, ...
	Namer func(schema string) Namer
}

// Document is a decoded exchange file.
type Document struct {
	Header Header
	Store  *inmemorystore.Store
	Size   int64
}

const (
	magicStart = "ISO-10303-21"
	magicEnd   = "END-ISO-10303-21"

	// ctxCheckEvery is how many instances are decoded between context checks.
	ctxCheckEvery = 4096
)

type positional struct{}

func (positional) AttributeName(_ string, index int) string {
	return fmt.Sprintf("Arg%d", index)
}

// Load reads and decodes the file at path.
func Load(ctx context.Context, path string, opts Options) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	doc, err := Decode(ctx, f, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return doc, nil
}

// Decode parses an exchange file from r. The returned store is frozen.
func Decode(ctx context.Context, r io.Reader, opts Options) (*Document, error) {
	logger := ctxlog.FromContext(ctx)

	src, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))

	s := newScanner(src)
	if err := s.statementKeyword(magicStart); err != nil {
		return nil, err
	}
	if err := s.statementKeyword("HEADER"); err != nil {
		return nil, err
	}
	header, err := s.headerSection()
	if err != nil {
		return nil, err
	}

	schemaID := header.Schema()
	var namer Namer = positional{}
	if opts.Namer != nil {
		if n := opts.Namer(schemaID); n != nil {
			namer = n
		}
	}

	store := inmemorystore.New(schemaID)
	count := 0
	for {
		kw, err := s.keyword()
		if err != nil {
			return nil, err
		}
		switch kw {
		case "DATA":
			if err := s.skipSpace(); err != nil {
				return nil, err
			}
			if s.peek() == '(' {
				if _, err := s.params(); err != nil {
					return nil, err
				}
			}
			if err := s.expect(';'); err != nil {
				return nil, err
			}
			n, err := s.dataSection(ctx, store, namer)
			if err != nil {
				return nil, err
			}
			count += n
		case magicEnd:
			if err := s.expect(';'); err != nil {
				return nil, err
			}
			store.Freeze()
			logger.Debug("Exchange file decoded.", "schema", schemaID, "entities", count, "bytes", len(src))
			return &Document{Header: header, Store: store, Size: int64(len(src))}, nil
		default:
			return nil, s.errorf("unexpected section %q", kw)
		}
	}
}

func (s *scanner) statementKeyword(want string) error {
	kw, err := s.keyword()
	if err != nil {
		return err
	}
	if kw != want {
		return s.errorf("expected %s, found %s", want, kw)
	}
	return s.expect(';')
}

func (s *scanner) headerSection() (Header, error) {
	var h Header
	for {
		kw, err := s.keyword()
		if err != nil {
			return h, err
		}
		if kw == "ENDSEC" {
			return h, s.expect(';')
		}
		params, err := s.params()
		if err != nil {
			return h, err
		}
		if err := s.expect(';'); err != nil {
			return h, err
		}
		h.Records = append(h.Records, Record{Type: kw, Params: params})
	}
}

func (s *scanner) dataSection(ctx context.Context, store *inmemorystore.Store, namer Namer) (int, error) {
	count := 0
	for {
		if err := s.skipSpace(); err != nil {
			return count, err
		}
		if s.peek() != '#' {
			kw, err := s.keyword()
			if err != nil {
				return count, err
			}
			if kw != "ENDSEC" {
				return count, s.errorf("expected instance or ENDSEC, found %s", kw)
			}
			return count, s.expect(';')
		}

		line := s.line
		id, err := s.instanceID()
		if err != nil {
			return count, err
		}
		if err := s.expect('='); err != nil {
			return count, err
		}
		if err := s.skipSpace(); err != nil {
			return count, err
		}
		if s.peek() == '(' {
			return count, s.errorf("#%d: complex entity instances are not supported", id)
		}
		typ, err := s.keyword()
		if err != nil {
			return count, err
		}
		params, err := s.params()
		if err != nil {
			return count, err
		}
		if err := s.expect(';'); err != nil {
			return count, err
		}

		attrs := make([]entity.Attribute, len(params))
		for i, p := range params {
			attrs[i] = entity.Attribute{Name: namer.AttributeName(typ, i), Value: p}
		}
		if err := store.Add(&entity.Entity{ID: id, Type: typ, Attributes: attrs}); err != nil {
			return count, &LoadError{Line: line, Err: err}
		}

		count++
		if count%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return count, err
			}
		}
	}
}
