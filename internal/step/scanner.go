package step

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/storeysplit/internal/entity"
)

// scanner is a hand-written tokenizer over the whole file contents.
type scanner struct {
	src  []byte
	pos  int
	line int
}

func newScanner(src []byte) *scanner {
	return &scanner{src: src, line: 1}
}

func (s *scanner) errorf(format string, args ...any) error {
	return &LoadError{Line: s.line, Err: fmt.Errorf(format, args...)}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

var (
	commentEnd = []byte("*/")
	newline    = []byte("\n")
)

// skipSpace skips whitespace and /* */ comments.
func (s *scanner) skipSpace() error {
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case c == '\n':
			s.line++
			s.pos++
		case c == ' ' || c == '\t' || c == '\r':
			s.pos++
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '*':
			end := bytes.Index(s.src[s.pos+2:], commentEnd)
			if end < 0 {
				return s.errorf("unterminated comment")
			}
			comment := s.src[s.pos : s.pos+2+end+2]
			s.line += bytes.Count(comment, newline)
			s.pos += len(comment)
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) expect(c byte) error {
	if err := s.skipSpace(); err != nil {
		return err
	}
	if s.peek() != c {
		if s.eof() {
			return s.errorf("expected %q, found end of file", c)
		}
		return s.errorf("expected %q, found %q", c, s.peek())
	}
	s.pos++
	return nil
}

func isKeywordStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isKeywordChar(c byte) bool {
	return isKeywordStart(c) || (c >= '0' && c <= '9') || c == '-'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// keyword reads a standard or user-defined keyword, upper-cased.
func (s *scanner) keyword() (string, error) {
	if err := s.skipSpace(); err != nil {
		return "", err
	}
	if s.eof() {
		return "", s.errorf("unexpected end of file")
	}
	start := s.pos
	if s.peek() == '!' {
		s.pos++
	}
	if !isKeywordStart(s.peek()) {
		return "", s.errorf("expected keyword, found %q", s.peek())
	}
	for !s.eof() && isKeywordChar(s.src[s.pos]) {
		s.pos++
	}
	return strings.ToUpper(string(s.src[start:s.pos])), nil
}

// instanceID reads "#<digits>".
func (s *scanner) instanceID() (entity.ID, error) {
	if err := s.expect('#'); err != nil {
		return 0, err
	}
	start := s.pos
	for !s.eof() && isDigit(s.src[s.pos]) {
		s.pos++
	}
	if start == s.pos {
		return 0, s.errorf("expected instance number after '#'")
	}
	n, err := strconv.ParseUint(string(s.src[start:s.pos]), 10, 64)
	if err != nil {
		return 0, s.errorf("invalid instance number: %v", err)
	}
	return entity.ID(n), nil
}

// params reads a parenthesised, comma separated parameter list.
func (s *scanner) params() ([]entity.Value, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	out := []entity.Value{}
	if err := s.skipSpace(); err != nil {
		return nil, err
	}
	if s.peek() == ')' {
		s.pos++
		return out, nil
	}
	for {
		v, err := s.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if err := s.skipSpace(); err != nil {
			return nil, err
		}
		switch s.peek() {
		case ',':
			s.pos++
		case ')':
			s.pos++
			return out, nil
		default:
			if s.eof() {
				return nil, s.errorf("unterminated parameter list")
			}
			return nil, s.errorf("expected ',' or ')', found %q", s.peek())
		}
	}
}

// value reads a single parameter.
func (s *scanner) value() (entity.Value, error) {
	if err := s.skipSpace(); err != nil {
		return entity.Value{}, err
	}
	c := s.peek()
	switch {
	case c == '$':
		s.pos++
		return entity.Null(), nil
	case c == '*':
		s.pos++
		return entity.Derived(), nil
	case c == '#':
		id, err := s.instanceID()
		if err != nil {
			return entity.Value{}, err
		}
		return entity.Ref(id), nil
	case c == '\'':
		return s.stringValue()
	case c == '"':
		s.pos++
		end := bytes.IndexByte(s.src[s.pos:], '"')
		if end < 0 {
			return entity.Value{}, s.errorf("unterminated binary literal")
		}
		v := entity.Binary(string(s.src[s.pos : s.pos+end]))
		s.pos += end + 1
		return v, nil
	case c == '.':
		s.pos++
		start := s.pos
		for !s.eof() && s.src[s.pos] != '.' {
			if !isKeywordChar(s.src[s.pos]) {
				return entity.Value{}, s.errorf("invalid enumeration literal")
			}
			s.pos++
		}
		if s.eof() {
			return entity.Value{}, s.errorf("unterminated enumeration literal")
		}
		v := entity.Value{Kind: entity.KindEnum, Text: strings.ToUpper(string(s.src[start:s.pos]))}
		s.pos++
		return v, nil
	case c == '(':
		items, err := s.params()
		if err != nil {
			return entity.Value{}, err
		}
		return entity.List(items...), nil
	case isDigit(c) || c == '-' || c == '+':
		return s.number()
	case isKeywordStart(c) || c == '!':
		name, err := s.keyword()
		if err != nil {
			return entity.Value{}, err
		}
		items, err := s.params()
		if err != nil {
			return entity.Value{}, err
		}
		return entity.Value{Kind: entity.KindTyped, Text: name, Items: items}, nil
	case s.eof():
		return entity.Value{}, s.errorf("unexpected end of file")
	default:
		return entity.Value{}, s.errorf("unexpected character %q", c)
	}
}

// stringValue keeps the literal text between the quotes, including any
// doubled quotes and control directives.
func (s *scanner) stringValue() (entity.Value, error) {
	s.pos++ // opening quote
	start := s.pos
	for !s.eof() {
		c := s.src[s.pos]
		if c == '\n' {
			s.line++
		}
		if c == '\'' {
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\'' {
				s.pos += 2
				continue
			}
			v := entity.Value{Kind: entity.KindString, Text: string(s.src[start:s.pos])}
			s.pos++
			return v, nil
		}
		s.pos++
	}
	return entity.Value{}, s.errorf("unterminated string literal")
}

func (s *scanner) number() (entity.Value, error) {
	start := s.pos
	if c := s.peek(); c == '-' || c == '+' {
		s.pos++
	}
	isReal := false
scan:
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case isDigit(c):
		case c == '.' || c == 'E' || c == 'e':
			isReal = true
		case (c == '-' || c == '+') && (s.src[s.pos-1] == 'E' || s.src[s.pos-1] == 'e'):
		default:
			break scan
		}
		s.pos++
	}

	text := string(s.src[start:s.pos])
	if isReal {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return entity.Value{}, s.errorf("invalid real literal %q", text)
		}
		return entity.Value{Kind: entity.KindReal, Text: text}, nil
	}
	if _, err := strconv.ParseInt(text, 10, 64); err != nil {
		return entity.Value{}, s.errorf("invalid integer literal %q", text)
	}
	return entity.Value{Kind: entity.KindInteger, Text: text}, nil
}
