// Package payload decodes the nested literal payloads carried inside CSV
// cells of the raw exports: list-of-dict product metadata on transactions
// and dict event metadata on clickstream rows.
//
// The encoding is Python-literal style, not JSON:
//
//	[{'product_id': 80196, 'quantity': 2, 'item_price': 110000}]
//	{'product_id': 56970, 'quantity': 1, 'item_price': 197000}
//
// Strings may be single- or double-quoted, booleans are True/False, and the
// null value is None. Rewriting quotes to feed encoding/json would corrupt
// embedded apostrophes, so decoding is done with a small recursive-descent
// scanner.
//
// Malformed input is a value, not an error: DecodeList and DecodeDict report
// an explicit Valid flag and never panic, so a bad payload costs one order
// its lines rather than failing the batch.
package payload

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ListResult is the outcome of decoding a list payload. When Valid is false
// the input was absent, malformed, or not a list, and Items is nil.
type ListResult struct {
	Items []any
	Valid bool
}

// DictResult is the outcome of decoding a dict payload. When Valid is false
// the input was absent, malformed, or not a dict, and Fields is nil.
type DictResult struct {
	Fields map[string]any
	Valid  bool
}

// DecodeList decodes s as a list literal. Any failure yields Valid=false.
func DecodeList(s string) ListResult {
	v, err := Decode(s)
	if err != nil {
		return ListResult{}
	}
	items, ok := v.([]any)
	if !ok {
		return ListResult{}
	}
	return ListResult{Items: items, Valid: true}
}

// DecodeDict decodes s as a dict literal. Any failure yields Valid=false.
func DecodeDict(s string) DictResult {
	v, err := Decode(s)
	if err != nil {
		return DictResult{}
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return DictResult{}
	}
	return DictResult{Fields: fields, Valid: true}
}

// Decode parses a single literal value: dict, list, string, int64, float64,
// bool, or nil. Trailing non-space input is an error.
func Decode(s string) (any, error) {
	p := &parser{src: s}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("payload: trailing input at offset %d", p.pos)
	}
	return v, nil
}

// Int extracts an integer from a decoded value, accepting the int64 and
// float64 shapes the scanner produces. Whole-valued floats convert; anything
// else reports false.
func Int(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		i := int64(n)
		if float64(i) == n {
			return i, true
		}
	}
	return 0, false
}

// Float extracts a float from a decoded numeric value.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("payload: expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) value() (any, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '{':
		return p.dict()
	case c == '[':
		return p.list()
	case c == '\'' || c == '"':
		return p.quoted(c)
	case c == '-' || c == '+' || (c >= '0' && c <= '9') || c == '.':
		return p.number()
	case p.keyword("None"):
		return nil, nil
	case p.keyword("True"):
		return true, nil
	case p.keyword("False"):
		return false, nil
	case p.keyword("null"):
		return nil, nil
	case p.keyword("true"):
		return true, nil
	case p.keyword("false"):
		return false, nil
	default:
		return nil, fmt.Errorf("payload: unexpected input at offset %d", p.pos)
	}
}

// keyword consumes lit when it appears at the cursor and is not followed by
// an identifier character.
func (p *parser) keyword(lit string) bool {
	if !strings.HasPrefix(p.src[p.pos:], lit) {
		return false
	}
	rest := p.src[p.pos+len(lit):]
	if rest != "" {
		c := rest[0]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return false
		}
	}
	p.pos += len(lit)
	return true
}

func (p *parser) dict() (map[string]any, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	out := map[string]any{}
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return out, nil
	}
	for {
		p.skipSpace()
		q := p.peek()
		if q != '\'' && q != '"' {
			return nil, fmt.Errorf("payload: dict key must be a string at offset %d", p.pos)
		}
		key, err := p.quoted(q)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = v
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, fmt.Errorf("payload: expected ',' or '}' at offset %d", p.pos)
		}
	}
}

func (p *parser) list() ([]any, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	out := []any{}
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return out, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		default:
			return nil, fmt.Errorf("payload: expected ',' or ']' at offset %d", p.pos)
		}
	}
}

// quoted scans a string delimited by quote, handling backslash escapes.
func (p *parser) quoted(quote byte) (string, error) {
	if err := p.expect(quote); err != nil {
		return "", err
	}
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return sb.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", fmt.Errorf("payload: unterminated escape")
			}
			e := p.src[p.pos]
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(e)
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("payload: unterminated string")
}

func (p *parser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' {
			isFloat = true
			p.pos++
			continue
		}
		if (c == '-' || c == '+') && isFloat {
			prev := p.src[p.pos-1]
			if prev == 'e' || prev == 'E' {
				p.pos++
				continue
			}
		}
		break
	}
	lit := p.src[start:p.pos]
	if lit == "" || lit == "-" || lit == "+" {
		return nil, fmt.Errorf("payload: malformed number at offset %d", start)
	}
	if !isFloat {
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, fmt.Errorf("payload: malformed number %q: %w", lit, err)
	}
	return f, nil
}
