package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DateTimeLayout is the dateTime.iso8601 form written by the encoder.
const DateTimeLayout = "20060102T15:04:05"

var dateTimeLayouts = []string{
	DateTimeLayout,
	"20060102T15:04:05Z07:00",
	"20060102T150405",
	"20060102T150405Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339Nano,
}

type parser struct {
	dec *xml.Decoder
}

func newParser(r io.Reader) *parser {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return &parser{dec: dec}
}

// DecodeCall reads one <methodCall> document.
func DecodeCall(r io.Reader) (*MethodCall, error) {
	p := newParser(r)
	if err := p.expectStart("methodCall"); err != nil {
		return nil, err
	}

	call := &MethodCall{Params: []any{}}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "methodName":
				name, err := p.text(t.Name.Local)
				if err != nil {
					return nil, err
				}
				call.Method = strings.TrimSpace(name)
			case "params":
				params, err := p.params()
				if err != nil {
					return nil, err
				}
				call.Params = params
			default:
				return nil, fmt.Errorf("unexpected <%s> in methodCall", t.Name.Local)
			}
		case xml.EndElement:
			if call.Method == "" {
				return nil, errors.New("methodCall has no methodName")
			}
			return call, nil
		}
	}
}

// next returns the next start or end element, skipping text, comments and
// processing instructions.
func (p *parser) next() (xml.Token, error) {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement, xml.EndElement:
			return t, nil
		}
	}
}

func (p *parser) expectStart(name string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != name {
		return fmt.Errorf("expected <%s>", name)
	}
	return nil
}

func (p *parser) expectEnd(name string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	end, ok := tok.(xml.EndElement)
	if !ok || end.Name.Local != name {
		return fmt.Errorf("expected </%s>", name)
	}
	return nil
}

// text reads character data up to the end of element name.
func (p *parser) text(name string) (string, error) {
	var b strings.Builder
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			return "", fmt.Errorf("unexpected <%s> inside <%s>", t.Name.Local, name)
		case xml.EndElement:
			return b.String(), nil
		}
	}
}

// params reads <param> elements up to </params>.
func (p *parser) params() ([]any, error) {
	out := []any{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "param" {
				return nil, fmt.Errorf("unexpected <%s> in params", t.Name.Local)
			}
			if err := p.expectStart("value"); err != nil {
				return nil, err
			}
			value, err := p.value()
			if err != nil {
				return nil, err
			}
			if err := p.expectEnd("param"); err != nil {
				return nil, err
			}
			out = append(out, value)
		case xml.EndElement:
			return out, nil
		}
	}
}

// value reads the content of a <value> element whose start tag has been
// consumed, including its end tag. A value without a type element is a string.
func (p *parser) value() (any, error) {
	var raw strings.Builder
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			raw.Write(t)
		case xml.EndElement:
			return raw.String(), nil
		case xml.StartElement:
			value, err := p.typed(t.Name.Local)
			if err != nil {
				return nil, err
			}
			if err := p.expectEnd("value"); err != nil {
				return nil, err
			}
			return value, nil
		}
	}
}

func (p *parser) typed(kind string) (any, error) {
	switch kind {
	case "string":
		return p.text(kind)
	case "int", "i4", "i8":
		raw, err := p.text(kind)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid <%s> %q", kind, raw)
		}
		return int(n), nil
	case "boolean":
		raw, err := p.text(kind)
		if err != nil {
			return nil, err
		}
		switch strings.TrimSpace(raw) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid <boolean> %q", raw)
	case "double":
		raw, err := p.text(kind)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid <double> %q", raw)
		}
		return f, nil
	case "dateTime.iso8601":
		raw, err := p.text(kind)
		if err != nil {
			return nil, err
		}
		return ParseDateTime(raw)
	case "base64":
		raw, err := p.text(kind)
		if err != nil {
			return nil, err
		}
		data, err := base64.StdEncoding.DecodeString(stripSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid <base64>: %w", err)
		}
		return data, nil
	case "nil":
		if err := p.expectEnd("nil"); err != nil {
			return nil, err
		}
		return nil, nil
	case "struct":
		return p.structValue()
	case "array":
		return p.arrayValue()
	default:
		return nil, fmt.Errorf("unknown value type <%s>", kind)
	}
}

func (p *parser) structValue() (map[string]any, error) {
	out := map[string]any{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "member" {
				return nil, fmt.Errorf("unexpected <%s> in struct", t.Name.Local)
			}
			name, value, err := p.member()
			if err != nil {
				return nil, err
			}
			out[name] = value
		case xml.EndElement:
			return out, nil
		}
	}
}

func (p *parser) member() (string, any, error) {
	var (
		name     string
		value    any
		hasName  bool
		hasValue bool
	)
	for {
		tok, err := p.next()
		if err != nil {
			return "", nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "name":
				raw, err := p.text("name")
				if err != nil {
					return "", nil, err
				}
				name = strings.TrimSpace(raw)
				hasName = true
			case "value":
				value, err = p.value()
				if err != nil {
					return "", nil, err
				}
				hasValue = true
			default:
				return "", nil, fmt.Errorf("unexpected <%s> in member", t.Name.Local)
			}
		case xml.EndElement:
			if !hasName || !hasValue {
				return "", nil, errors.New("struct member needs a name and a value")
			}
			return name, value, nil
		}
	}
}

func (p *parser) arrayValue() ([]any, error) {
	if err := p.expectStart("data"); err != nil {
		return nil, err
	}
	out := []any{}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "value" {
				return nil, fmt.Errorf("unexpected <%s> in array", t.Name.Local)
			}
			value, err := p.value()
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		case xml.EndElement:
			if err := p.expectEnd("array"); err != nil {
				return nil, err
			}
			return out, nil
		}
	}
}

// ParseDateTime parses the dateTime.iso8601 variants sent by blog clients.
// Values without a zone are returned as UTC.
func ParseDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid <dateTime.iso8601> %q", raw)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
}
