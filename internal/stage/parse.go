package stage

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Parse reads a layer in a small subset of the usda text format:  layer
// metadata, and nested prim definitions with metadata (references in
// particular) and attributes.  Attribute values are kept verbatim.
//
//	#usda 1.0
//	(
//	    defaultPrim = "World"
//	)
//
//	def Xform "World" (
//	    references = [@./props/floor.usda@, @bal:///car@]
//	)
//	{
//	    color3f color = (1, 0, 0)
//	}
func Parse(r io.Reader) (*Layer, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not read layer")
	}

	p := &parser{src: string(src)}
	if !strings.HasPrefix(strings.TrimLeftFunc(p.src, unicode.IsSpace), "#usda") {
		return nil, errors.New("not a usda layer: missing #usda header")
	}

	l := &Layer{}
	if err := p.layer(l); err != nil {
		return nil, err
	}
	return l, nil
}

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tString
	tAsset
	tPath
	tNumber
	tPunct
)

type token struct {
	kind  tokenKind
	text  string // unquoted content for strings, assets and paths
	start int
	end   int
	line  int
}

type parser struct {
	src  string
	pos  int
	line int

	peeked *token
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", t.line+1, fmt.Sprintf(format, args...))
}

func (p *parser) peek() (token, error) {
	if p.peeked == nil {
		t, err := p.scan()
		if err != nil {
			return t, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *parser) next() (token, error) {
	t, err := p.peek()
	p.peeked = nil
	return t, err
}

func (p *parser) expect(text string) (token, error) {
	t, err := p.next()
	if err != nil {
		return t, err
	}
	if t.kind == tString || t.kind == tAsset || t.text != text {
		return t, p.errorf(t, "expected %q, found %q", text, t.text)
	}
	return t, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.pos++
		case c == ' ' || c == '\t' || c == '\r':
			p.pos++
		case c == '#':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *parser) scan() (token, error) {
	p.skipSpace()
	t := token{start: p.pos, line: p.line}
	if p.pos >= len(p.src) {
		t.kind, t.end = tEOF, p.pos
		return t, nil
	}

	delimited := func(kind tokenKind, close byte) (token, error) {
		end := strings.IndexByte(p.src[p.pos+1:], close)
		if end < 0 || strings.ContainsRune(p.src[p.pos+1:p.pos+1+end], '\n') {
			return t, p.errorf(t, "unterminated %c", p.src[p.pos])
		}
		t.kind, t.text = kind, p.src[p.pos+1:p.pos+1+end]
		p.pos += end + 2
		t.end = p.pos
		return t, nil
	}

	c := p.src[p.pos]
	switch {
	case c == '"':
		return delimited(tString, '"')
	case c == '@':
		return delimited(tAsset, '@')
	case c == '<':
		return delimited(tPath, '>')
	case strings.IndexByte("(){}[]=,", c) >= 0:
		p.pos++
		t.kind, t.text, t.end = tPunct, string(c), p.pos
		return t, nil
	case c == '-' || c == '+' || c == '.' || unicode.IsDigit(rune(c)):
		return p.word(t, tNumber), nil
	case isIdent(rune(c)):
		return p.word(t, tIdent), nil
	}

	return t, p.errorf(t, "unexpected character %q", c)
}

func (p *parser) word(t token, kind tokenKind) token {
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if !isIdent(r) && r != '.' && r != '-' && r != '+' {
			break
		}
		p.pos++
	}
	t.kind, t.text, t.end = kind, p.src[t.start:p.pos], p.pos
	return t
}

func isIdent(r rune) bool {
	return r == '_' || r == ':' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *parser) layer(l *Layer) error {
	t, err := p.peek()
	if err != nil {
		return err
	}
	if t.text == "(" && t.kind == tPunct {
		meta, err := p.metadata()
		if err != nil {
			return err
		}
		l.DefaultPrim = meta.defaultPrim
	}

	for {
		t, err := p.peek()
		if err != nil {
			return err
		}
		if t.kind == tEOF {
			return nil
		}

		prim, err := p.prim("/")
		if err != nil {
			return err
		}
		l.Prims = append(l.Prims, prim)
	}
}

type metadata struct {
	defaultPrim string
	references  []string
}

// metadata parses a parenthesized list of key = value entries
func (p *parser) metadata() (metadata, error) {
	var m metadata
	if _, err := p.expect("("); err != nil {
		return m, err
	}

	for {
		t, err := p.peek()
		if err != nil {
			return m, err
		}
		if t.kind == tPunct && t.text == ")" {
			_, err = p.next()
			return m, err
		}
		if t.kind == tString {
			// A layer doc string
			if _, err = p.next(); err != nil {
				return m, err
			}
			continue
		}

		key, err := p.key()
		if err != nil {
			return m, err
		}

		vals, _, err := p.value()
		if err != nil {
			return m, err
		}

		switch key {
		case "defaultPrim":
			for _, v := range vals {
				if v.kind == tString {
					m.defaultPrim = v.text
				}
			}
		case "references", "payload":
			for _, v := range vals {
				if v.kind == tAsset {
					m.references = append(m.references, v.text)
				}
			}
		}
	}
}

// key reads tokens up to an =, and returns the last of them.  List edit
// qualifiers like prepend are thereby dropped, as are attribute types.
func (p *parser) key() (string, error) {
	var key string
	for {
		t, err := p.next()
		if err != nil {
			return "", err
		}
		switch {
		case t.kind == tPunct && t.text == "=":
			if key == "" {
				return "", p.errorf(t, "missing name before =")
			}
			return key, nil
		case t.kind == tIdent:
			key = t.text
		case t.kind == tPunct && (t.text == "[" || t.text == "]"):
			// array types, e.g. float[]
		default:
			return "", p.errorf(t, "unexpected %q, expected a name", t.text)
		}
	}
}

// value reads a single value, which is either a scalar token or a balanced
// () or [] group.  It returns the scalar tokens contained, and the raw text.
func (p *parser) value() ([]token, string, error) {
	first, err := p.next()
	if err != nil {
		return nil, "", err
	}

	switch {
	case first.kind == tEOF:
		return nil, "", p.errorf(first, "missing value")
	case first.kind != tPunct:
		if first.kind == tAsset {
			// An asset may be followed by a prim path, e.g. @a.usda@</World>
			if t, err := p.peek(); err == nil && t.kind == tPath {
				_, _ = p.next()
			}
		}
		return []token{first}, p.src[first.start:first.end], nil
	case first.text != "(" && first.text != "[":
		return nil, "", p.errorf(first, "unexpected %q, expected a value", first.text)
	}

	var scalars []token
	depth, end := 1, first.end
	for depth > 0 {
		t, err := p.next()
		if err != nil {
			return nil, "", err
		}
		switch {
		case t.kind == tEOF:
			return nil, "", p.errorf(first, "unbalanced %s", first.text)
		case t.kind == tPunct && (t.text == "(" || t.text == "["):
			depth++
		case t.kind == tPunct && (t.text == ")" || t.text == "]"):
			depth--
		case t.kind != tPunct:
			scalars = append(scalars, t)
		}
		end = t.end
	}

	return scalars, p.src[first.start:end], nil
}

// prim parses def [Type] "Name" [(metadata)] { body }
func (p *parser) prim(parent string) (*Prim, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.kind != tIdent || (t.text != "def" && t.text != "over") {
		return nil, p.errorf(t, "expected a prim definition, found %q", t.text)
	}

	prim := &Prim{Attributes: make(map[string]string)}

	t, err = p.next()
	if err != nil {
		return nil, err
	}
	if t.kind == tIdent {
		prim.Type = t.text
		if t, err = p.next(); err != nil {
			return nil, err
		}
	}
	if t.kind != tString || t.text == "" {
		return nil, p.errorf(t, "expected a quoted prim name")
	}
	prim.Name = t.text
	prim.Path = strings.TrimSuffix(parent, "/") + "/" + prim.Name

	if t, err = p.peek(); err != nil {
		return nil, err
	}
	if t.kind == tPunct && t.text == "(" {
		meta, err := p.metadata()
		if err != nil {
			return nil, err
		}
		prim.References = meta.references
	}

	if _, err := p.expect("{"); err != nil {
		return nil, err
	}

	for {
		t, err := p.peek()
		if err != nil {
			return nil, err
		}

		switch {
		case t.kind == tPunct && t.text == "}":
			_, err = p.next()
			return prim, err
		case t.kind == tEOF:
			return nil, p.errorf(t, "unterminated prim %s", prim.Path)
		case t.kind == tIdent && (t.text == "def" || t.text == "over"):
			child, err := p.prim(prim.Path)
			if err != nil {
				return nil, err
			}
			prim.Children = append(prim.Children, child)
		default:
			name, err := p.key()
			if err != nil {
				return nil, err
			}
			_, raw, err := p.value()
			if err != nil {
				return nil, err
			}
			prim.Attributes[name] = raw
		}
	}
}
