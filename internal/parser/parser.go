// Package parser turns FQL query text into a keyval.Query (spec §6:
// "query-text surface") via recursive descent over scanner tokens, plus a
// Format function that produces the canonical round-trip string back from
// a Query. Grounded on the original Rust parser's grammar
// (original_source/rust/parser/src/format.rs enumerates the literal
// forms): a Parser struct exposes one entry point and fails with
// keyval.QueryError values (code ErrParseQuery) whose detail names the byte
// offset of the offending token — recursive descent over a
// real token stream rather than a regex-based dispatch, since FQL's
// grammar nests (tuples within tuples) in a way regexes can't express.
package parser

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/termfx/fql/internal/keyval"
	"github.com/termfx/fql/internal/scanner"
)

// Parser consumes a token stream and produces a Query.
type Parser struct {
	s    *scanner.Scanner
	cur  scanner.Token
	peek scanner.Token
}

// Parse tokenizes and parses src into a Query.
func Parse(src string) (keyval.Query, error) {
	p := &Parser{s: scanner.New(src)}
	p.advance()
	p.advance()
	p.skipSpace()

	dir, err := p.parseDirectory()
	if err != nil {
		return keyval.Query{}, err
	}
	p.skipSpace()

	if p.cur.Kind == scanner.KEnd {
		return keyval.Query{Kind: keyval.QDirectory, Directory: dir}, nil
	}

	tup, err := p.parseTuple()
	if err != nil {
		return keyval.Query{}, err
	}
	p.skipSpace()

	if p.cur.Kind == scanner.KEnd {
		return keyval.Query{Kind: keyval.QKey, Key: keyval.Key{Directory: dir, Tuple: tup}}, nil
	}
	if p.cur.Kind != scanner.KKeyValSep {
		return keyval.Query{}, p.errorf("expected '=' or end of query, got %q", p.cur.Text)
	}
	p.advance()
	p.skipSpace()

	val, err := p.parseValue()
	if err != nil {
		return keyval.Query{}, err
	}
	p.skipSpace()
	if p.cur.Kind != scanner.KEnd {
		return keyval.Query{}, p.errorf("unexpected trailing input %q", p.cur.Text)
	}

	return keyval.Query{Kind: keyval.QKeyValue, KeyValue: keyval.KeyValue{
		Key:   keyval.Key{Directory: dir, Tuple: tup},
		Value: val,
	}}, nil
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.s.Scan()
}

func (p *Parser) skipSpace() {
	for p.cur.Kind == scanner.KWhitespace {
		p.advance()
	}
}

func (p *Parser) errorf(format string, args ...any) error {
	return keyval.Wrap(keyval.ErrParseQuery, fmt.Sprintf(format, args...), fmt.Errorf("at byte %d", p.cur.Pos))
}

// parseDirectory parses `(/SEGMENT)*`.
func (p *Parser) parseDirectory() (keyval.Directory, error) {
	var dir keyval.Directory
	for p.cur.Kind == scanner.KDirSep {
		p.advance()
		if p.cur.Kind == scanner.KVarStart {
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			dir = append(dir, keyval.DirElement{Kind: keyval.DEVariable, Variable: v})
			continue
		}
		if p.cur.Kind != scanner.KOther {
			return nil, p.errorf("expected directory segment, got %q", p.cur.Text)
		}
		dir = append(dir, keyval.NewDirString(p.cur.Text))
		p.advance()
	}
	return dir, nil
}

// parseTuple parses `( ELEM (, ELEM)* )`.
func (p *Parser) parseTuple() (keyval.Tuple, error) {
	if p.cur.Kind != scanner.KTupStart {
		return nil, p.errorf("expected '(', got %q", p.cur.Text)
	}
	p.advance()
	p.skipSpace()

	var tup keyval.Tuple
	if p.cur.Kind == scanner.KTupEnd {
		p.advance()
		return tup, nil
	}
	for {
		el, err := p.parseTupElement()
		if err != nil {
			return nil, err
		}
		tup = append(tup, el)
		p.skipSpace()
		if el.Kind == keyval.EKMaybeMore && p.cur.Kind != scanner.KTupEnd {
			return nil, p.errorf("'...' is only valid as the last element of a tuple")
		}
		if p.cur.Kind == scanner.KTupSep {
			p.advance()
			p.skipSpace()
			continue
		}
		if p.cur.Kind == scanner.KTupEnd {
			p.advance()
			break
		}
		return nil, p.errorf("expected ',' or ')', got %q", p.cur.Text)
	}
	return tup, nil
}

func (p *Parser) parseTupElement() (keyval.TupElement, error) {
	switch p.cur.Kind {
	case scanner.KDots:
		p.advance()
		return keyval.NewMaybeMore(), nil
	case scanner.KVarStart:
		v, err := p.parseVariable()
		if err != nil {
			return keyval.TupElement{}, err
		}
		return keyval.TupElement{Kind: keyval.EKVariable, Variable: v}, nil
	case scanner.KStrMark:
		s, err := p.parseString()
		if err != nil {
			return keyval.TupElement{}, err
		}
		return keyval.NewString(s), nil
	case scanner.KTupStart:
		inner, err := p.parseTuple()
		if err != nil {
			return keyval.TupElement{}, err
		}
		return keyval.NewTuple(inner), nil
	case scanner.KStampStart:
		return p.parseStamp()
	case scanner.KOther:
		return p.parseLiteral()
	default:
		return keyval.TupElement{}, p.errorf("unexpected token %q in tuple", p.cur.Text)
	}
}

// parseValue parses the value position: everything a tuple element can be
// (minus MaybeMore), plus the `clear` keyword.
func (p *Parser) parseValue() (keyval.Value, error) {
	if p.cur.Kind == scanner.KOther && p.cur.Text == "clear" {
		p.advance()
		return keyval.NewClear(), nil
	}
	el, err := p.parseTupElement()
	if err != nil {
		return keyval.Value{}, err
	}
	if el.Kind == keyval.EKMaybeMore {
		return keyval.Value{}, p.errorf("'...' is not valid in value position")
	}
	return keyval.NewValue(el), nil
}

// parseVariable parses `<` [ TYPE ('|' TYPE)* ] `>`.
func (p *Parser) parseVariable() (keyval.Variable, error) {
	p.advance() // consume '<'
	var types []keyval.ValueType
	if p.cur.Kind != scanner.KVarEnd {
		for {
			if p.cur.Kind != scanner.KOther {
				return keyval.Variable{}, p.errorf("expected a type name, got %q", p.cur.Text)
			}
			t, err := parseValueType(p.cur.Text)
			if err != nil {
				return keyval.Variable{}, p.errorf("%s", err)
			}
			types = append(types, t)
			p.advance()
			if p.cur.Kind == scanner.KVarSep {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur.Kind != scanner.KVarEnd {
		return keyval.Variable{}, p.errorf("expected '>', got %q", p.cur.Text)
	}
	p.advance()
	return keyval.Variable{Types: types}, nil
}

func parseValueType(s string) (keyval.ValueType, error) {
	switch strings.ToLower(s) {
	case "any":
		return keyval.TAny, nil
	case "int":
		return keyval.TInt, nil
	case "uint":
		return keyval.TUint, nil
	case "bool":
		return keyval.TBool, nil
	case "float":
		return keyval.TFloat, nil
	case "string":
		return keyval.TString, nil
	case "bytes":
		return keyval.TBytes, nil
	case "uuid":
		return keyval.TUuid, nil
	case "tuple":
		return keyval.TTuple, nil
	case "vstamp":
		return keyval.TVStamp, nil
	default:
		return "", fmt.Errorf("unknown variable type %q", s)
	}
}

// parseString parses `"` ... `"`: every token up to the next `"` is taken
// literally. No escape sequences are recognized, so a string literal
// cannot contain `"`.
func (p *Parser) parseString() (string, error) {
	p.advance() // consume opening '"'
	var b strings.Builder
	for {
		switch p.cur.Kind {
		case scanner.KEnd:
			return "", p.errorf("unterminated string literal")
		case scanner.KStrMark:
			p.advance()
			return b.String(), nil
		default:
			b.WriteString(p.cur.Text)
			p.advance()
		}
	}
}

// parseStamp parses either `#<decimal>` (a VStampFuture literal, the only
// form a caller would hand-author before a write) or `#stamp:<24 hex
// chars>` (a concrete, already commit-assigned VStamp — the form Format
// emits for a read result, so Parse(Format(x)) round-trips a VStamp key
// instead of only ever being able to print one).
func (p *Parser) parseStamp() (keyval.TupElement, error) {
	p.advance() // consume '#'
	if p.cur.Kind == scanner.KOther && p.cur.Text == "stamp" {
		return p.parseConcreteStamp()
	}
	if p.cur.Kind != scanner.KOther {
		return keyval.TupElement{}, p.errorf("expected a user-version after '#', got %q", p.cur.Text)
	}
	n, err := strconv.ParseUint(p.cur.Text, 10, 16)
	if err != nil {
		return keyval.TupElement{}, p.errorf("invalid versionstamp user-version %q", p.cur.Text)
	}
	p.advance()
	return keyval.NewVStampFuture(uint16(n)), nil
}

// parseConcreteStamp parses the `stamp:<24 hex chars>` tail of a `#stamp:`
// literal into a full 12-byte VStamp (10-byte TxVersion, 2-byte
// big-endian UserVersion).
func (p *Parser) parseConcreteStamp() (keyval.TupElement, error) {
	p.advance() // consume 'stamp'
	if p.cur.Kind != scanner.KStampSep {
		return keyval.TupElement{}, p.errorf("expected ':' after '#stamp', got %q", p.cur.Text)
	}
	p.advance()
	if p.cur.Kind != scanner.KOther {
		return keyval.TupElement{}, p.errorf("expected a hex versionstamp after '#stamp:', got %q", p.cur.Text)
	}
	raw, err := hex.DecodeString(p.cur.Text)
	if err != nil || len(raw) != 12 {
		return keyval.TupElement{}, p.errorf("invalid versionstamp %q: want 24 hex characters (12 bytes)", p.cur.Text)
	}
	p.advance()

	var vs keyval.VStamp
	copy(vs.TxVersion[:], raw[:10])
	vs.UserVersion = binary.BigEndian.Uint16(raw[10:])
	return keyval.NewVStamp(vs), nil
}

// parseLiteral parses an Other-token literal: nil, true/false, int, uint
// (trailing 'u' suffix), float, 0x-prefixed bytes, or a UUID.
func (p *Parser) parseLiteral() (keyval.TupElement, error) {
	text := p.cur.Text
	p.advance()

	switch text {
	case "nil":
		return keyval.NewNil(), nil
	case "true":
		return keyval.NewBool(true), nil
	case "false":
		return keyval.NewBool(false), nil
	}

	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		b, err := parseHexBytes(text[2:])
		if err != nil {
			return keyval.TupElement{}, p.errorf("invalid byte literal %q: %s", text, err)
		}
		return keyval.NewBytes(b), nil
	}

	if id, err := uuid.Parse(text); err == nil {
		return keyval.NewUuid(id), nil
	}

	if strings.HasSuffix(text, "u") {
		if u, err := strconv.ParseUint(text[:len(text)-1], 10, 64); err == nil {
			return keyval.NewUint(u), nil
		}
	}

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return keyval.NewInt(i), nil
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return keyval.NewFloat(f), nil
	}

	return keyval.TupElement{}, p.errorf("unrecognized literal %q", text)
}

func parseHexBytes(hex string) ([]byte, error) {
	if len(hex)%2 != 0 {
		return nil, fmt.Errorf("odd number of hex digits")
	}
	out := make([]byte, len(hex)/2)
	for i := 0; i < len(out); i++ {
		var b byte
		for j := 0; j < 2; j++ {
			c := hex[i*2+j]
			b <<= 4
			switch {
			case c >= '0' && c <= '9':
				b |= c - '0'
			case c >= 'a' && c <= 'f':
				b |= c - 'a' + 10
			case c >= 'A' && c <= 'F':
				b |= c - 'A' + 10
			default:
				return nil, fmt.Errorf("invalid hex digit %q", c)
			}
		}
		out[i] = b
	}
	return out, nil
}
