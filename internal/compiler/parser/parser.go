package parser

import (
	"strings"

	cerrors "github.com/facet-lang/facet/compiler/errors"
	"github.com/facet-lang/facet/internal/compiler/lexer"
)

// Parser transforms a token stream into a Document (facet tree).
type Parser struct {
	tokens []lexer.Token
	pos    int
	errs   []*cerrors.FacetError
}

// New creates a Parser over tokens (as produced by lexer.ScanTokens).
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the full token stream into a Document.
func (p *Parser) Parse() (*Document, []*cerrors.FacetError) {
	doc := &Document{}
	for !p.isAtEnd() {
		if p.match(lexer.NEWLINE) {
			continue
		}
		if p.check(lexer.AT) {
			if f := p.parseFacet(); f != nil {
				doc.Facets = append(doc.Facets, f)
			}
			continue
		}
		p.errorTok(cerrors.ErrUnexpectedToken, p.peek(), "expected a facet, got %s", p.peek().Type)
		p.advance()
	}
	return doc, p.errs
}

func (p *Parser) parseFacet() *Facet {
	atTok := p.advance() // '@'
	nameTok := p.consume(lexer.IDENT, cerrors.ErrExpectedIdentifier, "expected facet name")
	if nameTok == nil {
		p.synchronize()
		return nil
	}
	facet := &Facet{Name: nameTok.Lexeme, Pos: tokenPos(atTok)}

	if p.match(lexer.AMP) {
		anchorTok := p.consume(lexer.IDENT, cerrors.ErrExpectedIdentifier, "expected anchor name after '&'")
		if anchorTok != nil {
			facet.AnchorName = anchorTok.Lexeme
		}
	}

	if facet.Name == "import" && p.check(lexer.STRING) {
		tok := p.advance()
		facet.Attrs = []Attr{{Key: "path", Value: p.stringTokenValue(*tok), Pos: tokenPos(*tok)}}
	} else if p.match(lexer.LPAREN) {
		facet.Attrs = p.parseAttrs()
		p.consume(lexer.RPAREN, cerrors.ErrUnexpectedToken, "expected ')' to close attribute list")
	}

	p.consumeNewlineOrEnd()
	facet.Body = p.parseBlock()
	return facet
}

func (p *Parser) parseAttrs() []Attr {
	var attrs []Attr
	seen := map[string]bool{}
	for {
		keyTok := p.consume(lexer.IDENT, cerrors.ErrExpectedIdentifier, "expected attribute name")
		if keyTok == nil {
			break
		}
		p.consume(lexer.EQUAL, cerrors.ErrMalformedAttribute, "expected '=' after attribute name")
		valTok := p.advance()
		val := p.attrLiteralValue(*valTok)

		if seen[keyTok.Lexeme] {
			p.errorTok(cerrors.ErrDuplicateAttribute, *keyTok, "duplicate attribute %q", keyTok.Lexeme)
		}
		seen[keyTok.Lexeme] = true

		if keyTok.Lexeme == "if" && val.Kind != VString {
			p.errorTok(cerrors.ErrExprUnquotedIf, *valTok, "if condition must be a quoted string")
		}
		if val.Kind == VString && valueInterpolates(*valTok) {
			p.errorTok(cerrors.ErrAttributeInterpolation, *valTok, "attribute values may not be interpolated")
		}

		attrs = append(attrs, Attr{Key: keyTok.Lexeme, Value: val, Pos: tokenPos(*keyTok)})
		if !p.match(lexer.COMMA) {
			break
		}
	}
	return attrs
}

// valueInterpolates reports whether a STRING token is either the $/${...}
// shorthand or a quoted literal containing a {{...}} template marker; both
// are rejected in attribute position (spec §4.2, error F304).
func valueInterpolates(tok lexer.Token) bool {
	if strings.HasPrefix(tok.Lexeme, "$") {
		return true
	}
	if s, ok := tok.Literal.(string); ok {
		return strings.Contains(s, "{{")
	}
	return false
}

func (p *Parser) attrLiteralValue(tok lexer.Token) *Value {
	switch tok.Type {
	case lexer.STRING:
		return &Value{Kind: VString, Str: tok.Literal.(string), Pos: tokenPos(tok)}
	case lexer.NUMBER:
		return numberValue(tok)
	case lexer.BOOL:
		return &Value{Kind: VBool, Bool: tok.Literal.(bool), Pos: tokenPos(tok)}
	case lexer.NULL:
		return &Value{Kind: VNull, Pos: tokenPos(tok)}
	case lexer.IDENT:
		return &Value{Kind: VIdent, Str: tok.Lexeme, Pos: tokenPos(tok)}
	default:
		p.errorTok(cerrors.ErrMalformedAttribute, tok, "invalid attribute value")
		return &Value{Kind: VNull, Pos: tokenPos(tok)}
	}
}

func (p *Parser) stringTokenValue(tok lexer.Token) *Value {
	s, _ := tok.Literal.(string)
	return &Value{Kind: VString, Str: s, Pos: tokenPos(tok)}
}

func numberValue(tok lexer.Token) *Value {
	switch n := tok.Literal.(type) {
	case int64:
		return &Value{Kind: VInt, Int: n, Pos: tokenPos(tok)}
	case float64:
		return &Value{Kind: VFloat, Float: n, Pos: tokenPos(tok)}
	default:
		return &Value{Kind: VInt, Pos: tokenPos(tok)}
	}
}

// parseBlock implements: block := INDENT entry+ DEDENT. When the facet header
// is not followed by an INDENT (bodyless facets such as @import), the body is
// empty; entries at the header's own indentation level are not taken as the
// facet's body.
func (p *Parser) parseBlock() []Entry {
	if !p.match(lexer.INDENT) {
		return nil
	}
	var entries []Entry
	for !p.check(lexer.DEDENT) && !p.isAtEnd() {
		if p.match(lexer.NEWLINE) {
			continue
		}
		if e := p.parseEntry(); e != nil {
			entries = append(entries, e)
		}
	}
	p.consume(lexer.DEDENT, cerrors.ErrUnexpectedEOF, "expected dedent to close block")
	return entries
}

func (p *Parser) parseEntry() Entry {
	switch {
	case p.check(lexer.DASH):
		return p.parseListItem()
	case p.check(lexer.IDENT) && p.peekAt(1).Type == lexer.COLON:
		return p.parseKV()
	default:
		tok := p.peek()
		p.errorTok(cerrors.ErrUnexpectedToken, tok, "unexpected token in block body: %q", tok.Lexeme)
		p.advance()
		return nil
	}
}

func (p *Parser) parseKV() Entry {
	keyTok := p.advance()
	p.consume(lexer.COLON, cerrors.ErrExpectedColon, "expected ':' after key %q", keyTok.Lexeme)

	if p.check(lexer.NEWLINE) {
		p.advance()
		if !p.match(lexer.INDENT) {
			p.errorTok(cerrors.ErrEmptyBlock, *keyTok, "key %q has no value and no indented block", keyTok.Lexeme)
			return &KV{Key: keyTok.Lexeme, Value: &Value{Kind: VNull}, Pos: tokenPos(*keyTok)}
		}
		if p.check(lexer.FENCE) {
			fenceTok := p.advance()
			val := fenceValue(*fenceTok)
			lenses := p.parseLenses()
			p.consumeNewlineOrEnd()
			p.consume(lexer.DEDENT, cerrors.ErrUnexpectedEOF, "expected dedent after fenced value")
			return &KV{Key: keyTok.Lexeme, Value: val, Lenses: lenses, Pos: tokenPos(*keyTok)}
		}
		var entries []Entry
		for !p.check(lexer.DEDENT) && !p.isAtEnd() {
			if p.match(lexer.NEWLINE) {
				continue
			}
			if e := p.parseEntry(); e != nil {
				entries = append(entries, e)
			}
		}
		p.consume(lexer.DEDENT, cerrors.ErrUnexpectedEOF, "expected dedent to close block")
		val := p.collapseEntries(entries, *keyTok)
		return &KV{Key: keyTok.Lexeme, Value: val, Pos: tokenPos(*keyTok)}
	}

	val := p.parseValue()
	lenses := p.parseLenses()
	p.consumeNewlineOrEnd()
	return &KV{Key: keyTok.Lexeme, Value: val, Lenses: lenses, Pos: tokenPos(*keyTok)}
}

func (p *Parser) parseListItem() Entry {
	dashTok := p.advance()
	val := p.parseValue()
	item := &ListItem{Value: val, Pos: tokenPos(*dashTok)}

	if p.match(lexer.LPAREN) {
		ifTok := p.consume(lexer.IDENT, cerrors.ErrUnsupportedListItemAttr, "expected 'if'")
		if ifTok != nil && ifTok.Lexeme != "if" {
			p.errorTok(cerrors.ErrUnsupportedListItemAttr, *ifTok, "unsupported list-item attribute %q", ifTok.Lexeme)
		}
		p.consume(lexer.EQUAL, cerrors.ErrMalformedAttribute, "expected '=' after 'if'")
		exprTok := p.advance()
		if exprTok.Type != lexer.STRING || strings.HasPrefix(exprTok.Lexeme, "$") {
			p.errorTok(cerrors.ErrExprUnquotedIf, *exprTok, "if condition must be a quoted string")
		} else {
			item.If = exprTok.Literal.(string)
			item.HasIf = true
		}
		p.consume(lexer.RPAREN, cerrors.ErrUnexpectedToken, "expected ')' after if condition")
	}

	item.Lenses = p.parseLenses()
	p.consumeNewlineOrEnd()
	return item
}

// collapseEntries implements the block-collapse rule: all-list-item bodies
// become a sequence, all-KV bodies become a map, and mixing is an error
// (spec §4.2).
func (p *Parser) collapseEntries(entries []Entry, keyTok lexer.Token) *Value {
	if len(entries) == 0 {
		return &Value{Kind: VBlockList, Pos: tokenPos(keyTok)}
	}
	hasKV, hasList := false, false
	seen := map[string]bool{}
	for _, e := range entries {
		switch t := e.(type) {
		case *KV:
			hasKV = true
			if seen[t.Key] {
				p.errorTok(cerrors.ErrDuplicateKey, keyTok, "duplicate key %q", t.Key)
			}
			seen[t.Key] = true
		case *ListItem:
			hasList = true
		}
	}
	if hasKV && hasList {
		p.errorTok(cerrors.ErrMixedBlockBody, keyTok, "block mixes list items and key/value entries")
		return &Value{Kind: VBlockMap, Body: entries, Pos: tokenPos(keyTok)}
	}
	if hasList {
		return &Value{Kind: VBlockList, Body: entries, Pos: tokenPos(keyTok)}
	}
	return &Value{Kind: VBlockMap, Body: entries, Pos: tokenPos(keyTok)}
}

func fenceValue(tok lexer.Token) *Value {
	return &Value{Kind: VFence, FenceBody: tok.Literal.(string), FenceLang: tok.FenceLang, Pos: tokenPos(tok)}
}

// parseValue implements the `value` production.
func (p *Parser) parseValue() *Value {
	tok := p.peek()
	switch tok.Type {
	case lexer.STRING:
		p.advance()
		return &Value{Kind: VString, Str: tok.Literal.(string), Pos: tokenPos(tok)}
	case lexer.NUMBER:
		p.advance()
		return numberValue(tok)
	case lexer.BOOL:
		p.advance()
		return &Value{Kind: VBool, Bool: tok.Literal.(bool), Pos: tokenPos(tok)}
	case lexer.NULL:
		p.advance()
		return &Value{Kind: VNull, Pos: tokenPos(tok)}
	case lexer.IDENT:
		p.advance()
		return &Value{Kind: VIdent, Str: tok.Lexeme, Pos: tokenPos(tok)}
	case lexer.FENCE:
		p.advance()
		return fenceValue(tok)
	case lexer.LBRACE:
		return p.parseInlineMap()
	case lexer.LBRACKET:
		return p.parseInlineList()
	case lexer.AMP:
		p.advance()
		nameTok := p.consume(lexer.IDENT, cerrors.ErrExpectedIdentifier, "expected anchor name after '&'")
		inner := p.parseValue()
		name := ""
		if nameTok != nil {
			name = nameTok.Lexeme
		}
		return &Value{Kind: VAnchorDef, AnchorName: name, AnchorValue: inner, Pos: tokenPos(tok)}
	case lexer.STAR:
		p.advance()
		nameTok := p.consume(lexer.IDENT, cerrors.ErrExpectedIdentifier, "expected alias name after '*'")
		name := ""
		if nameTok != nil {
			name = nameTok.Lexeme
		}
		return &Value{Kind: VAliasRef, AnchorName: name, Pos: tokenPos(tok)}
	default:
		p.errorTok(cerrors.ErrInvalidInlineValue, tok, "expected a value, got %s", tok.Type)
		p.advance()
		return &Value{Kind: VNull, Pos: tokenPos(tok)}
	}
}

func (p *Parser) parseInlineMap() *Value {
	openTok := p.advance() // '{'
	var entries []MapEntry
	seen := map[string]bool{}
	if !p.check(lexer.RBRACE) {
		for {
			keyTok := p.consume(lexer.IDENT, cerrors.ErrExpectedIdentifier, "expected key in inline map")
			p.consume(lexer.COLON, cerrors.ErrExpectedColon, "expected ':' in inline map")
			val := p.parseValue()
			if keyTok != nil {
				if seen[keyTok.Lexeme] {
					p.errorTok(cerrors.ErrDuplicateKey, *keyTok, "duplicate key %q", keyTok.Lexeme)
				}
				seen[keyTok.Lexeme] = true
				entries = append(entries, MapEntry{Key: keyTok.Lexeme, Value: val})
			}
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.consume(lexer.RBRACE, cerrors.ErrUnexpectedToken, "expected '}' to close inline map")
	return &Value{Kind: VMap, Map: entries, Pos: tokenPos(openTok)}
}

func (p *Parser) parseInlineList() *Value {
	openTok := p.advance() // '['
	var items []*Value
	if !p.check(lexer.RBRACKET) {
		for {
			items = append(items, p.parseValue())
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.consume(lexer.RBRACKET, cerrors.ErrUnexpectedToken, "expected ']' to close inline list")
	return &Value{Kind: VList, List: items, Pos: tokenPos(openTok)}
}

// parseLenses implements: lenses := ( '|>' IDENT [ '(' lens_args ')' ] )*
func (p *Parser) parseLenses() []LensCall {
	var lenses []LensCall
	for p.match(lexer.PIPE) {
		nameTok := p.consume(lexer.IDENT, cerrors.ErrLensUnknown, "expected lens name after '|>'")
		if nameTok == nil {
			break
		}
		call := LensCall{Name: nameTok.Lexeme, Pos: tokenPos(*nameTok)}
		if p.match(lexer.LPAREN) {
			if !p.check(lexer.RPAREN) {
				for {
					call.Args = append(call.Args, p.parseLensArg())
					if !p.match(lexer.COMMA) {
						break
					}
				}
			}
			p.consume(lexer.RPAREN, cerrors.ErrUnexpectedToken, "expected ')' to close lens arguments")
		}
		lenses = append(lenses, call)
	}
	return lenses
}

func (p *Parser) parseLensArg() LensArg {
	if p.check(lexer.IDENT) && p.peekAt(1).Type == lexer.EQUAL {
		nameTok := p.advance()
		p.advance() // '='
		valTok := p.advance()
		return LensArg{Name: nameTok.Lexeme, Value: p.attrLiteralValue(*valTok)}
	}
	valTok := p.advance()
	return LensArg{Value: p.attrLiteralValue(*valTok)}
}

// --- token stream helpers ---

func (p *Parser) isAtEnd() bool { return p.peek().Type == lexer.EOF }
func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}
func (p *Parser) peekAt(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}
func (p *Parser) advance() *lexer.Token {
	tok := &p.tokens[p.pos]
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}
func (p *Parser) check(t lexer.TokenType) bool { return p.peek().Type == t }
func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}
func (p *Parser) consume(t lexer.TokenType, code string, format string, args ...any) *lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.errorTok(code, p.peek(), format, args...)
	return nil
}
func (p *Parser) consumeNewlineOrEnd() {
	if p.check(lexer.NEWLINE) {
		p.advance()
		return
	}
	if p.check(lexer.DEDENT) || p.check(lexer.EOF) || p.check(lexer.AT) {
		return
	}
	p.errorTok(cerrors.ErrUnexpectedToken, p.peek(), "expected end of line, got %s", p.peek().Type)
}

func (p *Parser) errorTok(code string, tok lexer.Token, format string, args ...any) {
	p.errs = append(p.errs, cerrors.New(code, cerrors.Position{File: tok.File, Line: tok.Line, Column: tok.Column}, format, args...))
}

// synchronize skips tokens until the next facet header or EOF, used to
// recover after a malformed facet header so later facets still parse.
func (p *Parser) synchronize() {
	for !p.isAtEnd() && !p.check(lexer.AT) {
		p.advance()
	}
}
