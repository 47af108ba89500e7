// Package engine contains the query lexer used by the fallback parser.
//
// What: A minimal, whitespace- and comment-aware tokenizer that recognizes
// identifiers, keywords, numeric and string literals, and symbols.
// How: Single-pass scanner supporting -- and /* */ comments, uppercasing
// keywords, and preserving identifier case. Keywords are a fixed allow-list
// covering exactly the clauses the fallback evaluator understands.
package engine

import (
	"strings"
	"unicode"
)

type tokenType int

const (
	tEOF tokenType = iota
	tIdent
	tNumber
	tString
	tSymbol
	tKeyword
)

func (t tokenType) String() string {
	switch t {
	case tEOF:
		return "end of input"
	case tIdent:
		return "identifier"
	case tNumber:
		return "number"
	case tString:
		return "string"
	case tSymbol:
		return "symbol"
	case tKeyword:
		return "keyword"
	}
	return "token"
}

type token struct {
	Typ tokenType
	Val string
	Pos int
}

type lexer struct {
	s   string
	pos int
}

func newLexer(s string) *lexer { return &lexer{s: s} }

func (lx *lexer) peek() byte {
	if lx.pos >= len(lx.s) {
		return 0
	}
	return lx.s[lx.pos]
}

func (lx *lexer) peekN(n int) byte {
	p := lx.pos + n
	if p >= len(lx.s) {
		return 0
	}
	return lx.s[p]
}

func (lx *lexer) skipWS() {
	for lx.pos < len(lx.s) {
		r := rune(lx.s[lx.pos])
		if unicode.IsSpace(r) {
			lx.pos++
			continue
		}
		// -- comment
		if r == '-' && lx.peekN(1) == '-' {
			lx.pos += 2
			for lx.pos < len(lx.s) && lx.s[lx.pos] != '\n' {
				lx.pos++
			}
			continue
		}
		// /* block */
		if r == '/' && lx.peekN(1) == '*' {
			lx.pos += 2
			for lx.pos < len(lx.s) {
				if lx.s[lx.pos] == '*' && lx.peekN(1) == '/' {
					lx.pos += 2
					break
				}
				lx.pos++
			}
			continue
		}
		return
	}
}

func (lx *lexer) nextToken() token {
	lx.skipWS()
	start := lx.pos
	if start >= len(lx.s) {
		return token{Typ: tEOF, Pos: start}
	}
	r := rune(lx.peek())
	switch {
	case r == '\'' || r == '"':
		return lx.tokenizeString(start, lx.peek())
	case isDigit(r):
		return lx.tokenizeNumber(start)
	case unicode.IsLetter(r) || r == '_':
		return lx.tokenizeIdentOrKeyword(start)
	}
	return lx.tokenizeSymbol(start)
}

func (lx *lexer) tokenizeString(start int, quote byte) token {
	lx.pos++ // opening quote
	var val strings.Builder
	for lx.pos < len(lx.s) {
		ch := lx.s[lx.pos]
		lx.pos++
		if ch == quote {
			if lx.peek() == quote {
				lx.pos++
				val.WriteByte(quote)
				continue
			}
			break
		}
		val.WriteByte(ch)
	}
	return token{Typ: tString, Val: val.String(), Pos: start}
}

func (lx *lexer) tokenizeNumber(start int) token {
	dot := false
	for lx.pos < len(lx.s) {
		ch := rune(lx.s[lx.pos])
		if isDigit(ch) || (!dot && ch == '.' && isDigit(rune(lx.peekN(1)))) {
			if ch == '.' {
				dot = true
			}
			lx.pos++
			continue
		}
		break
	}
	return token{Typ: tNumber, Val: lx.s[start:lx.pos], Pos: start}
}

func (lx *lexer) tokenizeIdentOrKeyword(start int) token {
	for lx.pos < len(lx.s) {
		ch := rune(lx.s[lx.pos])
		if unicode.IsLetter(ch) || isDigit(ch) || ch == '_' {
			lx.pos++
			continue
		}
		break
	}
	val := lx.s[start:lx.pos]
	if up := strings.ToUpper(val); isKeyword(up) {
		return token{Typ: tKeyword, Val: up, Pos: start}
	}
	return token{Typ: tIdent, Val: val, Pos: start}
}

func (lx *lexer) tokenizeSymbol(start int) token {
	a := lx.s[lx.pos]
	lx.pos++
	switch a {
	case '<', '>', '!':
		if lx.peek() == '=' {
			lx.pos++
			return token{Typ: tSymbol, Val: string(a) + "=", Pos: start}
		}
	}
	return token{Typ: tSymbol, Val: string(a), Pos: start}
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isKeyword(up string) bool {
	switch up {
	case "SELECT", "FROM", "WHERE", "GROUP", "ORDER", "BY", "ASC", "DESC", "LIMIT", "AND", "OR":
		return true
	}
	return false
}
