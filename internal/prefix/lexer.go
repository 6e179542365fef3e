package prefix

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPName
	tokBlank
	tokVar
	tokIRI
	tokString
	tokNumber
	tokLang
	tokSubqueryRef
	tokParam
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int

	// prefix and local are set for tokPName.
	prefix string
	local  string
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && strings.EqualFold(t.text, text)
}

// LexError reports input the lexer cannot tokenize.
type LexError struct {
	Pos     int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Pos, e.Message)
}

// TrimTrailingComments drops the comments and whitespace after the last
// token of query. A query that does not lex is only right-trimmed.
func TrimTrailingComments(query string) string {
	tokens, err := lex(query)
	if err != nil || len(tokens) == 0 {
		return strings.TrimRight(query, " \t\r\n")
	}
	return query[:tokens[len(tokens)-1].end]
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

// lex tokenizes a SPARQL text. Comments and whitespace are dropped.
func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.src) {
			return l.tokens, nil
		}
		if err := l.next(); err != nil {
			return l.tokens, err
		}
	}
}

func (l *lexer) emit(kind tokenKind, start int) {
	l.tokens = append(l.tokens, token{kind: kind, text: l.src[start:l.pos], start: start, end: l.pos})
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) next() error {
	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == '{' && l.peek(1) == '{':
		if end := l.placeholderEnd(l.pos); end > 0 {
			l.pos = end
			l.emit(tokParam, start)
			return nil
		}
		l.pos++
		l.emit(tokPunct, start)
		return nil
	case c == '"' || c == '\'':
		return l.lexString()
	case c == '<':
		if l.lexIRI() {
			return nil
		}
		l.pos++
		if l.peek(0) == '=' {
			l.pos++
		}
		l.emit(tokPunct, start)
		return nil
	case c == '?' || c == '$':
		l.pos++
		if l.readVarName() == 0 {
			l.emit(tokPunct, start)
			return nil
		}
		l.emit(tokVar, start)
		return nil
	case c == '%':
		l.pos++
		if l.readVarName() == 0 {
			l.emit(tokPunct, start)
			return nil
		}
		l.emit(tokSubqueryRef, start)
		return nil
	case c == '@':
		l.pos++
		for l.pos < len(l.src) && (isASCIILetter(l.src[l.pos]) || isDigit(l.src[l.pos]) || l.src[l.pos] == '-') {
			l.pos++
		}
		l.emit(tokLang, start)
		return nil
	case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
		l.lexNumber()
		return nil
	case c == ':':
		l.pos++
		l.readLocal()
		l.emitPName(start, start)
		return nil
	case c == '_' && l.peek(1) == ':':
		l.pos += 2
		l.readLocal()
		l.emit(tokBlank, start)
		return nil
	}

	if r, _ := utf8.DecodeRuneInString(l.src[l.pos:]); isNameStart(r) {
		l.readName()
		l.trimTrailingDots(start)
		if l.peek(0) == ':' {
			colon := l.pos
			l.pos++
			l.readLocal()
			l.emitPName(start, colon)
			return nil
		}
		l.emit(tokWord, start)
		return nil
	}

	l.lexPunct()
	return nil
}

func (l *lexer) emitPName(start, colon int) {
	l.tokens = append(l.tokens, token{
		kind:   tokPName,
		text:   l.src[start:l.pos],
		start:  start,
		end:    l.pos,
		prefix: l.src[start:colon],
		local:  l.src[colon+1 : l.pos],
	})
}

// placeholderEnd returns the offset after a {{ name }} placeholder at pos, or 0.
func (l *lexer) placeholderEnd(pos int) int {
	loc := placeholderAt.FindStringIndex(l.src[pos:])
	if loc == nil {
		return 0
	}
	return pos + loc[1]
}

func (l *lexer) readName() int {
	n := 0
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isNameChar(r) {
			break
		}
		l.pos += size
		n++
	}
	return n
}

// readVarName consumes a variable or named-subquery name.
func (l *lexer) readVarName() int {
	n := 0
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		l.pos += size
		n++
	}
	return n
}

// readLocal consumes the local part of a prefixed name. A trailing dot is the
// triple terminator, not part of the name.
func (l *lexer) readLocal() {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos += 2
			continue
		}
		if c == '%' && l.pos+2 < len(l.src) && isHex(l.src[l.pos+1]) && isHex(l.src[l.pos+2]) {
			l.pos += 3
			continue
		}
		if c == ':' {
			l.pos++
			continue
		}
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isNameChar(r) {
			break
		}
		l.pos += size
	}
	l.trimTrailingDots(start)
}

func (l *lexer) trimTrailingDots(start int) {
	for l.pos > start && l.src[l.pos-1] == '.' {
		l.pos--
	}
}

func (l *lexer) lexString() error {
	start := l.pos
	q := l.src[l.pos]
	long := l.peek(1) == q && l.peek(2) == q
	if long {
		l.pos += 3
		delim := strings.Repeat(string(q), 3)
		for l.pos < len(l.src) {
			if l.src[l.pos] == '\\' {
				l.pos += 2
				continue
			}
			if strings.HasPrefix(l.src[l.pos:], delim) {
				l.pos += 3
				l.emit(tokString, start)
				return nil
			}
			l.pos++
		}
		return &LexError{Pos: start, Message: "unterminated long string"}
	}

	l.pos++
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '\\':
			l.pos += 2
			continue
		case '\n':
			return &LexError{Pos: start, Message: "newline in string literal"}
		case q:
			l.pos++
			l.emit(tokString, start)
			return nil
		}
		l.pos++
	}
	return &LexError{Pos: start, Message: "unterminated string literal"}
}

// lexIRI consumes <...> when the text forms an IRI reference. Placeholders
// are allowed inside. Returns false when '<' is an operator: after an
// operand, a variable or a && right behind '<' reads as a comparison.
func (l *lexer) lexIRI() bool {
	start := l.pos
	i := l.pos + 1
	if l.afterOperand() {
		if c := l.peek(1); (c == '?' || c == '$') && isNameStart(rune(l.peek(2))) {
			return false
		}
	}
	for i < len(l.src) {
		c := l.src[i]
		if c == '>' {
			if strings.Contains(l.src[start:i], "&&") {
				return false
			}
			l.pos = i + 1
			l.emit(tokIRI, start)
			return true
		}
		if c == '{' {
			if end := l.placeholderEnd(i); end > 0 {
				i = end
				continue
			}
			return false
		}
		if c <= ' ' || strings.IndexByte("<\"}|^`\\", c) >= 0 {
			return false
		}
		i++
	}
	return false
}

// afterOperand reports whether the previous token ends a value expression.
func (l *lexer) afterOperand() bool {
	if len(l.tokens) == 0 {
		return false
	}
	t := l.tokens[len(l.tokens)-1]
	switch t.kind {
	case tokVar, tokNumber, tokString, tokLang, tokIRI, tokPName, tokParam:
		return true
	case tokPunct:
		return t.text == ")"
	}
	return false
}

func (l *lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if c := l.peek(0); c == 'e' || c == 'E' {
		save := l.pos
		l.pos++
		if c := l.peek(0); c == '+' || c == '-' {
			l.pos++
		}
		if !isDigit(l.peek(0)) {
			l.pos = save
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	l.emit(tokNumber, start)
}

var twoCharPuncts = []string{"^^", "&&", "||", "!=", ">="}

func (l *lexer) lexPunct() {
	start := l.pos
	for _, p := range twoCharPuncts {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			l.emit(tokPunct, start)
			return
		}
	}
	_, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	l.emit(tokPunct, start)
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' || r == '.' || r == '·' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
