// Package natsort orders file names the way people expect: embedded numbers
// compare by value ("img2" < "img10") and letters compare case-insensitively.
package natsort

import (
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TokenKind distinguishes numeric runs from text runs.
type TokenKind uint8

const (
	Text TokenKind = iota
	Numeric
)

// Token is one run of a tokenized name.
type Token struct {
	Kind TokenKind
	// Text holds the lowercased run for Text tokens.
	Text string
	// Num is the parsed value for Numeric tokens, saturated at MaxUint64.
	Num uint64
	// Digits is the length of the digit run including leading zeros.
	Digits int
	// sig is the digit run without leading zeros, used so that values
	// beyond uint64 still compare by magnitude.
	sig string
}

// Key is a precomputed sort key for a file name.
type Key struct {
	tokens []Token
	ext    string
	lower  string
	name   string
}

func isSeparator(c byte) bool {
	return c == '-' || c == '_' || c == ' ' || c == '.'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Tokenize splits name on separators and digit/non-digit boundaries.
// Separators only delimit runs and produce no token.
func Tokenize(name string) []Token {
	var tokens []Token
	i := 0
	for i < len(name) {
		c := name[i]
		switch {
		case isSeparator(c):
			i++
		case isDigit(c):
			start := i
			for i < len(name) && isDigit(name[i]) {
				i++
			}
			tokens = append(tokens, numericToken(name[start:i]))
		default:
			start := i
			for i < len(name) && !isDigit(name[i]) && !isSeparator(name[i]) {
				i++
			}
			tokens = append(tokens, Token{Kind: Text, Text: strings.ToLower(name[start:i])})
		}
	}
	return tokens
}

func numericToken(run string) Token {
	sig := strings.TrimLeft(run, "0")
	n, err := strconv.ParseUint(run, 10, 64)
	if err != nil {
		n = math.MaxUint64
	}
	return Token{Kind: Numeric, Num: n, Digits: len(run), sig: sig}
}

// NewKey builds the key for a base file name. The stem is tokenized; the
// extension only takes part in tie-breaking.
func NewKey(name string) Key {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return Key{
		tokens: Tokenize(stem),
		ext:    strings.ToLower(ext),
		lower:  strings.ToLower(name),
		name:   name,
	}
}

// Tokens returns the key's token sequence.
func (k Key) Tokens() []Token {
	return k.tokens
}

// Name returns the original name the key was built from.
func (k Key) Name() string {
	return k.name
}

func compareTokens(a, b Token) int {
	if a.Kind != b.Kind {
		// text before numbers
		if a.Kind == Text {
			return -1
		}
		return 1
	}
	if a.Kind == Text {
		return strings.Compare(a.Text, b.Text)
	}
	if len(a.sig) != len(b.sig) {
		if len(a.sig) < len(b.sig) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.sig, b.sig); c != 0 {
		return c
	}
	switch {
	case a.Digits < b.Digits:
		return -1
	case a.Digits > b.Digits:
		return 1
	}
	return 0
}

// Compare returns -1, 0 or +1. It only returns 0 for identical names.
func Compare(a, b Key) int {
	n := len(a.tokens)
	if len(b.tokens) < n {
		n = len(b.tokens)
	}
	for i := 0; i < n; i++ {
		if c := compareTokens(a.tokens[i], b.tokens[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a.tokens) < len(b.tokens):
		return -1
	case len(a.tokens) > len(b.tokens):
		return 1
	}
	if c := strings.Compare(a.ext, b.ext); c != 0 {
		return c
	}
	if c := strings.Compare(a.lower, b.lower); c != 0 {
		return c
	}
	switch {
	case len(a.name) < len(b.name):
		return -1
	case len(a.name) > len(b.name):
		return 1
	}
	return strings.Compare(a.name, b.name)
}

// Less reports whether name a sorts before name b.
func Less(a, b string) bool {
	return Compare(NewKey(a), NewKey(b)) < 0
}

// Sort orders paths by their base names. Paths sharing a base name are
// ordered by the full path so the result is deterministic.
func Sort(paths []string) {
	keys := make(map[string]Key, len(paths))
	for _, p := range paths {
		keys[p] = NewKey(filepath.Base(p))
	}
	sort.SliceStable(paths, func(i, j int) bool {
		if c := Compare(keys[paths[i]], keys[paths[j]]); c != 0 {
			return c < 0
		}
		return paths[i] < paths[j]
	})
}
