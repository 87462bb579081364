package token

import (
	"unicode"
)

type Type int

const (
	Ident Type = iota
	Number
	String
	Char
	Punct
	Invalid
)

func (t Type) String() string {
	switch t {
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case Char:
		return "character"
	case Punct:
		return "punctuation"
	case Invalid:
		return "invalid token"
	}
	return "unknown"
}

type Token struct {
	Value string
	Type  Type
	Line  int
	Col   int
}

// Is reports whether t is the punctuation or keyword s.
func (t Token) Is(s string) bool {
	return (t.Type == Punct || t.Type == Ident) && t.Value == s
}

var multiPunct = []string{"::", "<<", ">>", "&&", "||", "->", "...", "=="}

// Tokenize splits C++ header text into tokens. Comments and preprocessor
// lines are dropped. Unterminated literals and comments produce an Invalid
// token whose Value describes the problem.
func Tokenize(input string) []Token {
	var tokens []Token
	runes := []rune(input)
	line, col := 1, 1
	lineStart := true

	advance := func(n int, i *int) {
		for k := 0; k < n && *i < len(runes); k++ {
			if runes[*i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			*i++
		}
	}

	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\n' {
			lineStart = true
			advance(1, &i)
			continue
		}
		if unicode.IsSpace(r) {
			advance(1, &i)
			continue
		}

		// Preprocessor directive, including backslash continuations
		if r == '#' && lineStart {
			for i < len(runes) && runes[i] != '\n' {
				if runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == '\n' {
					advance(2, &i)
					continue
				}
				advance(1, &i)
			}
			continue
		}
		lineStart = false

		// Line comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '/' {
			for i < len(runes) && runes[i] != '\n' {
				advance(1, &i)
			}
			continue
		}

		// Block comment
		if r == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			startLine, startCol := line, col
			advance(2, &i)
			closed := false
			for i < len(runes) {
				if runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/' {
					advance(2, &i)
					closed = true
					break
				}
				advance(1, &i)
			}
			if !closed {
				tokens = append(tokens, Token{"unterminated block comment", Invalid, startLine, startCol})
			}
			continue
		}

		startLine, startCol := line, col

		// String and character literals
		if r == '"' || r == '\'' {
			quote := r
			typ := String
			if quote == '\'' {
				typ = Char
			}
			advance(1, &i)
			start := i
			for i < len(runes) && runes[i] != quote && runes[i] != '\n' {
				if runes[i] == '\\' {
					advance(1, &i)
				}
				advance(1, &i)
			}
			if i >= len(runes) || runes[i] != quote {
				tokens = append(tokens, Token{"unterminated " + typ.String() + " literal", Invalid, startLine, startCol})
				continue
			}
			tokens = append(tokens, Token{string(runes[start:i]), typ, startLine, startCol})
			advance(1, &i)
			continue
		}

		// Number, with any suffix
		if unicode.IsDigit(r) {
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || unicode.IsLetter(runes[i]) || runes[i] == '.' || runes[i] == '\'') {
				advance(1, &i)
			}
			tokens = append(tokens, Token{string(runes[start:i]), Number, startLine, startCol})
			continue
		}

		// Identifier or keyword
		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				advance(1, &i)
			}
			tokens = append(tokens, Token{string(runes[start:i]), Ident, startLine, startCol})
			continue
		}

		matched := false
		for _, p := range multiPunct {
			if hasPrefix(runes[i:], p) {
				tokens = append(tokens, Token{p, Punct, startLine, startCol})
				advance(len(p), &i)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		tokens = append(tokens, Token{string(r), Punct, startLine, startCol})
		advance(1, &i)
	}

	return tokens
}

func hasPrefix(runes []rune, p string) bool {
	if len(runes) < len(p) {
		return false
	}
	for k := 0; k < len(p); k++ {
		if runes[k] != rune(p[k]) {
			return false
		}
	}
	return true
}
