package textnorm

import "strings"

// Token is a normalized word and its 0-based position in its sequence.
type Token struct {
	Text string
	Pos  int
}

// Tokenize splits normalized text on whitespace. Apostrophes never split a
// token, so a contraction stays a single unit.
func Tokenize(normalized string) []Token {
	fields := strings.Fields(normalized)
	tokens := make([]Token, len(fields))
	for i, f := range fields {
		tokens[i] = Token{Text: f, Pos: i}
	}
	return tokens
}

// Tokens normalizes raw and returns its token sequence.
func Tokens(raw string) []Token {
	return Tokenize(Normalize(raw))
}

// Words returns the text of each token.
func Words(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}
