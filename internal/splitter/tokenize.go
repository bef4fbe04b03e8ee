package splitter

import "strings"

// Delimiters separate round names in the "Interview Rounds" field.
const Delimiters = "|,"

// Tokenize splits a rounds field on pipe or comma, trims each token and drops empty ones.
// Order and literal repeats are preserved.
func Tokenize(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(Delimiters, r)
	})
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
