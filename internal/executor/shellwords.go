package executor

import "errors"

var errUnterminatedQuote = errors.New("unterminated quote")

// splitWords splits a command string into words with POSIX-ish quoting:
// single quotes are literal, double quotes allow backslash escapes, a
// backslash outside quotes escapes the next rune. Operators are not
// interpreted here; commands containing shell metacharacters never reach the
// direct-execution path (the permission classifier forces them through
// confirmation, and builtins go through a real shell).
func splitWords(command string) ([]string, error) {
	var (
		words   []string
		current []rune
		inWord  bool
	)

	runes := []rune(command)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case ' ', '\t', '\n':
			if inWord {
				words = append(words, string(current))
				current = current[:0]
				inWord = false
			}
		case '\'':
			inWord = true
			i++
			for {
				if i >= len(runes) {
					return nil, errUnterminatedQuote
				}
				if runes[i] == '\'' {
					break
				}
				current = append(current, runes[i])
				i++
			}
		case '"':
			inWord = true
			i++
			for {
				if i >= len(runes) {
					return nil, errUnterminatedQuote
				}
				if runes[i] == '"' {
					break
				}
				if runes[i] == '\\' && i+1 < len(runes) {
					next := runes[i+1]
					if next == '"' || next == '\\' || next == '$' || next == '`' {
						i++
						current = append(current, runes[i])
						i++
						continue
					}
				}
				current = append(current, runes[i])
				i++
			}
		case '\\':
			inWord = true
			if i+1 < len(runes) {
				i++
				current = append(current, runes[i])
			}
		default:
			inWord = true
			current = append(current, r)
		}
	}

	if inWord {
		words = append(words, string(current))
	}
	return words, nil
}
