// Package shell renders argument vectors as display-safe command strings.
//
// The output is a best-effort shell word format for the "command" field of a
// compilation database. It is meant for tools that show or re-split the
// command, not for feeding back into a shell verbatim.
package shell

import "strings"

// Join escapes each token and joins them with single spaces.
func Join(tokens []string) string {
	escaped := make([]string, len(tokens))
	for i, tok := range tokens {
		escaped[i] = Escape(tok)
	}
	return strings.Join(escaped, " ")
}

// Escape returns the token with backslashes and double quotes
// backslash-escaped, wrapped in double quotes when the token needs quoting.
func Escape(token string) string {
	var sb strings.Builder
	for _, ch := range token {
		if ch == '\\' || ch == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(ch)
	}
	if !needsQuoting(token) {
		return sb.String()
	}
	return `"` + sb.String() + `"`
}

func isReserved(ch rune) bool {
	switch ch {
	case ' ', '$', '%', '&', '(', ')', '[', ']', '{', '}', '*', '|', '<', '>', '@', '?', '!':
		return true
	}
	return false
}

// Scanner states for needsQuoting.
const (
	stateBare = iota
	stateEscaped
	stateDoubleQuoted
	stateSingleQuoted
)

// needsQuoting scans the raw token with a small state machine. A reserved
// character seen in the bare or escaped state forces quoting; so does ending
// inside an escape or an unterminated quote.
func needsQuoting(token string) bool {
	state := stateBare
	for _, ch := range token {
		switch state {
		case stateBare:
			switch {
			case isReserved(ch):
				return true
			case ch == '\\':
				state = stateEscaped
			case ch == '"':
				state = stateDoubleQuoted
			case ch == '\'':
				state = stateSingleQuoted
			}
		case stateEscaped:
			if isReserved(ch) || ch == '\\' {
				return true
			}
			state = stateBare
		case stateDoubleQuoted:
			if ch == '"' {
				state = stateBare
			}
		case stateSingleQuoted:
			if ch == '\'' {
				state = stateBare
			}
		}
	}
	return state != stateBare
}
