// Package directive detects the [RUN:...] control directive embedded in
// model output. The grammar has exactly one production, so plain string
// scanning is used instead of a regexp: an opening bracket, the literal
// keyword RUN (case-sensitive), an optional colon, optional whitespace,
// one or more non-']' characters, and a closing bracket.
package directive

import "strings"

// Keyword is the directive tag. Both "[RUN:cmd]" and "[RUN cmd]" are
// accepted.
const Keyword = "RUN"

// lookback bounds how far PossiblePrefixStart searches from the end of
// the buffer. The open bracket plus keyword and colon is at most 5
// bytes, so 10 is comfortably past any partially received tag.
const lookback = 10

// Directive is a complete, extracted command request.
type Directive struct {
	Command string
}

// FindComplete returns the leftmost complete directive in buf, or false
// if none is present. The argument stops at the first closing bracket;
// commands containing a literal ']' are not supported. A message carries
// at most one actionable directive, so only the first match counts. A
// tag whose argument is empty after trimming (e.g. "[RUN:]") is not a
// directive.
func FindComplete(buf string) (Directive, bool) {
	sp, ok := findSpan(buf)
	if !ok {
		return Directive{}, false
	}
	return Directive{Command: sp.command}, true
}

// PossiblePrefixStart examines only the trailing bytes of buf and returns
// the index of an open bracket whose suffix is a prefix of the directive
// tag ("[", "[R", "[RU", "[RUN", "[RUN:", or a longer unterminated tag).
// A non-negative index signals that content from there on must not be
// revealed yet: more bytes may still complete a directive. Returns -1
// when the tail cannot become one.
func PossiblePrefixStart(buf string) int {
	start := len(buf) - lookback
	if start < 0 {
		start = 0
	}
	open := strings.LastIndexByte(buf[start:], '[')
	if open < 0 {
		return -1
	}
	idx := start + open
	tail := buf[idx+1:]
	if len(tail) < len(Keyword) {
		if strings.HasPrefix(Keyword, tail) {
			return idx
		}
		return -1
	}
	// The whole keyword is present; the tag stays possible until its
	// closing bracket arrives (the complete case is FindComplete's job).
	if strings.HasPrefix(tail, Keyword) {
		return idx
	}
	return -1
}

// Strip removes every complete directive from s. Stripping a string that
// contains no directive returns it unchanged; otherwise the result is
// trimmed of surrounding whitespace.
func Strip(s string) string {
	out := s
	for {
		sp, ok := findSpan(out)
		if !ok {
			break
		}
		out = out[:sp.start] + out[sp.end:]
	}
	if out == s {
		return s
	}
	return strings.TrimSpace(out)
}

// span is the byte range of a complete directive plus its trimmed
// argument.
type span struct {
	start, end int
	command    string
}

// findSpan locates the leftmost complete directive in buf, resuming the
// scan past bracket-looking substrings that do not qualify.
func findSpan(buf string) (span, bool) {
	base := 0
	for {
		open := strings.Index(buf[base:], "["+Keyword)
		if open < 0 {
			return span{}, false
		}
		open += base
		argStart := open + 1 + len(Keyword)
		rest := buf[argStart:]
		if strings.HasPrefix(rest, ":") {
			rest = rest[1:]
			argStart++
		}
		close := strings.IndexByte(rest, ']')
		if close < 0 {
			return span{}, false
		}
		cmd := strings.TrimSpace(rest[:close])
		if cmd == "" {
			base = open + 1
			continue
		}
		return span{start: open, end: argStart + close + 1, command: cmd}, true
	}
}
