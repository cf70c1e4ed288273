package notation

import (
	"errors"
	"fmt"

	"github.com/roach88/qtree/internal/ir"
)

// SyntaxError reports malformed notation.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("notation: %s at offset %d", e.Message, e.Pos)
}

// maxTokenValue bounds decoded endpoint and back-reference values so that
// hostile input cannot overflow.
const maxTokenValue = 1 << 30

// Parse converts a postfix string into a Program.
//
// The grammar is:
//
//	expr      = pattern [ "/" transform ]
//	pattern   = { "0" | endpoint | backref | op | "~" }
//	endpoint  = { "A".."Z" } "a".."z"
//	backref   = { "A".."Z" } "0".."9"   (value >= 1)
//	op        = "+" | ">" | "^" | "&" | "!" | "?"
//	transform = { endpoint }
//
// Parse checks stack discipline and back-reference ranges statically, so a
// successful Program always leaves exactly one value on the stack.
func Parse(src string) (*Program, error) {
	prog := &Program{}

	pattern, transform, hasTransform := splitTransform(src)
	if hasTransform {
		tr, err := parseTransform(transform, len(pattern)+1)
		if err != nil {
			return nil, err
		}
		prog.Transform = tr
	}

	depth := 0
	for pos := 0; pos < len(pattern); {
		start := pos
		c := pattern[pos]

		switch {
		case c == '~':
			if depth < 1 {
				return nil, &SyntaxError{Pos: start, Message: "stack underflow on '~'"}
			}
			prog.Instrs = append(prog.Instrs, Instr{Op: OpInvert, Pos: start})
			pos++
			continue

		case ir.FormFromOp(c) != ir.FormNone:
			form := ir.FormFromOp(c)
			if depth < form.Arity() {
				return nil, &SyntaxError{Pos: start, Message: fmt.Sprintf("stack underflow on '%c'", c)}
			}
			depth -= form.Arity() - 1
			prog.Instrs = append(prog.Instrs, Instr{Op: OpOperator, Form: form, Pos: start})
			prog.NumNodes++
			pos++
			continue

		case c == ' ':
			pos++
			continue
		}

		tok, next, err := scanToken(pattern, pos)
		if err != nil {
			return nil, err
		}
		pos = next

		switch tok.kind {
		case tokenZero:
			prog.Instrs = append(prog.Instrs, Instr{Op: OpZero, Pos: start})
		case tokenEndpoint:
			ep := tok.value
			if prog.Transform != nil {
				if ep >= len(prog.Transform) {
					return nil, &SyntaxError{Pos: start, Message: fmt.Sprintf("placeholder %s not covered by transform", EncodeEndpoint(ep))}
				}
				ep = prog.Transform[ep]
			}
			if ep+1 > prog.NumEndpoints {
				prog.NumEndpoints = ep + 1
			}
			prog.Instrs = append(prog.Instrs, Instr{Op: OpEndpoint, Arg: ep, Pos: start})
		case tokenBackRef:
			if tok.value > prog.NumNodes {
				return nil, &SyntaxError{Pos: start, Message: fmt.Sprintf("back-reference %d out of range (%d nodes)", tok.value, prog.NumNodes)}
			}
			prog.Instrs = append(prog.Instrs, Instr{Op: OpBackRef, Arg: tok.value, Pos: start})
		}
		depth++
	}

	if depth != 1 {
		return nil, &SyntaxError{Pos: len(pattern), Message: fmt.Sprintf("expression leaves %d values on the stack", depth)}
	}
	return prog, nil
}

type tokenKind uint8

const (
	tokenZero tokenKind = iota
	tokenEndpoint
	tokenBackRef
)

type token struct {
	kind  tokenKind
	value int
}

// scanToken decodes one endpoint, back-reference or zero token at pos.
func scanToken(s string, pos int) (token, int, error) {
	start := pos
	value := 0
	for pos < len(s) && s[pos] >= 'A' && s[pos] <= 'Z' {
		value = value*26 + int(s[pos]-'A'+1)
		if value > maxTokenValue {
			return token{}, 0, &SyntaxError{Pos: start, Message: "token value too large"}
		}
		pos++
	}
	if pos >= len(s) {
		return token{}, 0, &SyntaxError{Pos: start, Message: "unterminated prefix"}
	}

	c := s[pos]
	switch {
	case c >= 'a' && c <= 'z':
		return token{kind: tokenEndpoint, value: value*26 + int(c-'a')}, pos + 1, nil
	case c >= '0' && c <= '9':
		if value == 0 && c == '0' {
			return token{kind: tokenZero}, pos + 1, nil
		}
		return token{kind: tokenBackRef, value: value*10 + int(c-'0')}, pos + 1, nil
	}
	return token{}, 0, &SyntaxError{Pos: pos, Message: fmt.Sprintf("bad token '%c'", c)}
}

// splitTransform separates "pattern/transform".
func splitTransform(src string) (pattern, transform string, ok bool) {
	for i := 0; i < len(src); i++ {
		if src[i] == '/' {
			return src[:i], src[i+1:], true
		}
	}
	return src, "", false
}

// parseTransform decodes the endpoint list of the side channel. Offsets in
// errors are relative to the whole source.
func parseTransform(s string, base int) ([]int, error) {
	var out []int
	for pos := 0; pos < len(s); {
		tok, next, err := scanToken(s, pos)
		if err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				return nil, &SyntaxError{Pos: se.Pos + base, Message: se.Message}
			}
			return nil, err
		}
		if tok.kind != tokenEndpoint {
			return nil, &SyntaxError{Pos: pos + base, Message: "transform may only list endpoints"}
		}
		out = append(out, tok.value)
		pos = next
	}
	if len(out) == 0 {
		return nil, &SyntaxError{Pos: base, Message: "empty transform"}
	}
	return out, nil
}
