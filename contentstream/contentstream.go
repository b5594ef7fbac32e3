package contentstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wudi/plantreport/ir/semantic"
)

// Processor walks a content stream and dispatches operators to handlers.
type Processor interface {
	Process(ctx context.Context, stream []byte) error
	RegisterHandler(op string, h OperatorHandler)
}

// OperatorHandler receives the operands collected for one operator.
type OperatorHandler interface {
	Handle(operands []semantic.Operand) error
}

// HandlerFunc adapts a function to OperatorHandler.
type HandlerFunc func(operands []semantic.Operand) error

func (f HandlerFunc) Handle(operands []semantic.Operand) error { return f(operands) }

var errUnterminated = errors.New("unterminated token")

type simpleProcessor struct{ handlers map[string]OperatorHandler }

func NewProcessor() Processor                                           { return &simpleProcessor{handlers: make(map[string]OperatorHandler)} }
func (p *simpleProcessor) RegisterHandler(op string, h OperatorHandler) { p.handlers[op] = h }

func (p *simpleProcessor) Process(ctx context.Context, stream []byte) error {
	lx := &lexer{src: stream}
	var stack []semantic.Operand
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := lx.next()
		if err != nil {
			return err
		}
		if tok == nil {
			break
		}
		if tok.operator == "" {
			stack = append(stack, tok.operand)
			continue
		}
		if h, ok := p.handlers[tok.operator]; ok {
			if err := h.Handle(stack); err != nil {
				return fmt.Errorf("operator %s: %w", tok.operator, err)
			}
		}
		stack = stack[:0]
	}
	if len(stack) > 0 {
		return fmt.Errorf("dangling operands: %d", len(stack))
	}
	return nil
}

// Strings returns the strings painted by Tj and TJ operators, in stream order.
func Strings(ctx context.Context, stream []byte) ([]string, error) {
	var out []string
	p := NewProcessor()
	p.RegisterHandler("Tj", HandlerFunc(func(ops []semantic.Operand) error {
		if len(ops) == 1 {
			if s, ok := ops[0].(semantic.StringOperand); ok {
				out = append(out, string(s.Value))
			}
		}
		return nil
	}))
	p.RegisterHandler("TJ", HandlerFunc(func(ops []semantic.Operand) error {
		if len(ops) != 1 {
			return nil
		}
		arr, ok := ops[0].(semantic.ArrayOperand)
		if !ok {
			return nil
		}
		var s []byte
		for _, v := range arr.Values {
			if so, ok := v.(semantic.StringOperand); ok {
				s = append(s, so.Value...)
			}
		}
		out = append(out, string(s))
		return nil
	}))
	if err := p.Process(ctx, stream); err != nil {
		return nil, err
	}
	return out, nil
}

type token struct {
	operand  semantic.Operand
	operator string
}

type lexer struct {
	src []byte
	pos int
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '%' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		if !isSpace(c) {
			return
		}
		l.pos++
	}
}

func (l *lexer) next() (*token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return nil, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '(':
		s, err := l.literal()
		if err != nil {
			return nil, err
		}
		return &token{operand: semantic.StringOperand{Value: s}}, nil
	case c == '<':
		s, err := l.hex()
		if err != nil {
			return nil, err
		}
		return &token{operand: semantic.StringOperand{Value: s}}, nil
	case c == '/':
		l.pos++
		return &token{operand: semantic.NameOperand{Value: l.word()}}, nil
	case c == '[':
		l.pos++
		var vals []semantic.Operand
		for {
			l.skipSpace()
			if l.pos >= len(l.src) {
				return nil, errUnterminated
			}
			if l.src[l.pos] == ']' {
				l.pos++
				return &token{operand: semantic.ArrayOperand{Values: vals}}, nil
			}
			tok, err := l.next()
			if err != nil {
				return nil, err
			}
			if tok == nil {
				return nil, errUnterminated
			}
			if tok.operator == "" {
				vals = append(vals, tok.operand)
			}
		}
	case c == ']' || c == ')' || c == '>' || c == '{' || c == '}':
		l.pos++
		return l.next()
	}
	w := l.word()
	if n, err := strconv.ParseFloat(w, 64); err == nil {
		return &token{operand: semantic.NumberOperand{Value: n}}, nil
	}
	return &token{operator: w}, nil
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.src) && !isSpace(l.src[l.pos]) && !isDelim(l.src[l.pos]) {
		l.pos++
	}
	if l.pos == start && l.pos < len(l.src) {
		l.pos++
	}
	return string(l.src[start:l.pos])
}

func (l *lexer) literal() ([]byte, error) {
	l.pos++ // (
	depth := 1
	var out []byte
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.src) {
				return nil, errUnterminated
			}
			e := l.src[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for i := 0; i < 2 && l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '7'; i++ {
					v = v*8 + int(l.src[l.pos]-'0')
					l.pos++
				}
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return nil, errUnterminated
}

func (l *lexer) hex() ([]byte, error) {
	l.pos++ // <
	if l.pos < len(l.src) && l.src[l.pos] == '<' {
		// dictionaries only appear in marked-content operands; skip them
		l.pos++
		depth := 1
		for l.pos < len(l.src) && depth > 0 {
			if l.src[l.pos] == '<' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '<' {
				depth++
				l.pos++
			} else if l.src[l.pos] == '>' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '>' {
				depth--
				l.pos++
			}
			l.pos++
		}
		return nil, nil
	}
	var digits []byte
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("hex string: %w", err)
				}
				out[i] = byte(v)
			}
			return out, nil
		}
		if !isSpace(c) {
			digits = append(digits, c)
		}
	}
	return nil, errUnterminated
}
