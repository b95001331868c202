package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOperation parses src, the generic textual form produced by Printer,
// into a fresh, unattached operation graph owned by ctx. Every op name in
// src must resolve against ctx's registered dialects; unregistered names
// are an error, matching the §3.1 invariant that every opcode in the graph
// is registered. Dialect Impl payloads are not reconstructed: the parsed
// graph is structurally equal to the printed one (ops, operands, results,
// successors, regions, attributes, types) but carries nil Impl fields.
func ParseOperation(ctx *Context, src string) (*Operation, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{ctx: ctx, toks: toks, values: make(map[string]Value)}
	op, err := p.parseOperation(nil)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errf(t, "trailing input after top-level operation")
	}
	return op, nil
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokValue       // %0, %x
	tokLabel       // ^bb0
	tokAt          // @
	tokString      // "quoted"
	tokNumber      // 42, 3.5, -1e9
	tokIdent       // i32, ptr, true, attr keys
	tokPunct       // ( ) [ ] { } < > , = : and the two-char -> ::
)

type token struct {
	kind      tokKind
	text      string
	line, col int
}

func isIdentRune(r byte) bool {
	return r == '_' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func tokenize(src string) ([]token, error) {
	var toks []token
	line, col := 1, 1
	i := 0
	emit := func(k tokKind, text string) {
		toks = append(toks, token{kind: k, text: text, line: line, col: col})
	}
	advance := func(n int) {
		for j := 0; j < n; j++ {
			if src[i+j] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
		i += n
	}
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			advance(1)
		case c == '%' || c == '^':
			j := i + 1
			for j < len(src) && isIdentRune(src[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("ir: parse %d:%d: bare %q", line, col, c)
			}
			k := tokValue
			if c == '^' {
				k = tokLabel
			}
			emit(k, src[i+1:j])
			advance(j - i)
		case c == '@':
			emit(tokAt, "@")
			advance(1)
		case c == '"':
			s, n, err := scanString(src[i:])
			if err != nil {
				return nil, fmt.Errorf("ir: parse %d:%d: %v", line, col, err)
			}
			emit(tokString, s)
			advance(n)
		case c == '-' && i+1 < len(src) && src[i+1] == '>':
			emit(tokPunct, "->")
			advance(2)
		case c == ':' && i+1 < len(src) && src[i+1] == ':':
			emit(tokPunct, "::")
			advance(2)
		case c == '-' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(src) {
				d := src[j]
				if (d >= '0' && d <= '9') || d == '.' || d == 'e' || d == 'E' {
					j++
					continue
				}
				if (d == '+' || d == '-') && (src[j-1] == 'e' || src[j-1] == 'E') {
					j++
					continue
				}
				break
			}
			emit(tokNumber, src[i:j])
			advance(j - i)
		case isIdentRune(c):
			j := i + 1
			for j < len(src) && isIdentRune(src[j]) {
				j++
			}
			emit(tokIdent, src[i:j])
			advance(j - i)
		case strings.ContainsRune("()[]{}<>,=:", rune(c)):
			emit(tokPunct, string(c))
			advance(1)
		default:
			return nil, fmt.Errorf("ir: parse %d:%d: unexpected character %q", line, col, c)
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line, col: col})
	return toks, nil
}

// scanString consumes a Go-quoted string literal at the front of s,
// returning its unquoted value and the number of source bytes consumed.
func scanString(s string) (string, int, error) {
	for j := 1; j < len(s); j++ {
		if s[j] == '\\' {
			j++
			continue
		}
		if s[j] == '"' {
			out, err := strconv.Unquote(s[:j+1])
			return out, j + 1, err
		}
	}
	return "", 0, fmt.Errorf("unterminated string literal")
}

// regionScope tracks block labels while a single region's body is being
// parsed, plus the successor edges whose targets could not yet be resolved
// (forward branches). Labels scope to their region: a successor always
// targets a sibling block.
type regionScope struct {
	labels map[string]*Block
	fixups []labelFixup
}

type labelFixup struct {
	succ  *Successor
	label string
	tok   token
}

type parser struct {
	ctx    *Context
	toks   []token
	pos    int
	values map[string]Value
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errf(t token, format string, args ...interface{}) error {
	return fmt.Errorf("ir: parse %d:%d: %s", t.line, t.col, fmt.Sprintf(format, args...))
}

func (p *parser) expectPunct(text string) (token, error) {
	t := p.next()
	if t.kind != tokPunct || t.text != text {
		return t, p.errf(t, "expected %q, found %q", text, t.text)
	}
	return t, nil
}

func (p *parser) atPunct(text string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == text
}

// defineValue binds name to v, rejecting redefinition: every value name in
// a printed module is unique.
func (p *parser) defineValue(name string, v Value, at token) error {
	if _, exists := p.values[name]; exists {
		return p.errf(at, "value %%%s redefined", name)
	}
	p.values[name] = v
	return nil
}

func (p *parser) lookupValue(name string, at token) (Value, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, p.errf(at, "use of undefined value %%%s", name)
	}
	return v, nil
}

// parseOperation parses one operation, leaving it unattached to any block;
// the caller links it. scope carries the enclosing region's block labels
// for successor resolution, nil at top level (where successors are
// invalid: a top-level op has no sibling blocks to branch to).
func (p *parser) parseOperation(scope *regionScope) (*Operation, error) {
	// Optional result list: %a, %b = ...
	var resultNames []string
	var resultToks []token
	if p.peek().kind == tokValue {
		for {
			t := p.next()
			resultNames = append(resultNames, t.text)
			resultToks = append(resultToks, t)
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expectPunct("="); err != nil {
			return nil, err
		}
	}

	nameTok := p.next()
	if nameTok.kind != tokString {
		return nil, p.errf(nameTok, "expected quoted operation name")
	}
	dot := strings.Index(nameTok.text, ".")
	if dot <= 0 || dot == len(nameTok.text)-1 {
		return nil, p.errf(nameTok, "operation name %q is not dialect-qualified", nameTok.text)
	}
	name, ok := p.ctx.LookupOperationName(nameTok.text[:dot], nameTok.text[dot+1:])
	if !ok {
		return nil, p.errf(nameTok, "operation %q is not registered with any dialect", nameTok.text)
	}

	op := &Operation{
		id:    p.ctx.nextOpID(),
		name:  name,
		ctx:   p.ctx,
		attrs: NewAttrDict(),
	}
	op.results = make([]*OpResult, len(resultNames))
	for i := range resultNames {
		op.results[i] = &OpResult{index: i, def: op}
		if err := p.defineValue(resultNames[i], op.results[i], resultToks[i]); err != nil {
			return nil, err
		}
	}

	// Operand list.
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for !p.atPunct(")") {
		t := p.next()
		if t.kind != tokValue {
			return nil, p.errf(t, "expected operand value, found %q", t.text)
		}
		v, err := p.lookupValue(t.text, t)
		if err != nil {
			return nil, err
		}
		op.AddOperand(v)
		if p.atPunct(",") {
			p.next()
		}
	}
	p.next() // ')'

	// Successors.
	if p.atPunct("[") {
		if scope == nil {
			return nil, p.errf(p.peek(), "top-level operation cannot carry successors")
		}
		p.next()
		for !p.atPunct("]") {
			if err := p.parseSuccessor(op, scope); err != nil {
				return nil, err
			}
			if p.atPunct(",") {
				p.next()
			}
		}
		p.next() // ']'
	}

	// Regions: " ({ ... }, { ... })".
	if p.atPunct("(") {
		p.next()
		for {
			r := &Region{id: p.ctx.nextRegionID(), kind: RegionSSA, parent: op, index: len(op.regions)}
			op.regions = append(op.regions, r)
			if err := p.parseRegionBody(r); err != nil {
				return nil, err
			}
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}

	// Attribute dictionary.
	if p.atPunct("{") {
		p.next()
		for !p.atPunct("}") {
			keyTok := p.next()
			if keyTok.kind != tokIdent {
				return nil, p.errf(keyTok, "expected attribute key, found %q", keyTok.text)
			}
			if _, err := p.expectPunct("="); err != nil {
				return nil, err
			}
			attr, err := p.parseAttribute()
			if err != nil {
				return nil, err
			}
			op.attrs.Set(keyTok.text, attr)
			if p.atPunct(",") {
				p.next()
			}
		}
		p.next() // '}'
	}

	// Type signature: ": (operand types) -> (result types)".
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	operandTypes, err := p.parseParenTypeList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("->"); err != nil {
		return nil, err
	}
	resultTypes, err := p.parseParenTypeList()
	if err != nil {
		return nil, err
	}
	if len(operandTypes) != len(op.operands) {
		return nil, p.errf(nameTok, "%s: %d operands but %d operand types",
			name.Full(), len(op.operands), len(operandTypes))
	}
	for i, o := range op.operands {
		if o.value.Type() != nil && o.value.Type() != operandTypes[i] {
			return nil, p.errf(nameTok, "%s: operand %d has type %s, signature says %s",
				name.Full(), i, o.value.Type(), operandTypes[i])
		}
	}
	if len(resultTypes) != len(op.results) {
		return nil, p.errf(nameTok, "%s: %d results but %d result types",
			name.Full(), len(op.results), len(resultTypes))
	}
	for i, t := range resultTypes {
		op.results[i].typ = t
	}
	return op, nil
}

func (p *parser) parseSuccessor(op *Operation, scope *regionScope) error {
	labelTok := p.next()
	if labelTok.kind != tokLabel {
		return p.errf(labelTok, "expected block label, found %q", labelTok.text)
	}
	var args []Value
	if p.atPunct("(") {
		p.next()
		var argToks []token
		for !p.atPunct(":") {
			t := p.next()
			if t.kind != tokValue {
				return p.errf(t, "expected forwarded value, found %q", t.text)
			}
			argToks = append(argToks, t)
			if p.atPunct(",") {
				p.next()
			}
		}
		p.next() // ':'
		for _, t := range argToks {
			v, err := p.lookupValue(t.text, t)
			if err != nil {
				return err
			}
			args = append(args, v)
		}
		// Forwarded types restate the values' own types; consume and check.
		for i := 0; ; i++ {
			typ, err := p.parseType()
			if err != nil {
				return err
			}
			if i >= len(args) {
				return p.errf(labelTok, "more forwarded types than values")
			}
			if args[i].Type() != typ {
				return p.errf(labelTok, "forwarded value %d has type %s, edge says %s",
					i, args[i].Type(), typ)
			}
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expectPunct(")"); err != nil {
			return err
		}
	}
	s := op.AddSuccessor(nil, args)
	if target, ok := scope.labels[labelTok.text]; ok {
		s.SetTarget(target)
	} else {
		scope.fixups = append(scope.fixups, labelFixup{succ: s, label: labelTok.text, tok: labelTok})
	}
	return nil
}

// parseRegionBody parses "{ ^bb0(...): ops... ^bb1: ops... }" into r,
// resolving forward block-label references once every block exists.
func (p *parser) parseRegionBody(r *Region) error {
	if _, err := p.expectPunct("{"); err != nil {
		return err
	}
	scope := &regionScope{labels: make(map[string]*Block)}
	for !p.atPunct("}") {
		if err := p.parseBlock(r, scope); err != nil {
			return err
		}
	}
	p.next() // '}'
	for _, f := range scope.fixups {
		target, ok := scope.labels[f.label]
		if !ok {
			return p.errf(f.tok, "branch to undefined block ^%s", f.label)
		}
		f.succ.SetTarget(target)
	}
	return nil
}

func (p *parser) parseBlock(r *Region, scope *regionScope) error {
	labelTok := p.next()
	if labelTok.kind != tokLabel {
		return p.errf(labelTok, "expected block label, found %q", labelTok.text)
	}
	if _, exists := scope.labels[labelTok.text]; exists {
		return p.errf(labelTok, "block ^%s redefined", labelTok.text)
	}
	b := r.AppendBlock(p.ctx)
	scope.labels[labelTok.text] = b

	if p.atPunct("(") {
		p.next()
		for !p.atPunct(")") {
			argTok := p.next()
			if argTok.kind != tokValue {
				return p.errf(argTok, "expected block argument, found %q", argTok.text)
			}
			if _, err := p.expectPunct(":"); err != nil {
				return err
			}
			typ, err := p.parseType()
			if err != nil {
				return err
			}
			if err := p.defineValue(argTok.text, b.AddArgument(typ), argTok); err != nil {
				return err
			}
			if p.atPunct(",") {
				p.next()
			}
		}
		p.next() // ')'
	}
	if _, err := p.expectPunct(":"); err != nil {
		return err
	}
	for {
		t := p.peek()
		if t.kind == tokLabel || (t.kind == tokPunct && t.text == "}") || t.kind == tokEOF {
			return nil
		}
		op, err := p.parseOperation(scope)
		if err != nil {
			return err
		}
		b.appendOp(op)
	}
}

func (p *parser) parseParenTypeList() ([]*Type, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var types []*Type
	for !p.atPunct(")") {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		if p.atPunct(",") {
			p.next()
		}
	}
	p.next() // ')'
	return types, nil
}

func (p *parser) parseType() (*Type, error) {
	t := p.next()
	if t.kind != tokIdent {
		return nil, p.errf(t, "expected type, found %q", t.text)
	}
	ctx := p.ctx
	switch t.text {
	case "i1":
		return ctx.I1(), nil
	case "i8":
		return ctx.I8(), nil
	case "u8":
		return ctx.U8(), nil
	case "i16":
		return ctx.I16(), nil
	case "u16":
		return ctx.U16(), nil
	case "i32":
		return ctx.I32(), nil
	case "u32":
		return ctx.U32(), nil
	case "i64":
		return ctx.I64(), nil
	case "u64":
		return ctx.U64(), nil
	case "i128":
		return ctx.I128(), nil
	case "u128":
		return ctx.U128(), nil
	case "felt":
		return ctx.Felt(), nil
	case "f64":
		return ctx.F64(), nil
	case "unit":
		return ctx.Unit(), nil
	case "never":
		return ctx.Never(), nil
	case "unknown":
		return ctx.Unknown(), nil
	case "ptr":
		if _, err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		pointee, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		spaceTok := p.next()
		var space AddrSpace
		switch spaceTok.text {
		case "byte":
			space = AddrSpaceByte
		case "element":
			space = AddrSpaceElement
		default:
			return nil, p.errf(spaceTok, "unknown address space %q", spaceTok.text)
		}
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		return ctx.Ptr(pointee, space), nil
	case "array":
		if _, err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		lenTok := p.next()
		n, err := strconv.ParseUint(lenTok.text, 10, 64)
		if err != nil {
			return nil, p.errf(lenTok, "bad array length %q", lenTok.text)
		}
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		return ctx.Array(elem, n), nil
	case "list":
		if _, err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		return ctx.List(elem), nil
	case "struct":
		if _, err := p.expectPunct("<"); err != nil {
			return nil, err
		}
		var fields []*Type
		for !p.atPunct(">") {
			f, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			if p.atPunct(",") {
				p.next()
			}
		}
		p.next() // '>'
		return ctx.Struct(fields...), nil
	default:
		return nil, p.errf(t, "unknown type %q", t.text)
	}
}

func (p *parser) parseAttribute() (Attribute, error) {
	t := p.peek()
	switch {
	case t.kind == tokString:
		p.next()
		return StringAttr(t.text), nil
	case t.kind == tokIdent && t.text == "true":
		p.next()
		return BoolAttr(true), nil
	case t.kind == tokIdent && t.text == "false":
		p.next()
		return BoolAttr(false), nil
	case t.kind == tokIdent && t.text == "unit":
		p.next()
		return UnitAttr{}, nil
	case t.kind == tokAt:
		p.next()
		var path []string
		for {
			seg := p.next()
			if seg.kind != tokIdent {
				return nil, p.errf(seg, "expected symbol path segment, found %q", seg.text)
			}
			path = append(path, seg.text)
			if p.atPunct("::") {
				p.next()
				continue
			}
			break
		}
		return SymbolRefAttr{Path: path}, nil
	case t.kind == tokNumber:
		p.next()
		if p.atPunct(":") {
			p.next()
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			v, err := strconv.ParseUint(t.text, 10, 64)
			if err != nil {
				return nil, p.errf(t, "bad integer literal %q", t.text)
			}
			return IntAttr{Type: typ, Value: v}, nil
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errf(t, "bad float literal %q", t.text)
		}
		return FloatAttr{Value: f}, nil
	case t.kind == tokPunct && t.text == "[":
		p.next()
		var elems []Attribute
		for !p.atPunct("]") {
			e, err := p.parseAttribute()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.atPunct(",") {
				p.next()
			}
		}
		p.next() // ']'
		return ArrayAttr{Elems: elems}, nil
	case t.kind == tokPunct && t.text == "{":
		p.next()
		entries := make(map[string]Attribute)
		for !p.atPunct("}") {
			keyTok := p.next()
			if keyTok.kind != tokIdent {
				return nil, p.errf(keyTok, "expected dictionary key, found %q", keyTok.text)
			}
			if _, err := p.expectPunct("="); err != nil {
				return nil, err
			}
			v, err := p.parseAttribute()
			if err != nil {
				return nil, err
			}
			entries[keyTok.text] = v
			if p.atPunct(",") {
				p.next()
			}
		}
		p.next() // '}'
		return DictAttr{Entries: entries}, nil
	default:
		return nil, p.errf(t, "expected attribute, found %q", t.text)
	}
}
