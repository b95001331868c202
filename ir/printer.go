package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders operations in the generic textual form used for
// dumps, golden-file tests and ParseOperation:
//
//	%2 = "arith.addi"(%0, %1) {overflow = "wrap"} : (i32, i32) -> (i32)
//
// Terminators carry their successor edges in brackets after the operand
// list (`[^bb1(%3 : felt), ^bb2]`) and region-holding ops print each
// region's blocks in a parenthesized brace group before the attribute
// dictionary. Every value (block argument or op result) is assigned a sequential,
// per-printer name the first time it is written; names are not stable
// across separate Print calls on unrelated subtrees.
type Printer struct {
	w      io.Writer
	names  map[Value]string
	blocks map[*Block]string
	next   int
	indent int
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, names: make(map[Value]string), blocks: make(map[*Block]string)}
}

func (p *Printer) nameOf(v Value) string {
	if n, ok := p.names[v]; ok {
		return n
	}
	n := fmt.Sprintf("%%%d", p.next)
	p.next++
	p.names[v] = n
	return n
}

func (p *Printer) labelOf(b *Block) string {
	if n, ok := p.blocks[b]; ok {
		return n
	}
	n := fmt.Sprintf("^bb%d", len(p.blocks))
	p.blocks[b] = n
	return n
}

func (p *Printer) writeIndent() {
	io.WriteString(p.w, strings.Repeat("  ", p.indent))
}

// PrintOperation writes op's generic textual form, followed by a newline,
// then recurses into any nested regions at one deeper indent level.
func (p *Printer) PrintOperation(op *Operation) {
	p.writeIndent()
	if len(op.results) > 0 {
		names := make([]string, len(op.results))
		for i, r := range op.results {
			names[i] = p.nameOf(r)
		}
		fmt.Fprintf(p.w, "%s = ", strings.Join(names, ", "))
	}
	fmt.Fprintf(p.w, "%q(", op.name.Full())
	operandNames := make([]string, len(op.operands))
	operandTypes := make([]string, len(op.operands))
	for i, o := range op.operands {
		if o.value != nil {
			operandNames[i] = p.nameOf(o.value)
			operandTypes[i] = o.value.Type().String()
		} else {
			operandNames[i] = "<null>"
			operandTypes[i] = "?"
		}
	}
	io.WriteString(p.w, strings.Join(operandNames, ", "))
	io.WriteString(p.w, ")")
	if len(op.succs) > 0 {
		io.WriteString(p.w, "[")
		for i, s := range op.succs {
			if i > 0 {
				io.WriteString(p.w, ", ")
			}
			io.WriteString(p.w, p.labelOf(s.target))
			if len(s.forwarded) > 0 {
				names := make([]string, len(s.forwarded))
				types := make([]string, len(s.forwarded))
				for j, f := range s.forwarded {
					names[j] = p.nameOf(f.value)
					types[j] = f.value.Type().String()
				}
				fmt.Fprintf(p.w, "(%s : %s)", strings.Join(names, ", "), strings.Join(types, ", "))
			}
		}
		io.WriteString(p.w, "]")
	}
	if len(op.regions) > 0 {
		io.WriteString(p.w, " (")
		for ri, r := range op.regions {
			if ri > 0 {
				io.WriteString(p.w, ", ")
			}
			io.WriteString(p.w, "{\n")
			p.indent++
			for _, b := range r.Blocks() {
				p.printBlockHeader(b)
				p.indent++
				for o := b.First(); o != nil; o = o.Next() {
					p.PrintOperation(o)
				}
				p.indent--
			}
			p.indent--
			p.writeIndent()
			io.WriteString(p.w, "}")
		}
		io.WriteString(p.w, ")")
	}
	if op.attrs.Len() > 0 {
		io.WriteString(p.w, " {")
		for i, k := range op.attrs.Keys() {
			if i > 0 {
				io.WriteString(p.w, ", ")
			}
			v, _ := op.attrs.Get(k)
			fmt.Fprintf(p.w, "%s = %s", k, v.String())
		}
		io.WriteString(p.w, "}")
	}
	resultTypes := make([]string, len(op.results))
	for i, r := range op.results {
		resultTypes[i] = r.Type().String()
	}
	fmt.Fprintf(p.w, " : (%s) -> (%s)\n", strings.Join(operandTypes, ", "), strings.Join(resultTypes, ", "))
}

func (p *Printer) printBlockHeader(b *Block) {
	p.writeIndent()
	io.WriteString(p.w, p.labelOf(b))
	if len(b.args) > 0 {
		parts := make([]string, len(b.args))
		for i, a := range b.args {
			parts[i] = fmt.Sprintf("%s: %s", p.nameOf(a), a.Type())
		}
		fmt.Fprintf(p.w, "(%s)", strings.Join(parts, ", "))
	}
	io.WriteString(p.w, ":\n")
}

// Print is a convenience wrapper around NewPrinter(w).PrintOperation(op).
func Print(w io.Writer, op *Operation) {
	NewPrinter(w).PrintOperation(op)
}

// String renders op to its generic textual form as a standalone string,
// for use in error messages and test assertions.
func (op *Operation) String() string {
	var sb strings.Builder
	Print(&sb, op)
	return strings.TrimSuffix(sb.String(), "\n")
}
