package vm

import "corevm/scheduler"

// Opcode is the encoded byte identifying a VM instruction, as emitted by
// the codegen driver once a vm.* op has been scheduled (§4.9.6). Every
// opcode below is fixed-width: a one-byte tag optionally followed by
// operand bytes, per the Operands column.
//
// | mnemonic   | opcode | operands [count]: [operand labels] | stack effect              | description                                           |
// |------------|--------|-------------------------------------|---------------------------|--------------------------------------------------------|
// | nop        | 0x00   |                                      |                           | no-op, used as a padding/alignment filler               |
// | push_const | 0x01   | 8: value (uint64 felt immediate)    | -> value                 | push an immediate constant                              |
// | add        | 0x02   |                                      | a, b -> a+b               | field addition                                          |
// | sub        | 0x03   |                                      | a, b -> a-b               | field subtraction                                       |
// | mul        | 0x04   |                                      | a, b -> a*b               | field multiplication                                    |
// | eq         | 0x05   |                                      | a, b -> a==b              | equality test, result is 0 or 1                         |
// | lt         | 0x06   |                                      | a, b -> a<b               | less-than test, result is 0 or 1                        |
// | call       | 0x07   | 4: procIndex                        | args... -> results...     | call the procedure at procIndex in the symbol table     |
// | ret        | 0x08   |                                      | results... ->             | return from the current procedure                       |
// | br         | 0x09   | 4: target (abs instruction offset)  |                           | unconditional jump                                      |
// | cond_br    | 0x0a   | 4: trueTarget, 4: falseTarget        | cond ->                   | conditional jump                                        |
// | dup        | 0x20   | 1: index (< 16)                     |                           | duplicate the element at index onto the top of stack    |
// | swap       | 0x21   | 1: index (< 16)                     |                           | exchange top of stack with the element at index          |
// | movup      | 0x22   | 1: index (< 16)                     |                           | move the element at index to the top of stack           |
// | movdn      | 0x23   | 1: index (< 16)                     |                           | move the top of stack to index                          |
// | spill      | 0x30   | 4: slot                             | value ->                 | store value into function-local slot                    |
// | reload     | 0x31   | 4: slot                             | -> value                 | load value from function-local slot                      |
const (
	OpNop       uint8 = 0x00
	OpPushConst uint8 = 0x01
	OpAdd       uint8 = 0x02
	OpSub       uint8 = 0x03
	OpMul       uint8 = 0x04
	OpEq        uint8 = 0x05
	OpLt        uint8 = 0x06
	OpCall      uint8 = 0x07
	OpRet       uint8 = 0x08
	OpBr        uint8 = 0x09
	OpCondBr    uint8 = 0x0a
	OpDup       uint8 = 0x20
	OpSwap      uint8 = 0x21
	OpMovUp     uint8 = 0x22
	OpMovDn     uint8 = 0x23
	OpSpill     uint8 = 0x30
	OpReload    uint8 = 0x31
)

// operandBytes maps each opcode to the number of operand bytes that follow
// its tag byte, used by instrEncodingLen and by the encoder to size each
// instruction's buffer up front.
var operandBytes = map[uint8]int{
	OpNop:       0,
	OpPushConst: 8,
	OpAdd:       0,
	OpSub:       0,
	OpMul:       0,
	OpEq:        0,
	OpLt:        0,
	OpCall:      4,
	OpRet:       0,
	OpBr:        4,
	OpCondBr:    8,
	OpDup:       1,
	OpSwap:      1,
	OpMovUp:     1,
	OpMovDn:     1,
	OpSpill:     4,
	OpReload:    4,
}

// instrEncodingLen returns the number of bytes (tag plus operands) that
// encode the instruction identified by opcode op.
func instrEncodingLen(op uint8) int {
	return 1 + operandBytes[op]
}

// StackActionOpcode maps a scheduler.ActionKind to its encoded opcode, used
// by the codegen driver to translate emitted Actions (§4.9.6) into
// instructions.
func StackActionOpcode(kind scheduler.ActionKind) uint8 {
	switch kind {
	case scheduler.Copy:
		return OpDup
	case scheduler.Swap:
		return OpSwap
	case scheduler.MoveUp:
		return OpMovUp
	case scheduler.MoveDown:
		return OpMovDn
	default:
		return OpNop
	}
}

// Instr is one encoded VM instruction: a tag opcode plus its operand
// words, sized according to operandBytes. Operands are stored as a single
// slice of 64-bit words regardless of their eventual narrower encoding;
// the final byte-level encoder (outside the core's scope, an external
// collaborator) is responsible for packing them down to operandBytes[Op]
// bytes each.
type Instr struct {
	Op       uint8
	Operands []uint64
}

// Len returns the encoded byte length of instr, per instrEncodingLen.
func (instr Instr) Len() int { return instrEncodingLen(instr.Op) }
