package project

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	llvalue "github.com/llir/llvm/ir/value"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ValueKind identifies which case of the Value sum (spec.md §3 "Value
// kind") an operand belongs to.
type ValueKind uint8

// Value wraps an github.com/llir/llvm/ir/value.Value for read-only queries.
// It also serves as the stable identity key for an instruction's result
// register: two Values compare equal (via ==) iff they wrap the same
// underlying pointer.
type Value struct {
	ll llvalue.Value
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	KindInstructionValue ValueKind = iota
	KindArgument
	KindGlobal
	KindFunction
	KindConstant
	KindInlineAsm
	KindMetadata
)

// ---------------------
// ----- Functions -----
// ---------------------

// WrapValue adapts an ir/value.Value into a Value.
func WrapValue(v llvalue.Value) Value {
	return Value{ll: v}
}

// LLVM returns the underlying github.com/llir/llvm value.
func (v Value) LLVM() llvalue.Value {
	return v.ll
}

// Type returns v's LLVM type.
func (v Value) Type() Type {
	return WrapType(v.ll.Type())
}

// String returns the LLVM textual identifier of v (e.g. "%3", "@foo").
func (v Value) String() string {
	return v.ll.Ident()
}

// Kind classifies v.
func (v Value) Kind() ValueKind {
	switch x := v.ll.(type) {
	case *ir.Param:
		return KindArgument
	case *ir.Global:
		return KindGlobal
	case *ir.Func:
		return KindFunction
	case *ir.InlineAsm:
		return KindInlineAsm
	case constant.Constant:
		return KindConstant
	case ir.Instruction:
		_ = x
		return KindInstructionValue
	default:
		return KindMetadata
	}
}

// AsConstant returns v as a constant.Constant and true if Kind() ==
// KindConstant.
func (v Value) AsConstant() (constant.Constant, bool) {
	c, ok := v.ll.(constant.Constant)
	return c, ok
}

// AsFunction returns v as *ir.Func and true if Kind() == KindFunction.
func (v Value) AsFunction() (*ir.Func, bool) {
	f, ok := v.ll.(*ir.Func)
	return f, ok
}

// AsGlobal returns v as *ir.Global and true if Kind() == KindGlobal.
func (v Value) AsGlobal() (*ir.Global, bool) {
	g, ok := v.ll.(*ir.Global)
	return g, ok
}

// AsParam returns v as *ir.Param and true if Kind() == KindArgument.
func (v Value) AsParam() (*ir.Param, bool) {
	p, ok := v.ll.(*ir.Param)
	return p, ok
}

// AsInstruction returns v as ir.Instruction and true if Kind() ==
// KindInstructionValue.
func (v Value) AsInstruction() (ir.Instruction, bool) {
	i, ok := v.ll.(ir.Instruction)
	return i, ok
}
