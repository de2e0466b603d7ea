// Package project adapts github.com/llir/llvm's pure-Go LLVM IR object
// model into the narrow, read-only query API the specification calls the
// "project loader" (spec.md §6): modules, functions, types, basic blocks,
// instructions and globals, plus pointer width and by-name lookup. The
// bitcode/assembly parser itself is entirely out of scope for the engine —
// this package only wraps github.com/llir/llvm's already-parsed *ir.Module.
package project

import (
	lltypes "github.com/llir/llvm/ir/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// TypeKind identifies which case of the Type sum (spec.md §3 "Type") an
// adapted types.Type value belongs to.
type TypeKind uint8

// FloatKind identifies an LLVM floating-point format.
type FloatKind uint8

// Type wraps an github.com/llir/llvm/ir/types.Type for read-only queries.
type Type struct {
	ll lltypes.Type
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	KindVoid TypeKind = iota
	KindInteger
	KindFloat
	KindPointer
	KindVector
	KindArray
	KindStruct
	KindOpaqueStruct
	KindFunction
	KindOther // metadata/label/token and other non-addressable target types
)

const (
	FloatHalf FloatKind = iota
	FloatBFloat
	FloatSingle
	FloatDouble
	FloatFP128
	FloatPPCFP128
	FloatX86FP80
)

var kindNames = [...]string{
	"void", "integer", "float", "pointer", "vector", "array", "struct",
	"opaque-struct", "function", "other",
}

// ---------------------
// ----- Functions -----
// ---------------------

// String returns a print-friendly name for k.
func (k TypeKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// WrapType adapts an ir/types.Type into a Type.
func WrapType(t lltypes.Type) Type {
	return Type{ll: t}
}

// LLVM returns the underlying github.com/llir/llvm type.
func (t Type) LLVM() lltypes.Type {
	return t.ll
}

// Kind classifies t.
func (t Type) Kind() TypeKind {
	switch v := t.ll.(type) {
	case *lltypes.VoidType:
		return KindVoid
	case *lltypes.IntType:
		return KindInteger
	case *lltypes.FloatType:
		return KindFloat
	case *lltypes.PointerType:
		return KindPointer
	case *lltypes.VectorType:
		return KindVector
	case *lltypes.ArrayType:
		return KindArray
	case *lltypes.StructType:
		if v.Opaque {
			return KindOpaqueStruct
		}
		return KindStruct
	case *lltypes.FuncType:
		return KindFunction
	default:
		return KindOther
	}
}

// IntBits returns the bit width of an Integer type. Panics if t is not an
// Integer type; callers must check Kind first.
func (t Type) IntBits() uint32 {
	return uint32(t.ll.(*lltypes.IntType).BitSize)
}

// FloatKind returns the floating-point format of a Float type.
func (t Type) FloatKind() FloatKind {
	switch t.ll.(*lltypes.FloatType).Kind {
	case lltypes.FloatKindHalf:
		return FloatHalf
	case lltypes.FloatKindFloat:
		return FloatSingle
	case lltypes.FloatKindDouble:
		return FloatDouble
	case lltypes.FloatKindFP128:
		return FloatFP128
	case lltypes.FloatKindPPC_FP128:
		return FloatPPCFP128
	case lltypes.FloatKindX86_FP80:
		return FloatX86FP80
	default:
		return FloatSingle
	}
}

// AddrSpace returns a Pointer type's address space.
func (t Type) AddrSpace() uint64 {
	return uint64(t.ll.(*lltypes.PointerType).AddrSpace)
}

// Elem returns the element type of a Pointer, Vector, or Array type.
func (t Type) Elem() Type {
	switch v := t.ll.(type) {
	case *lltypes.PointerType:
		return WrapType(v.ElemType)
	case *lltypes.VectorType:
		return WrapType(v.ElemType)
	case *lltypes.ArrayType:
		return WrapType(v.ElemType)
	}
	panic("project: Elem called on a type without a single element type")
}

// Len returns the element count of a Vector or Array type.
func (t Type) Len() uint64 {
	switch v := t.ll.(type) {
	case *lltypes.VectorType:
		return v.Len
	case *lltypes.ArrayType:
		return v.Len
	}
	panic("project: Len called on a non-aggregate type")
}

// Scalable reports whether a Vector type is scalable (unsupported by the
// core per spec.md §1 non-goals).
func (t Type) Scalable() bool {
	if v, ok := t.ll.(*lltypes.VectorType); ok {
		return v.Scalable
	}
	return false
}

// Fields returns the ordered field types of a (non-opaque) Structure type.
func (t Type) Fields() []Type {
	v := t.ll.(*lltypes.StructType)
	out := make([]Type, len(v.Fields))
	for i, f := range v.Fields {
		out[i] = WrapType(f)
	}
	return out
}

// Signature returns the return type and parameter types of a Function type.
func (t Type) Signature() (ret Type, params []Type, variadic bool) {
	v := t.ll.(*lltypes.FuncType)
	ret = WrapType(v.RetType)
	params = make([]Type, len(v.Params))
	for i, p := range v.Params {
		params[i] = WrapType(p)
	}
	return ret, params, v.Variadic
}

// Equal reports whether t and other denote the same LLVM type.
func (t Type) Equal(other Type) bool {
	return t.ll.Equal(other.ll)
}

// String returns the LLVM textual form of t.
func (t Type) String() string {
	return t.ll.String()
}
