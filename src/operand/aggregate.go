package operand

import (
	"symex/src/expr"
	"symex/src/project"
	"symex/src/sizeof"
)

// ---------------------
// ----- Functions -----
// ---------------------

// FieldOffset walks a chain of extractvalue/insertvalue/gep-style indices
// into nested Structure/Array/Vector fields of t, accumulating the bit
// offset of the final field and returning its type. Shared by the
// constant extractvalue/insertvalue lowering below and by the instruction
// semantics of the same opcodes (spec.md §4.7 "extractvalue / insertvalue"),
// since both operate on the same flat packed bit-vector representation of
// an aggregate.
func FieldOffset(oracle *sizeof.Oracle, t project.Type, indices []uint64) (offsetBits uint64, fieldType project.Type, err error) {
	cur := t
	var offset uint64
	for _, idx := range indices {
		off, field, err := oracle.FieldOffset(cur, idx)
		if err != nil {
			return 0, project.Type{}, err
		}
		offset += off
		cur = field
	}
	return offset, cur, nil
}

// concatPacked packs elems (low-order element first, matching aggregate
// field 0 sitting at the lowest address) into a single bit-vector, the
// same little-endian convention memory.Memory uses for multi-byte reads.
// Zero-sized elements (nil) are dropped first. Returns nil if every
// element was zero-sized.
func concatPacked(elems []*expr.Expr) *expr.Expr {
	var present []expr.Expr
	for _, e := range elems {
		if e != nil {
			present = append(present, *e)
		}
	}
	if len(present) == 0 {
		return nil
	}
	acc := present[0]
	for _, e := range present[1:] {
		acc = e.Concat(acc)
	}
	return &acc
}
