// Package sizeof implements the type-size oracle (spec.md §4.1): bit/byte
// size and field-offset computation for LLVM types.
package sizeof

import (
	"fmt"

	"symex/src/project"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ErrNoSize is returned when asking for the size of an opaque structure.
type ErrNoSize struct {
	Type project.Type
}

func (e *ErrNoSize) Error() string {
	return fmt.Sprintf("sizeof: type %s has no size", e.Type)
}

// ErrNotByteMultiple is returned by ByteSize when the bit size is not a
// multiple of 8.
type ErrNotByteMultiple struct {
	Bits uint64
}

func (e *ErrNotByteMultiple) Error() string {
	return fmt.Sprintf("sizeof: %d bits is not a multiple of 8", e.Bits)
}

// Oracle computes sizes and offsets for a fixed pointer width.
type Oracle struct {
	pointerWidth uint32
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewOracle returns a size oracle for the given pointer width in bits.
func NewOracle(pointerWidth uint32) *Oracle {
	return &Oracle{pointerWidth: pointerWidth}
}

// BitSize returns the size in bits of t.
func (o *Oracle) BitSize(t project.Type) (uint64, error) {
	switch t.Kind() {
	case project.KindVoid:
		return 0, nil
	case project.KindInteger:
		return uint64(t.IntBits()), nil
	case project.KindFloat:
		return floatBits(t.FloatKind()), nil
	case project.KindPointer:
		return uint64(o.pointerWidth), nil
	case project.KindVector, project.KindArray:
		elem, err := o.BitSize(t.Elem())
		if err != nil {
			return 0, err
		}
		return elem * t.Len(), nil
	case project.KindStruct:
		var total uint64
		for _, f := range t.Fields() {
			sz, err := o.BitSize(f)
			if err != nil {
				return 0, err
			}
			total += sz
		}
		return total, nil
	case project.KindOpaqueStruct:
		return 0, &ErrNoSize{Type: t}
	default:
		return 0, &ErrNoSize{Type: t}
	}
}

func floatBits(k project.FloatKind) uint64 {
	switch k {
	case project.FloatHalf, project.FloatBFloat:
		return 16
	case project.FloatSingle:
		return 32
	case project.FloatDouble:
		return 64
	case project.FloatFP128, project.FloatPPCFP128:
		return 128
	case project.FloatX86FP80:
		return 80
	default:
		return 32
	}
}

// ByteSize returns the size in bytes of t; the bit size must be a multiple
// of 8.
func (o *Oracle) ByteSize(t project.Type) (uint64, error) {
	bits, err := o.BitSize(t)
	if err != nil {
		return 0, err
	}
	if bits%8 != 0 {
		return 0, &ErrNotByteMultiple{Bits: bits}
	}
	return bits / 8, nil
}

// FieldOffset returns the bit offset of the field at the given constant
// index within an aggregate, and the type of that field. For Structures,
// the offset is the sum of the preceding fields' sizes (no implicit
// padding). For Vector/Array the offset is index * element size.
func (o *Oracle) FieldOffset(t project.Type, index uint64) (offsetBits uint64, fieldType project.Type, err error) {
	switch t.Kind() {
	case project.KindStruct:
		fields := t.Fields()
		if index >= uint64(len(fields)) {
			return 0, project.Type{}, fmt.Errorf("sizeof: field index %d out of range for %s", index, t)
		}
		var offset uint64
		for i := uint64(0); i < index; i++ {
			sz, err := o.BitSize(fields[i])
			if err != nil {
				return 0, project.Type{}, err
			}
			offset += sz
		}
		return offset, fields[index], nil
	case project.KindArray, project.KindVector:
		elem := t.Elem()
		sz, err := o.BitSize(elem)
		if err != nil {
			return 0, project.Type{}, err
		}
		return sz * index, elem, nil
	default:
		return 0, project.Type{}, fmt.Errorf("sizeof: cannot index into %s type", t.Kind())
	}
}

// ByteOffsetConstant is FieldOffset expressed in bytes, for use by
// getelementptr's constant-index path.
func (o *Oracle) ByteOffsetConstant(t project.Type, index uint64) (offsetBytes uint64, fieldType project.Type, err error) {
	bits, fieldType, err := o.FieldOffset(t, index)
	if err != nil {
		return 0, project.Type{}, err
	}
	if bits%8 != 0 {
		return 0, project.Type{}, &ErrNotByteMultiple{Bits: bits}
	}
	return bits / 8, fieldType, nil
}

// ElemByteSize returns the per-element byte size used to scale a symbolic
// getelementptr index into a Vector or Array. Structures cannot be
// symbolically indexed (spec.md §9 "Symbolic struct indexing") — callers
// must reject that case as malformed-instruction before calling this.
func (o *Oracle) ElemByteSize(t project.Type) (uint64, error) {
	return o.ByteSize(t.Elem())
}

// PointerWidth returns the oracle's configured pointer width in bits.
func (o *Oracle) PointerWidth() uint32 {
	return o.pointerWidth
}
