// Package memory implements the symbolic memory subsystem (spec.md §4.2):
// a flat byte-addressable store indexed by bit-vector addresses, backed by
// a linear bump allocator.
package memory

import (
	"fmt"
	"math/big"

	"symex/src/expr"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ErrZeroSizedAllocation is returned by Allocate when asked for a
// zero-bit allocation.
type ErrZeroSizedAllocation struct{}

func (e *ErrZeroSizedAllocation) Error() string { return "memory: zero-sized allocation" }

// ErrNotPowerOfTwo is returned by Allocate when the requested alignment is
// not a power of two.
type ErrNotPowerOfTwo struct{ Alignment uint64 }

func (e *ErrNotPowerOfTwo) Error() string {
	return fmt.Sprintf("memory: alignment %d is not a power of two", e.Alignment)
}

// ErrAddressSpaceExhausted is returned by Allocate when the bump allocator
// has no room left in the address space.
type ErrAddressSpaceExhausted struct{}

func (e *ErrAddressSpaceExhausted) Error() string { return "memory: address space exhausted" }

// ErrNullPointer is returned when null-pointer detection is enabled and the
// solver finds the address can be zero.
type ErrNullPointer struct{}

func (e *ErrNullPointer) Error() string { return "memory: null pointer dereference" }

// layer is one copy-on-write generation of the byte store: a lookup walks
// from the newest layer to the oldest, returning the first hit. Cloning a
// Memory freezes the current layer (by handing both the original and the
// clone a fresh, empty layer on top of it) instead of copying every byte,
// matching the "structural sharing" guidance of spec.md §9.
type layer struct {
	local  map[uint64]expr.Expr
	parent *layer
}

func (l *layer) get(addr uint64) (expr.Expr, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if v, ok := cur.local[addr]; ok {
			return v, true
		}
	}
	return expr.Expr{}, false
}

// Memory is the flat symbolic byte-addressable address space shared by one
// execution state lineage.
type Memory struct {
	ctx       *expr.Context
	top       *layer
	nextAddr  uint64
	width     uint32 // pointer width in bits
	nullCheck bool
}

// ---------------------
// ----- Constants -----
// ---------------------

// baseAddress is the first address the bump allocator hands out, chosen
// non-zero so the literal null pointer (address 0) is never a live
// allocation (spec.md §4.2 "Starts at a fixed non-zero base").
const baseAddress = 0x1000

// ---------------------
// ----- Functions -----
// ---------------------

// New returns an empty symbolic memory over the given pointer width.
func New(ctx *expr.Context, pointerWidth uint32, nullCheck bool) *Memory {
	return &Memory{
		ctx:       ctx,
		top:       &layer{local: make(map[uint64]expr.Expr)},
		nextAddr:  baseAddress,
		width:     pointerWidth,
		nullCheck: nullCheck,
	}
}

// addressSpaceLimit returns the exclusive upper bound of addressable space.
func (m *Memory) addressSpaceLimit() uint64 {
	if m.width >= 64 {
		return ^uint64(0)
	}
	return uint64(1) << m.width
}

// Allocate reserves sizeBits bits aligned to alignmentBytes and returns the
// concrete base address as a pointer-width expression.
func (m *Memory) Allocate(sizeBits uint64, alignmentBytes uint64) (expr.Expr, error) {
	if sizeBits == 0 {
		return expr.Expr{}, &ErrZeroSizedAllocation{}
	}
	if alignmentBytes == 0 || alignmentBytes&(alignmentBytes-1) != 0 {
		return expr.Expr{}, &ErrNotPowerOfTwo{Alignment: alignmentBytes}
	}
	sizeBytes := (sizeBits + 7) / 8

	base := m.nextAddr
	if rem := base % alignmentBytes; rem != 0 {
		base += alignmentBytes - rem
	}
	end := base + sizeBytes
	if end < base || end > m.addressSpaceLimit() {
		return expr.Expr{}, &ErrAddressSpaceExhausted{}
	}
	m.nextAddr = end
	return m.ctx.Const(base, m.width), nil
}

// byteAt returns the 8-bit expression stored at addr, lazily materializing
// a fresh unconstrained symbol for never-written memory (modeling
// uninitialized storage).
func (m *Memory) byteAt(addr uint64) expr.Expr {
	if v, ok := m.top.get(addr); ok {
		return v
	}
	v := m.ctx.Symbol(fmt.Sprintf("uninit_%#x", addr), 8)
	m.top.local[addr] = v
	return v
}

// Read returns the bitWidth-bit value stored starting at addr.
func (m *Memory) Read(addr uint64, bitWidth uint32) (expr.Expr, error) {
	if bitWidth < 8 {
		b := m.byteAt(addr)
		return b.Slice(0, bitWidth-1)
	}
	if bitWidth%8 != 0 {
		return expr.Expr{}, fmt.Errorf("memory: read width %d is not a multiple of 8", bitWidth)
	}
	n := uint64(bitWidth / 8)
	acc := m.byteAt(addr + n - 1)
	for i := n - 1; i > 0; i-- {
		acc = acc.Concat(m.byteAt(addr + i - 1))
	}
	return acc, nil
}

// Write stores value starting at addr, little-endian. Sub-byte values are
// zero-extended to a byte.
func (m *Memory) Write(addr uint64, value expr.Expr) error {
	w := value.Width()
	if w < 8 {
		v, err := value.ZExt(8)
		if err != nil {
			return err
		}
		value = v
		w = 8
	}
	if w%8 != 0 {
		return fmt.Errorf("memory: write width %d is not a multiple of 8", w)
	}
	n := uint64(w / 8)
	for i := uint64(0); i < n; i++ {
		b, err := value.Slice(uint32(i)*8, uint32(i)*8+7)
		if err != nil {
			return err
		}
		m.top.local[addr+i] = b
	}
	return nil
}

// ResolveAddresses returns up to upperBound distinct concrete addresses the
// symbolic address addr may take, per the current solver's constraints. If
// addr is already constant it is returned alone.
func (m *Memory) ResolveAddresses(solver expr.Solver, addr expr.Expr, upperBound int) ([]uint64, bool, error) {
	if v, ok := addr.GetConstant(); ok {
		return []uint64{v.Uint64()}, true, nil
	}
	if m.nullCheck {
		zero := m.ctx.Zero(addr.Width())
		isZero, err := addr.Eq(zero)
		if err != nil {
			return nil, false, err
		}
		sat, err := solver.IsSatWithConstraint(isZero)
		if err != nil {
			return nil, false, err
		}
		if sat {
			return nil, false, &ErrNullPointer{}
		}
	}
	values, exact, err := solver.GetValues(addr, upperBound)
	if err != nil {
		return nil, false, err
	}
	out := make([]uint64, len(values))
	for i, v := range values {
		out[i] = v.Uint64()
	}
	return out, exact, nil
}

// Clone returns an independent Memory sharing every byte written so far via
// structural sharing; subsequent writes to either copy are invisible to
// the other.
func (m *Memory) Clone() *Memory {
	frozen := m.top
	m.top = &layer{local: make(map[uint64]expr.Expr), parent: frozen}
	return &Memory{
		ctx:       m.ctx,
		top:       &layer{local: make(map[uint64]expr.Expr), parent: frozen},
		nextAddr:  m.nextAddr,
		width:     m.width,
		nullCheck: m.nullCheck,
	}
}

// AddressConst builds a constant pointer-width expression for addr; used by
// callers that need to compare a resolved concrete address back against a
// symbolic one (e.g. asserting addr == solution on a forked path).
func (m *Memory) AddressConst(addr uint64) expr.Expr {
	return m.ctx.Const(addr, m.width)
}

// AddressBig builds a constant pointer-width expression from an arbitrary
// precision address.
func (m *Memory) AddressBig(addr *big.Int) expr.Expr {
	return m.ctx.ConstBig(addr, m.width)
}
