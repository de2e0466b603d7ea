package expr

import (
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Context creates and combines bit-vector expressions. A Context is safe
// for concurrent use; the engine itself explores one path at a time (§5 of
// the specification), but a single Context is shared read-only by every
// cloned execution state, so its symbol-naming counter is synchronised.
type Context struct {
	seq   uint64
	names sync.Map // map[string]struct{}, every name handed out; not checked for collisions
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewContext returns a fresh, empty expression context.
func NewContext() *Context {
	return &Context{}
}

// Symbol returns a fresh unconstrained named symbol of the given width. If
// name is empty a unique name is generated.
func (c *Context) Symbol(name string, width uint32) Expr {
	if name == "" {
		n := atomic.AddUint64(&c.seq, 1)
		name = fmt.Sprintf("sym%d", n)
	}
	c.names.Store(name, struct{}{})
	return Expr{op: OpSymbol, width: width, name: name}
}

// Const returns a constant bit-vector expression with value v, truncated to
// width bits.
func (c *Context) Const(v uint64, width uint32) Expr {
	return Expr{op: OpConst, width: width, constant: mask(new(big.Int).SetUint64(v), width)}
}

// ConstBig returns a constant bit-vector expression from an arbitrary
// precision value, truncated to width bits.
func (c *Context) ConstBig(v *big.Int, width uint32) Expr {
	return Expr{op: OpConst, width: width, constant: mask(v, width)}
}

// ConstSigned returns a constant bit-vector expression from a signed value,
// truncated to width bits.
func (c *Context) ConstSigned(v int64, width uint32) Expr {
	return Expr{op: OpConst, width: width, constant: mask(big.NewInt(v), width)}
}

// Bool returns a width-1 constant: 1 if v, 0 otherwise.
func (c *Context) Bool(v bool) Expr {
	return Expr{op: OpConst, width: 1, constant: boolExpr(v)}
}

// Zero returns the all-zero constant of the given width.
func (c *Context) Zero(width uint32) Expr {
	return c.Const(0, width)
}

// One returns the constant 1 of the given width.
func (c *Context) One(width uint32) Expr {
	return c.Const(1, width)
}

// UnsignedMax returns the all-ones constant of the given width.
func (c *Context) UnsignedMax(width uint32) Expr {
	v := new(big.Int).Lsh(big.NewInt(1), uint(width))
	v.Sub(v, big.NewInt(1))
	return c.ConstBig(v, width)
}

// UnsignedMin returns the zero constant of the given width (alias of Zero,
// named to mirror SignedMin/SignedMax).
func (c *Context) UnsignedMin(width uint32) Expr {
	return c.Zero(width)
}

// SignedMax returns the maximum representable signed value of the given
// width (0x7f...f).
func (c *Context) SignedMax(width uint32) Expr {
	v := new(big.Int).Lsh(big.NewInt(1), uint(width-1))
	v.Sub(v, big.NewInt(1))
	return c.ConstBig(v, width)
}

// SignedMin returns the minimum representable signed value of the given
// width (0x80...0).
func (c *Context) SignedMin(width uint32) Expr {
	v := new(big.Int).Lsh(big.NewInt(1), uint(width-1))
	return c.ConstBig(v, width)
}
