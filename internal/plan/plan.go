// Package plan holds the immutable result of resolving a contract against a
// target: one Binding per contract member. Synthesizers consume nothing else.
package plan

import (
	"github.com/ygrebnov/shim/internal/members"
	"github.com/ygrebnov/shim/internal/typesys"
)

// ConvKind says how a value crosses from one side of a binding to the other.
type ConvKind uint8

const (
	// Assign passes the value as is; it is identical or assignable.
	Assign ConvKind = iota
	// Wrap adapts a concrete value (From) to the contract To.
	Wrap
	// Unwrap recovers the concrete value (To) behind an adapter of contract From.
	Unwrap
	// Slice converts a slice element by element.
	Slice
	// Array converts an array element by element.
	Array
)

func (k ConvKind) String() string {
	switch k {
	case Assign:
		return "assign"
	case Wrap:
		return "wrap"
	case Unwrap:
		return "unwrap"
	case Slice:
		return "slice"
	case Array:
		return "array"
	default:
		return "unknown"
	}
}

// Conv converts a value of type From to type To.
type Conv struct {
	Kind ConvKind
	From typesys.Type
	To   typesys.Type
	// Elem converts elements of Slice and Array conversions.
	Elem *Conv
}

// Pair returns the (contract, target) pair a Wrap or Unwrap conversion needs.
func (c Conv) Pair() (contract, target typesys.Type, ok bool) {
	switch c.Kind {
	case Wrap:
		return c.To, c.From, true
	case Unwrap:
		return c.From, c.To, true
	default:
		return nil, nil, false
	}
}

// Trivial reports whether the conversion, including nested ones, is a no-op.
func (c Conv) Trivial() bool {
	return c.Kind == Assign
}

// Walk visits c and its nested element conversions.
func (c Conv) Walk(fn func(Conv)) {
	fn(c)
	if c.Elem != nil {
		c.Elem.Walk(fn)
	}
}

// Binding is the resolution of one contract member.
type Binding struct {
	Member members.ContractMember
	// Target is the resolved target member; nil for added proxies, missing
	// members and constructor/static members.
	Target *members.TargetMember
	// Func is the constructor factory or static function called.
	Func *members.TargetMember
	// Proxy, when set, is called instead of Target.
	Proxy *members.Proxy
	// Reentrant reports an override proxy whose callbacks reach Target.
	Reentrant bool
	// Missing marks a tolerated unresolved member.
	Missing bool
	// Params convert contract arguments to the callee's parameters.
	Params []Conv
	// Results convert the callee's results to the contract results.
	Results []Conv
}

// Name returns the contract member name.
func (b Binding) Name() string { return b.Member.Name }

// Wraps reports whether any result needs adapting.
func (b Binding) Wraps() bool {
	for _, c := range b.Results {
		if !c.Trivial() {
			return true
		}
	}
	return false
}

// Unwraps reports whether any parameter needs unwrapping.
func (b Binding) Unwraps() bool {
	for _, c := range b.Params {
		if !c.Trivial() {
			return true
		}
	}
	return false
}

// Plan is the ordered list of Bindings of one (contract, target) pair.
// Target is nil for factories whose members are all static.
type Plan struct {
	Contract typesys.Type
	Target   typesys.Type
	Bindings []Binding
	// Tolerant records that missing members were tolerated when resolving.
	Tolerant bool
}

// Key identifies a (contract, target) pair.
type Key struct {
	Contract any
	Target   any
}

// KeyOf builds the key of a pair. A nil target keys a factory.
func KeyOf(c, t typesys.Type) Key {
	k := Key{Contract: c.Key()}
	if t != nil {
		k.Target = t.Key()
	}
	return k
}

// Key returns the pair key of the plan.
func (p *Plan) Key() Key {
	return KeyOf(p.Contract, p.Target)
}

// Proxied reports whether any binding keeps per-instance re-entrancy state.
func (p *Plan) Proxied() bool {
	for _, b := range p.Bindings {
		if b.Reentrant {
			return true
		}
	}
	return false
}

// Pairs returns the (contract, target) pairs the bindings convert through,
// in binding order, without duplicates.
func (p *Plan) Pairs() [][2]typesys.Type {
	seen := make(map[Key]bool)
	var out [][2]typesys.Type
	visit := func(c Conv) {
		ct, tt, ok := c.Pair()
		if !ok {
			return
		}
		k := KeyOf(ct, tt)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, [2]typesys.Type{ct, tt})
	}
	for _, b := range p.Bindings {
		for _, c := range b.Params {
			c.Walk(visit)
		}
		for _, c := range b.Results {
			c.Walk(visit)
		}
	}
	return out
}
