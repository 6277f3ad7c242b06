package resolve

import (
	stderrors "errors"
	"sort"
	"strings"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/members"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

// candidate is a shape-compatible target member with the conversions a call
// through it needs.
type candidate struct {
	member  members.TargetMember
	params  []plan.Conv
	results []plan.Conv
	rank    int
	// bad is the first result that cannot be adapted, when rank is rankNone.
	bad [2]typesys.Type
}

func (c *candidate) rankResult(from, to typesys.Type) plan.Conv {
	conv, rank := resultConv(from, to)
	if rank > c.rank {
		c.rank = rank
		if rank == rankNone {
			c.bad = [2]typesys.Type{from, to}
		}
	}
	return conv
}

// matcher finds the target members a contract member can bind to.
type matcher struct {
	universe typesys.Universe
}

// candidates returns every shape-compatible candidate of m on d, in
// hierarchy order. Matching is kind-exact: methods never match fields.
// When no candidate is found and a generic source fit m except for a type
// argument that cannot be inferred, that failure is returned.
func (x matcher) candidates(m members.ContractMember, d *members.Descriptor) ([]candidate, error) {
	var (
		out        []candidate
		uninferred error
	)
	switch m.Kind {
	case contract.Method:
		for _, tm := range d.Named(members.TargetMethod, m.Lookup) {
			if c, ok := x.call(m, tm, tm.Sig); ok {
				out = append(out, c)
			}
		}
	case contract.Property:
		for _, tm := range d.Named(members.TargetField, m.Lookup) {
			if c, ok := x.property(m, tm); ok {
				out = append(out, c)
			}
		}
	case contract.Indexer:
		if self, ok := d.Self(); ok {
			if c, ok := x.indexer(m, self); ok {
				out = append(out, c)
			}
		}
		for _, tm := range d.Named(members.TargetField, m.Lookup) {
			if c, ok := x.indexer(m, tm); ok {
				out = append(out, c)
			}
		}
	case contract.Event:
		for _, tm := range d.Named(members.TargetField, m.Lookup) {
			if c, ok := x.event(m, tm); ok {
				out = append(out, c)
			}
		}
	case contract.Constructor, contract.Static:
		params := make([]typesys.Type, len(m.Sig.Params))
		for i := range params {
			params[i] = m.ParamType(i)
		}
		for i, fn := range m.Sources {
			if m.Kind == contract.Static && fn.Name != m.Lookup {
				continue
			}
			inst, err := x.universe.Instantiate(fn, params, m.Sig.Results)
			if err != nil {
				if uninferred == nil && stderrors.Is(err, errors.ErrInvalidMember) {
					uninferred = err
				}
				continue
			}
			tm := members.TargetMember{
				Kind:      members.TargetFunc,
				Name:      inst.Name,
				Qualified: inst.Qualified(),
				Sig:       inst.Sig,
				Func:      inst,
				Depth:     i,
				Order:     i,
			}
			if c, ok := x.call(m, tm, inst.Sig); ok {
				out = append(out, c)
			}
		}
	}
	if len(out) == 0 && uninferred != nil {
		return nil, uninferred
	}
	return out, nil
}

// call matches a method-shaped member against a callee signature.
func (x matcher) call(m members.ContractMember, tm members.TargetMember, sig typesys.Signature) (candidate, bool) {
	if len(sig.Params) != len(m.Sig.Params) || sig.Variadic != m.Sig.Variadic || len(sig.Results) != len(m.Sig.Results) {
		return candidate{}, false
	}
	c := candidate{member: tm}
	for i, p := range m.Sig.Params {
		conv, ok := paramConv(p, realOf(m, i), sig.Params[i])
		if !ok {
			return candidate{}, false
		}
		c.params = append(c.params, conv)
	}
	for i, r := range m.Sig.Results {
		c.results = append(c.results, c.rankResult(sig.Results[i], r))
	}
	return c, true
}

func (x matcher) property(m members.ContractMember, tm members.TargetMember) (candidate, bool) {
	c := candidate{member: tm}
	switch m.Accessor {
	case members.Get:
		c.results = []plan.Conv{c.rankResult(tm.Type, m.Sig.Results[0])}
	case members.Set:
		if !tm.Settable {
			return candidate{}, false
		}
		conv, ok := paramConv(m.Sig.Params[0], realOf(m, 0), tm.Type)
		if !ok {
			return candidate{}, false
		}
		c.params = []plan.Conv{conv}
	default:
		return candidate{}, false
	}
	return c, true
}

func (x matcher) indexer(m members.ContractMember, tm members.TargetMember) (candidate, bool) {
	container := tm.Type
	var keyType typesys.Type
	switch container.Kind() {
	case typesys.Map:
		keyType = container.MapKey()
	case typesys.Slice:
		if !m.Sig.Params[0].IsInteger() || len(m.Sig.Results) == 2 {
			return candidate{}, false
		}
	case typesys.Array:
		if !m.Sig.Params[0].IsInteger() || len(m.Sig.Results) == 2 || (m.Accessor == members.Set && !tm.Settable) {
			return candidate{}, false
		}
	default:
		return candidate{}, false
	}
	c := candidate{member: tm}
	if keyType != nil {
		conv, ok := paramConv(m.Sig.Params[0], realOf(m, 0), keyType)
		if !ok {
			return candidate{}, false
		}
		c.params = append(c.params, conv)
	} else {
		c.params = append(c.params, plan.Conv{Kind: plan.Assign, From: m.Sig.Params[0], To: m.Sig.Params[0]})
	}
	switch m.Accessor {
	case members.Get:
		c.results = append(c.results, c.rankResult(container.Elem(), m.Sig.Results[0]))
		if len(m.Sig.Results) == 2 {
			c.results = append(c.results, plan.Conv{Kind: plan.Assign, From: m.Sig.Results[1], To: m.Sig.Results[1]})
		}
	case members.Set:
		conv, ok := paramConv(m.Sig.Params[1], realOf(m, 1), container.Elem())
		if !ok {
			return candidate{}, false
		}
		c.params = append(c.params, conv)
	default:
		return candidate{}, false
	}
	return c, true
}

func (x matcher) event(m members.ContractMember, tm members.TargetMember) (candidate, bool) {
	if !tm.Settable || tm.Type.Kind() != typesys.Slice {
		return candidate{}, false
	}
	handler := m.Sig.Params[0]
	if !handler.Identical(tm.Type.Elem()) && !handler.AssignableTo(tm.Type.Elem()) {
		return candidate{}, false
	}
	return candidate{
		member: tm,
		params: []plan.Conv{{Kind: plan.Assign, From: handler, To: tm.Type.Elem()}},
	}, true
}

func realOf(m members.ContractMember, i int) typesys.Type {
	if i < len(m.RealParams) {
		return m.RealParams[i]
	}
	return nil
}

// pick orders candidates by return rank, then hierarchy depth, then order,
// and returns the best one. Two candidates tied on rank and depth are
// ambiguous. No candidates yields nil.
func pick(c typesys.Type, m members.ContractMember, cands []candidate) (*candidate, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.member.Depth != b.member.Depth {
			return a.member.Depth < b.member.Depth
		}
		return a.member.Order < b.member.Order
	})
	if len(cands) > 1 && cands[0].rank == cands[1].rank && cands[0].member.Depth == cands[1].member.Depth {
		names := make([]string, 0, len(cands))
		for _, cand := range cands {
			if cand.rank == cands[0].rank && cand.member.Depth == cands[0].member.Depth {
				names = append(names, describe(cand.member))
			}
		}
		return nil, errorc.With(
			errors.ErrAmbiguousMember,
			errorc.String(errors.ErrorFieldContractType, c.String()),
			errorc.String(errors.ErrorFieldMemberName, m.Name),
			errorc.String(errors.ErrorFieldCandidates, strings.Join(names, ", ")),
		)
	}
	return &cands[0], nil
}

func describe(tm members.TargetMember) string {
	switch tm.Kind {
	case members.TargetField:
		if tm.Qualified != tm.Name {
			return tm.Qualified + " " + tm.Type.String()
		}
		return tm.Declaring.String() + "." + tm.Name + " " + tm.Type.String()
	case members.TargetMethod:
		return tm.Declaring.String() + "." + tm.Name + " " + tm.Sig.String()
	case members.TargetFunc:
		return tm.Qualified + " " + tm.Sig.String()
	default:
		return tm.Kind.String() + " " + tm.Type.String()
	}
}
