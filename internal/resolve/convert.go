package resolve

import (
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

// Return ranks, best first.
const (
	rankExact = iota
	rankAdapt
	rankNone
)

// resultConv converts a callee result of type from to a contract result of
// type to, and ranks how well they fit.
func resultConv(from, to typesys.Type) (plan.Conv, int) {
	if from.Identical(to) || from.AssignableTo(to) {
		return plan.Conv{Kind: plan.Assign, From: from, To: to}, rankExact
	}
	if typesys.IsContract(to) {
		return plan.Conv{Kind: plan.Wrap, From: from, To: to}, rankAdapt
	}
	if seq, ok := sequenceKind(from, to); ok {
		elem, rank := resultConv(from.Elem(), to.Elem())
		if rank == rankNone {
			return plan.Conv{}, rankNone
		}
		return plan.Conv{Kind: seq, From: from, To: to, Elem: &elem}, rankAdapt
	}
	return plan.Conv{}, rankNone
}

// paramConv converts a contract argument of declared type from to a callee
// parameter of type to. real, when set, is the concrete type declared to be
// behind from and is what the callee parameter is checked against.
func paramConv(from, real, to typesys.Type) (plan.Conv, bool) {
	if real != nil && !real.Identical(from) {
		if !real.Identical(to) && !real.AssignableTo(to) {
			return plan.Conv{}, false
		}
		if from.AssignableTo(to) {
			return plan.Conv{Kind: plan.Assign, From: from, To: to}, true
		}
		if !typesys.IsContract(from) {
			return plan.Conv{}, false
		}
		return plan.Conv{Kind: plan.Unwrap, From: from, To: real}, true
	}
	if from.Identical(to) || from.AssignableTo(to) {
		return plan.Conv{Kind: plan.Assign, From: from, To: to}, true
	}
	if typesys.IsContract(from) && to.Kind() != typesys.Interface {
		return plan.Conv{Kind: plan.Unwrap, From: from, To: to}, true
	}
	if seq, ok := sequenceKind(from, to); ok {
		elem, ok := paramConv(from.Elem(), nil, to.Elem())
		if !ok {
			return plan.Conv{}, false
		}
		return plan.Conv{Kind: seq, From: from, To: to, Elem: &elem}, true
	}
	return plan.Conv{}, false
}

func sequenceKind(from, to typesys.Type) (plan.ConvKind, bool) {
	switch {
	case from.Kind() == typesys.Slice && to.Kind() == typesys.Slice:
		return plan.Slice, true
	case from.Kind() == typesys.Array && to.Kind() == typesys.Array && from.Len() == to.Len():
		return plan.Array, true
	default:
		return 0, false
	}
}

// assignConvs builds no-op conversions for types passed through unchanged.
func assignConvs(ts []typesys.Type) []plan.Conv {
	out := make([]plan.Conv, len(ts))
	for i, t := range ts {
		out[i] = plan.Conv{Kind: plan.Assign, From: t, To: t}
	}
	return out
}
