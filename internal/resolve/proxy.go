package resolve

import (
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/members"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

// bindProxy redirects m to its proxy. found is the target member m resolves
// to without the proxy, or nil.
func (r *resolver) bindProxy(m members.ContractMember, found *candidate) (plan.Binding, error) {
	px := m.Proxy
	switch px.Mode {
	case contract.Override:
		if found == nil {
			return plan.Binding{}, errorc.With(
				errors.ErrProxyOverrideMissing,
				errorc.String(errors.ErrorFieldContractType, r.contract.String()),
				errorc.String(errors.ErrorFieldMemberName, m.Name),
				errorc.String(errors.ErrorFieldProxyFunc, px.Func.Qualified()),
			)
		}
	case contract.Add:
		if found != nil {
			return plan.Binding{}, errorc.With(
				errors.ErrProxyAddExisting,
				errorc.String(errors.ErrorFieldContractType, r.contract.String()),
				errorc.String(errors.ErrorFieldMemberName, m.Name),
				errorc.String(errors.ErrorFieldProxyFunc, px.Func.Qualified()),
				errorc.String(errors.ErrorFieldTargetMember, describe(found.member)),
			)
		}
	}

	want := m.Sig.Params
	if m.Kind.Instance() {
		want = append([]typesys.Type{r.contract}, want...)
	}
	fn, err := r.universe.Instantiate(px.Func, want, m.Sig.Results)
	if err != nil || !proxyFits(fn.Sig, want, m.Sig) {
		return plan.Binding{}, errorc.With(
			errors.ErrInvalidProxy,
			errorc.String(errors.ErrorFieldContractType, r.contract.String()),
			errorc.String(errors.ErrorFieldMemberName, m.Name),
			errorc.String(errors.ErrorFieldProxyFunc, px.Func.Qualified()),
			errorc.String(errors.ErrorFieldProxyMode, px.Mode.String()),
			errorc.String(errors.ErrorFieldSignature, px.Func.Sig.String()),
		)
	}

	b := plan.Binding{
		Member: m,
		Proxy:  &members.Proxy{Mode: px.Mode, Func: fn},
	}
	if found == nil {
		b.Params = assignConvs(m.Sig.Params)
		b.Results = assignConvs(m.Sig.Results)
		return b, nil
	}
	if found.rank == rankNone {
		return plan.Binding{}, r.notAdaptable(m, found)
	}
	r.attach(&b, found)
	b.Reentrant = true
	return b, nil
}

// proxyFits checks that the proxy accepts want and returns what the
// contract member returns.
func proxyFits(sig typesys.Signature, want []typesys.Type, member typesys.Signature) bool {
	if len(sig.Params) != len(want) || sig.Variadic != member.Variadic || len(sig.Results) != len(member.Results) {
		return false
	}
	for i, p := range want {
		if !p.Identical(sig.Params[i]) && !p.AssignableTo(sig.Params[i]) {
			return false
		}
	}
	for i, res := range sig.Results {
		if !res.Identical(member.Results[i]) && !res.AssignableTo(member.Results[i]) {
			return false
		}
	}
	return true
}
