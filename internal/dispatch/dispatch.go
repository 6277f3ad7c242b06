// Package dispatch synthesizes adapters at run time. Go cannot define
// method-bearing types while running, so every contract has a shell: a
// compiled struct implementing the contract by calling one func field per
// method. An Adapter fills those fields of a fresh shell with closures built
// by reflect.MakeFunc that delegate to the target as its plan says.
package dispatch

import (
	"reflect"
	"sync/atomic"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/constants"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

// Adapted is implemented by the adapters of both backends.
type Adapted interface {
	// ShimTarget returns the adapted value, nil for factories.
	ShimTarget() any
}

// Shell is implemented by every shell type.
type Shell interface {
	Adapted
	// BindTarget stores the adapted value.
	BindTarget(target any)
}

// Nested supplies the adapters that wrapped results need, at call time.
type Nested func(contract, target reflect.Type) (*Adapter, error)

// slot is the precomputed dispatch of one binding.
type slot struct {
	binding plan.Binding
	field   int
	typ     reflect.Type
	outs    []reflect.Type
}

// Adapter builds adapter instances of one plan.
type Adapter struct {
	plan     *plan.Plan
	contract reflect.Type
	target   reflect.Type
	newShell func() any
	conv     converter
	slots    []slot
}

// New prepares the adapter of p. newShell must return a pointer to a fresh
// shell struct of p's contract.
func New(p *plan.Plan, newShell func() any, nested Nested) (*Adapter, error) {
	ct, ok := typesys.ReflectType(p.Contract)
	if !ok {
		return nil, errorc.With(
			errors.ErrInvalidContract,
			errorc.String(errors.ErrorFieldContractType, p.Contract.String()),
			errorc.String(errors.ErrorFieldCause, "not a run-time type"),
		)
	}
	a := &Adapter{
		plan:     p,
		contract: ct,
		newShell: newShell,
		conv:     converter{nested: nested},
	}
	if p.Target != nil {
		a.target, _ = typesys.ReflectType(p.Target)
	}
	if newShell == nil {
		return nil, errorc.With(errors.ErrNoShell, errorc.String(errors.ErrorFieldContractType, ct.String()))
	}

	probe := newShell()
	sv := reflect.ValueOf(probe)
	if _, isShell := probe.(Shell); !isShell || sv.Kind() != reflect.Ptr || sv.Elem().Kind() != reflect.Struct ||
		!sv.Type().Implements(ct) {
		return nil, invalidShell(ct, probe, "shell must be a pointer to a struct implementing the contract")
	}
	st := sv.Elem().Type()

	for _, b := range p.Bindings {
		m, ok := ct.MethodByName(b.Name())
		if !ok {
			return nil, invalidShell(ct, probe, "contract has no method "+b.Name())
		}
		f, ok := st.FieldByName(constants.ShellFieldPrefix + b.Name())
		if !ok || len(f.Index) != 1 || f.Type != m.Type {
			return nil, invalidShell(ct, probe, "missing or mistyped field "+constants.ShellFieldPrefix+b.Name())
		}
		s := slot{binding: b, field: f.Index[0], typ: f.Type}
		for i := 0; i < m.Type.NumOut(); i++ {
			s.outs = append(s.outs, m.Type.Out(i))
		}
		a.slots = append(a.slots, s)
	}
	return a, nil
}

func invalidShell(ct reflect.Type, shell any, cause string) error {
	return errorc.With(
		errors.ErrInvalidShell,
		errorc.String(errors.ErrorFieldContractType, ct.String()),
		errorc.String(errors.ErrorFieldShellType, typeString(shell)),
		errorc.String(errors.ErrorFieldCause, cause),
	)
}

func typeString(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}

// Plan returns the plan the adapter dispatches by.
func (a *Adapter) Plan() *plan.Plan {
	return a.plan
}

// Contract returns the contract the adapter implements.
func (a *Adapter) Contract() reflect.Type {
	return a.contract
}

// instance is the state of one adapter value.
type instance struct {
	target reflect.Value
	self   reflect.Value
	// busy holds the re-entrancy flag of each binding.
	busy []atomic.Bool
}

// Wrap returns a new adapter value delegating to target. Factories take a
// nil target.
func (a *Adapter) Wrap(target any) (any, error) {
	tv := reflect.ValueOf(target)
	switch {
	case a.target == nil:
		if target != nil {
			return nil, a.mismatch(tv.Type())
		}
	case !tv.IsValid() || isNil(tv):
		return nil, errorc.With(
			errors.ErrNilTarget,
			errorc.String(errors.ErrorFieldContractType, a.contract.String()),
			errorc.String(errors.ErrorFieldTargetType, a.target.String()),
		)
	case !tv.Type().AssignableTo(a.target):
		return nil, a.mismatch(tv.Type())
	}

	shell := a.newShell()
	shell.(Shell).BindTarget(target)
	in := &instance{target: tv, self: reflect.ValueOf(shell)}
	if a.plan.Proxied() {
		in.busy = make([]atomic.Bool, len(a.slots))
	}
	sv := in.self.Elem()
	for i := range a.slots {
		s := &a.slots[i]
		sv.Field(s.field).Set(reflect.MakeFunc(s.typ, a.invoker(in, i)))
	}
	return shell, nil
}

func (a *Adapter) mismatch(got reflect.Type) error {
	want := "<factory>"
	if a.target != nil {
		want = a.target.String()
	}
	return errorc.With(
		errors.ErrNotAdaptable,
		errorc.String(errors.ErrorFieldContractType, a.contract.String()),
		errorc.String(errors.ErrorFieldFromType, got.String()),
		errorc.String(errors.ErrorFieldToType, want),
	)
}

// Target returns the value behind an adapter.
func Target(adapted any) (any, error) {
	s, ok := adapted.(Adapted)
	if !ok {
		return nil, errorc.With(errors.ErrNotAdapter, errorc.String(errors.ErrorFieldFromType, typeString(adapted)))
	}
	return s.ShimTarget(), nil
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
