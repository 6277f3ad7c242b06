package shim

import (
	"reflect"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/dispatch"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

// Plan is the resolution of one (contract, target) pair: one binding per
// contract method, in method order.
type Plan = plan.Plan

// Binding is the resolution of one contract method.
type Binding = plan.Binding

// Adapt returns target adapted to the contract interface C.
func Adapt[C any](r *Registry, target any) (C, error) {
	var zero C
	v, err := r.Adapt(typeOf[C](), target)
	if err != nil {
		return zero, err
	}
	return v.(C), nil
}

// Adapt returns target adapted to contract c. The result implements c.
func (r *Registry) Adapt(c reflect.Type, target any) (any, error) {
	if _, err := contractType(c); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errorc.With(errors.ErrNilTarget, errorc.String(errors.ErrorFieldContractType, c.String()))
	}
	a, err := r.adapter(c, reflect.TypeOf(target))
	if err != nil {
		return nil, err
	}
	return a.Wrap(target)
}

// Unadapt returns the value behind an adapter. Factories have none.
func Unadapt(adapted any) (any, error) {
	return dispatch.Target(adapted)
}

// CreateFactory returns an instance of C whose methods are all constructors
// or static functions, needing no target.
func CreateFactory[C any](r *Registry) (C, error) {
	var zero C
	v, err := r.CreateFactory(typeOf[C]())
	if err != nil {
		return zero, err
	}
	return v.(C), nil
}

// CreateFactory returns the factory of contract c.
func (r *Registry) CreateFactory(c reflect.Type) (any, error) {
	if _, err := contractType(c); err != nil {
		return nil, err
	}
	a, err := r.adapter(c, nil)
	if err != nil {
		return nil, err
	}
	return a.Wrap(nil)
}

// Configure sets how the methods of C bind. See package contract.
func Configure[C any](r *Registry, opts ...contract.Option) error {
	return r.Configure(typeOf[C](), opts...)
}

// TolerateMissingMembers lets C be adapted to targets lacking some of its
// methods. Calling such a method returns or panics with ErrNotImplemented.
func TolerateMissingMembers[C any](r *Registry) error {
	return r.TolerateMissingMembers(typeOf[C]())
}

// PlanOf returns the plan adapting the type of target to C, resolving it if
// needed. Resolving the same pair again returns the same plan.
func PlanOf[C any](r *Registry, target any) (*Plan, error) {
	ct, err := contractType(typeOf[C]())
	if err != nil {
		return nil, err
	}
	return r.engine.Resolve(ct, typesys.Of(reflect.TypeOf(target)))
}
