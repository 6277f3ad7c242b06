package shim

import (
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/dispatch"
)

// Adapter is a reusable, precompiled adapter from T to the contract C. The
// pair is resolved and synthesized once, by NewAdapter; Adapt does no
// registry lookup. It outlives Registry.Reset.
type Adapter[C, T any] struct {
	a *dispatch.Adapter
}

// NewAdapter resolves (C, T) in r and returns its adapter.
func NewAdapter[C, T any](r *Registry) (*Adapter[C, T], error) {
	c := typeOf[C]()
	if _, err := contractType(c); err != nil {
		return nil, err
	}
	a, err := r.adapter(c, typeOf[T]())
	if err != nil {
		return nil, err
	}
	return &Adapter[C, T]{a: a}, nil
}

// Adapt returns target adapted to C.
func (b *Adapter[C, T]) Adapt(target T) (C, error) {
	var zero C
	if b == nil || b.a == nil {
		return zero, errorc.With(errors.ErrNotAdapter, errorc.String(errors.ErrorFieldContractType, typeOf[C]().String()))
	}
	v, err := b.a.Wrap(target)
	if err != nil {
		return zero, err
	}
	return v.(C), nil
}

// Plan returns the plan the adapter executes.
func (b *Adapter[C, T]) Plan() *Plan {
	return b.a.Plan()
}
