package shim

import (
	"reflect"
	"sync"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/dispatch"
)

var shells sync.Map // map[reflect.Type]func() any

// Shell is embedded by shell types. It stores the value an adapter wraps.
type Shell struct {
	target any
}

// ShimTarget returns the wrapped value.
func (s *Shell) ShimTarget() any { return s.target }

// BindTarget stores the wrapped value.
func (s *Shell) BindTarget(target any) { s.target = target }

var _ dispatch.Shell = (*Shell)(nil)

// RegisterShell makes newShell the shell constructor of contract C for every
// Registry of the process. newShell must return a new pointer to a struct
// embedding Shell with one func field W<Method> per method of C. shimgen
// shell writes such types with their registration.
func RegisterShell[C any](newShell func() C) {
	shells.Store(typeOf[C](), func() any { return newShell() })
}

func lookupShell(contract reflect.Type) (func() any, bool) {
	v, ok := shells.Load(contract)
	if !ok {
		return nil, false
	}
	return v.(func() any), true
}

// MustUnwrap returns v as a T: v itself when it is one, else the value
// behind the adapter v. It panics with ErrNotAdapter otherwise. Generated
// adapters call it to unwrap contract arguments.
func MustUnwrap[T any](v any) T {
	var zero T
	if v == nil {
		return zero
	}
	if t, ok := v.(T); ok {
		return t
	}
	if a, ok := v.(dispatch.Adapted); ok {
		if t, ok := a.ShimTarget().(T); ok {
			return t
		}
	}
	panic(errorc.With(
		errors.ErrNotAdapter,
		errorc.String(errors.ErrorFieldFromType, reflect.TypeOf(v).String()),
		errorc.String(errors.ErrorFieldToType, typeOf[T]().String()),
	))
}

// NotImplemented is the signal of a tolerated missing member. Generated
// adapters return or panic with it.
func NotImplemented(contract, target, member string) error {
	return errorc.With(
		errors.ErrNotImplemented,
		errorc.String(errors.ErrorFieldContractType, contract),
		errorc.String(errors.ErrorFieldTargetType, target),
		errorc.String(errors.ErrorFieldMemberName, member),
	)
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
