package dispatch

import (
	"reflect"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// converter applies plan conversions to run-time values.
type converter struct {
	nested Nested
}

func (x converter) convert(c plan.Conv, v reflect.Value) (reflect.Value, error) {
	to := rtype(c.To)
	switch c.Kind {
	case plan.Wrap:
		return x.wrap(c, v)
	case plan.Unwrap:
		return x.unwrap(c, v)
	case plan.Slice:
		if v.IsNil() {
			return reflect.Zero(to), nil
		}
		out := reflect.MakeSlice(to, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			e, err := x.convert(*c.Elem, v.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(e)
		}
		return out, nil
	case plan.Array:
		out := reflect.New(to).Elem()
		for i := 0; i < v.Len(); i++ {
			e, err := x.convert(*c.Elem, v.Index(i))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(e)
		}
		return out, nil
	default:
		return assign(v, to), nil
	}
}

// wrap adapts a concrete value to the contract c.To. Nil values stay nil.
func (x converter) wrap(c plan.Conv, v reflect.Value) (reflect.Value, error) {
	to := rtype(c.To)
	if !v.IsValid() || isNil(v) {
		return reflect.Zero(to), nil
	}
	a, err := x.nested(to, rtype(c.From))
	if err != nil {
		return reflect.Value{}, err
	}
	w, err := a.Wrap(v.Interface())
	if err != nil {
		return reflect.Value{}, err
	}
	return assign(reflect.ValueOf(w), to), nil
}

// unwrap recovers the concrete value behind a contract value: the value
// itself when it already has the wanted type, else the adapter's target.
func (x converter) unwrap(c plan.Conv, v reflect.Value) (reflect.Value, error) {
	to := rtype(c.To)
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(to), nil
		}
		v = v.Elem()
	}
	if v.Type().AssignableTo(to) {
		return assign(v, to), nil
	}
	if s, ok := v.Interface().(Adapted); ok {
		if t := s.ShimTarget(); t != nil {
			if tv := reflect.ValueOf(t); tv.Type().AssignableTo(to) {
				return assign(tv, to), nil
			}
		}
	}
	return reflect.Value{}, errorc.With(
		errors.ErrNotAdapter,
		errorc.String(errors.ErrorFieldFromType, v.Type().String()),
		errorc.String(errors.ErrorFieldToType, to.String()),
	)
}

// assign returns v as a value of type t, which v must be assignable to.
func assign(v reflect.Value, t reflect.Type) reflect.Value {
	if !v.IsValid() {
		return reflect.Zero(t)
	}
	if v.Type() == t {
		return v
	}
	out := reflect.New(t).Elem()
	out.Set(v)
	return out
}

func rtype(t typesys.Type) reflect.Type {
	rt, _ := typesys.ReflectType(t)
	return rt
}

// fail reports a not-implemented member: as the trailing error result when
// the member has one, else by panicking. Other call-time failures panic.
func fail(outs []reflect.Type, err error) []reflect.Value {
	if n := len(outs); n == 0 || outs[n-1] != errorType {
		panic(err)
	}
	out := make([]reflect.Value, len(outs))
	for i, t := range outs[:len(outs)-1] {
		out[i] = reflect.Zero(t)
	}
	out[len(out)-1] = reflect.ValueOf(&err).Elem()
	return out
}
