package dispatch

import (
	"reflect"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/members"
	"github.com/ygrebnov/shim/internal/typesys"
)

type invoke = func(args []reflect.Value) []reflect.Value

// invoker builds the func field of slot i for one instance.
func (a *Adapter) invoker(in *instance, i int) invoke {
	s := &a.slots[i]
	direct := a.direct(in, s)
	if s.binding.Proxy == nil {
		return direct
	}
	proxy := a.proxy(in, s)
	if !s.binding.Reentrant || direct == nil {
		return proxy
	}
	busy := &in.busy[i]
	return func(args []reflect.Value) []reflect.Value {
		if !busy.CompareAndSwap(false, true) {
			return direct(args)
		}
		defer busy.Store(false)
		return proxy(args)
	}
}

// direct dispatches to the bound target member, or nil for added proxies.
func (a *Adapter) direct(in *instance, s *slot) invoke {
	b := s.binding
	switch {
	case b.Missing:
		return func([]reflect.Value) []reflect.Value {
			return fail(s.outs, a.notImplemented(b.Name()))
		}
	case b.Func != nil:
		return a.call(s, b.Func.Func.Value.(reflect.Value))
	case b.Target == nil:
		return nil
	}

	tm := b.Target
	if tm.Kind == members.TargetMethod {
		return a.call(s, in.target.MethodByName(tm.Name))
	}
	locate := func() (reflect.Value, error) {
		if tm.Kind == members.TargetSelf {
			return in.target, nil
		}
		return fieldOf(in.target, tm.Path)
	}
	switch b.Member.Kind {
	case contract.Property:
		return a.property(s, locate)
	case contract.Indexer:
		return a.indexer(s, locate)
	case contract.Event:
		return func(args []reflect.Value) []reflect.Value {
			f, err := locate()
			if err != nil {
				panic(err)
			}
			f.Set(reflect.Append(f, assign(args[0], f.Type().Elem())))
			return nil
		}
	}
	return nil
}

func (a *Adapter) call(s *slot, fn reflect.Value) invoke {
	b := s.binding
	ft := fn.Type()
	return func(args []reflect.Value) []reflect.Value {
		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			v, err := a.conv.convert(b.Params[i], arg)
			if err != nil {
				panic(err)
			}
			in[i] = assign(v, ft.In(i))
		}
		var out []reflect.Value
		if ft.IsVariadic() {
			out = fn.CallSlice(in)
		} else {
			out = fn.Call(in)
		}
		return a.results(s, out)
	}
}

func (a *Adapter) results(s *slot, out []reflect.Value) []reflect.Value {
	for i, v := range out {
		c, err := a.conv.convert(s.binding.Results[i], v)
		if err != nil {
			panic(err)
		}
		out[i] = assign(c, s.outs[i])
	}
	return out
}

func (a *Adapter) property(s *slot, locate func() (reflect.Value, error)) invoke {
	b := s.binding
	if b.Member.Accessor == members.Set {
		return func(args []reflect.Value) []reflect.Value {
			f, err := locate()
			if err != nil {
				panic(err)
			}
			v, err := a.conv.convert(b.Params[0], args[0])
			if err != nil {
				panic(err)
			}
			f.Set(assign(v, f.Type()))
			return nil
		}
	}
	return func([]reflect.Value) []reflect.Value {
		f, err := locate()
		if err != nil {
			panic(err)
		}
		return a.results(s, []reflect.Value{f})
	}
}

func (a *Adapter) indexer(s *slot, locate func() (reflect.Value, error)) invoke {
	b := s.binding
	return func(args []reflect.Value) []reflect.Value {
		c, err := locate()
		if err != nil {
			panic(err)
		}
		if c.Kind() == reflect.Map {
			k, err := a.conv.convert(b.Params[0], args[0])
			if err != nil {
				panic(err)
			}
			k = assign(k, c.Type().Key())
			if b.Member.Accessor == members.Set {
				v, err := a.conv.convert(b.Params[1], args[1])
				if err != nil {
					panic(err)
				}
				c.SetMapIndex(k, assign(v, c.Type().Elem()))
				return nil
			}
			v := c.MapIndex(k)
			found := v.IsValid()
			if !found {
				v = reflect.Zero(c.Type().Elem())
			}
			out := a.results(s, []reflect.Value{v})
			if len(s.outs) == 2 {
				out = append(out, reflect.ValueOf(found).Convert(s.outs[1]))
			}
			return out
		}

		e := c.Index(index(args[0]))
		if b.Member.Accessor == members.Set {
			v, err := a.conv.convert(b.Params[1], args[1])
			if err != nil {
				panic(err)
			}
			e.Set(assign(v, e.Type()))
			return nil
		}
		return a.results(s, []reflect.Value{e})
	}
}

// proxy calls the proxy function, passing the adapter first for instance
// members.
func (a *Adapter) proxy(in *instance, s *slot) invoke {
	fn := s.binding.Proxy.Func.Value.(reflect.Value)
	ft := fn.Type()
	withSelf := s.binding.Member.Kind.Instance()
	return func(args []reflect.Value) []reflect.Value {
		call := make([]reflect.Value, 0, len(args)+1)
		if withSelf {
			call = append(call, assign(in.self, ft.In(0)))
		}
		for _, arg := range args {
			call = append(call, assign(arg, ft.In(len(call))))
		}
		var out []reflect.Value
		if ft.IsVariadic() {
			out = fn.CallSlice(call)
		} else {
			out = fn.Call(call)
		}
		for i := range out {
			out[i] = assign(out[i], s.outs[i])
		}
		return out
	}
}

func (a *Adapter) notImplemented(member string) error {
	target := "<factory>"
	if a.target != nil {
		target = a.target.String()
	}
	return errorc.With(
		errors.ErrNotImplemented,
		errorc.String(errors.ErrorFieldContractType, a.contract.String()),
		errorc.String(errors.ErrorFieldTargetType, target),
		errorc.String(errors.ErrorFieldMemberName, member),
	)
}

// fieldOf follows an embedding path from the target.
func fieldOf(v reflect.Value, path []typesys.Field) (reflect.Value, error) {
	for _, f := range path {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}, errorc.With(
					errors.ErrNilTarget,
					errorc.String(errors.ErrorFieldTargetType, v.Type().String()),
					errorc.String(errors.ErrorFieldTargetMember, f.Name),
				)
			}
			v = v.Elem()
		}
		v = v.Field(f.Index)
	}
	return v, nil
}

func index(v reflect.Value) int {
	if v.CanInt() {
		return int(v.Int())
	}
	return int(v.Uint())
}
