package typesys

import (
	"go/types"
	"strings"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/errors"
)

// gtype is a Type of the go/types universe. go/types does not canonicalize
// composite types, so identity is keyed by the fully qualified type string.
type gtype struct {
	t   types.Type
	key string
}

// FromGoTypes wraps a types.Type.
func FromGoTypes(t types.Type) Type {
	if t == nil {
		return nil
	}
	return gtype{t: t, key: types.TypeString(t, nil)}
}

func goType(t Type) (types.Type, bool) {
	if t == nil {
		return nil, false
	}
	gt, ok := t.Raw().(types.Type)
	return gt, ok
}

func (g gtype) Key() any       { return g.key }
func (g gtype) String() string { return g.key }
func (g gtype) Raw() any       { return g.t }

func (g gtype) Kind() Kind {
	switch g.t.Underlying().(type) {
	case *types.Basic:
		return Basic
	case *types.Interface:
		return Interface
	case *types.Struct:
		return Struct
	case *types.Pointer:
		return Pointer
	case *types.Slice:
		return Slice
	case *types.Array:
		return Array
	case *types.Map:
		return Map
	case *types.Signature:
		return Function
	case *types.Chan:
		return Chan
	default:
		return Other
	}
}

func (g gtype) Elem() Type {
	switch u := g.t.Underlying().(type) {
	case *types.Pointer:
		return FromGoTypes(u.Elem())
	case *types.Slice:
		return FromGoTypes(u.Elem())
	case *types.Array:
		return FromGoTypes(u.Elem())
	case *types.Map:
		return FromGoTypes(u.Elem())
	case *types.Chan:
		return FromGoTypes(u.Elem())
	default:
		return nil
	}
}

func (g gtype) MapKey() Type {
	if m, ok := g.t.Underlying().(*types.Map); ok {
		return FromGoTypes(m.Key())
	}
	return nil
}

func (g gtype) Len() int {
	if a, ok := g.t.Underlying().(*types.Array); ok {
		return int(a.Len())
	}
	return 0
}

func (g gtype) IsInteger() bool {
	b, ok := g.t.Underlying().(*types.Basic)
	return ok && b.Info()&types.IsInteger != 0
}

func (g gtype) Methods() []Method {
	if iface, ok := g.t.Underlying().(*types.Interface); ok {
		methods := make([]Method, 0, iface.NumMethods())
		for i := 0; i < iface.NumMethods(); i++ {
			fn := iface.Method(i)
			methods = append(methods, Method{
				Name:     fn.Name(),
				Exported: fn.Exported(),
				Sig:      goSignature(fn.Type().(*types.Signature)),
			})
		}
		return methods
	}
	ms := types.NewMethodSet(g.t)
	methods := make([]Method, 0, ms.Len())
	for i := 0; i < ms.Len(); i++ {
		sel := ms.At(i)
		fn, ok := sel.Obj().(*types.Func)
		if !ok || !fn.Exported() {
			continue
		}
		sig, ok := sel.Type().(*types.Signature)
		if !ok {
			continue
		}
		m := Method{Name: fn.Name(), Exported: true, Sig: goSignature(sig)}
		if recv := fn.Type().(*types.Signature).Recv(); recv != nil {
			rt := recv.Type()
			if p, ok := rt.(*types.Pointer); ok {
				rt = p.Elem()
			}
			m.Declaring = FromGoTypes(rt)
		}
		methods = append(methods, m)
	}
	return methods
}

func (g gtype) Fields() []Field {
	t := g.t
	if p, ok := t.Underlying().(*types.Pointer); ok {
		t = p.Elem()
	}
	st, ok := t.Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	fields := make([]Field, 0, st.NumFields())
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		fields = append(fields, Field{
			Name:     f.Name(),
			Type:     FromGoTypes(f.Type()),
			Index:    i,
			Embedded: f.Embedded(),
			Exported: f.Exported(),
		})
	}
	return fields
}

func (g gtype) Identical(u Type) bool {
	ut, ok := goType(u)
	return ok && types.Identical(g.t, ut)
}

func (g gtype) AssignableTo(u Type) bool {
	ut, ok := goType(u)
	return ok && types.AssignableTo(g.t, ut)
}

func (g gtype) Named() (string, string, bool) {
	n, ok := types.Unalias(g.t).(*types.Named)
	if !ok {
		return "", "", false
	}
	obj := n.Obj()
	if obj.Pkg() == nil {
		return "", obj.Name(), true
	}
	return obj.Pkg().Path(), obj.Name(), true
}

func (g gtype) Expr(q Qualifier) (string, error) {
	return types.TypeString(g.t, func(p *types.Package) string {
		return q(p.Path(), p.Name())
	}), nil
}

func goSignature(sig *types.Signature) Signature {
	s := Signature{Variadic: sig.Variadic()}
	for i := 0; i < sig.Params().Len(); i++ {
		s.Params = append(s.Params, FromGoTypes(sig.Params().At(i).Type()))
	}
	for i := 0; i < sig.Results().Len(); i++ {
		s.Results = append(s.Results, FromGoTypes(sig.Results().At(i).Type()))
	}
	return s
}

type goUniverse struct {
	pkgs map[string]*types.Package
}

// GoTypes returns the compile-time universe over pkgs and everything they
// import. References are "import/path.Name" strings; type references may be
// prefixed by "*" or "[]".
func GoTypes(pkgs ...*types.Package) Universe {
	u := goUniverse{pkgs: make(map[string]*types.Package)}
	var walk func(p *types.Package)
	walk = func(p *types.Package) {
		if p == nil {
			return
		}
		if _, seen := u.pkgs[p.Path()]; seen {
			return
		}
		u.pkgs[p.Path()] = p
		for _, imp := range p.Imports() {
			walk(imp)
		}
	}
	for _, p := range pkgs {
		walk(p)
	}
	return u
}

func (goUniverse) Name() string { return "go/types" }

func (goUniverse) Error() Type {
	return FromGoTypes(types.Universe.Lookup("error").Type())
}

func (u goUniverse) lookup(ref string) (types.Object, error) {
	slash := strings.LastIndexByte(ref, '/')
	dot := strings.LastIndexByte(ref, '.')
	if dot <= slash {
		if obj := types.Universe.Lookup(ref); obj != nil {
			return obj, nil
		}
		return nil, errorc.With(errors.ErrUnresolvableRef, errorc.String(errors.ErrorFieldReference, ref))
	}
	pkg, ok := u.pkgs[ref[:dot]]
	if !ok {
		return nil, errorc.With(errors.ErrUnresolvableRef, errorc.String(errors.ErrorFieldReference, ref))
	}
	obj := pkg.Scope().Lookup(ref[dot+1:])
	if obj == nil {
		return nil, errorc.With(errors.ErrUnresolvableRef, errorc.String(errors.ErrorFieldReference, ref))
	}
	return obj, nil
}

func (u goUniverse) Func(ref any) (*Func, error) {
	var fn *types.Func
	switch r := ref.(type) {
	case *types.Func:
		fn = r
	case string:
		obj, err := u.lookup(r)
		if err != nil {
			return nil, err
		}
		f, ok := obj.(*types.Func)
		if !ok {
			return nil, errorc.With(errors.ErrUnresolvableRef, errorc.String(errors.ErrorFieldReference, r))
		}
		fn = f
	default:
		return nil, errorc.With(errors.ErrUnresolvableRef, errorc.String(errors.ErrorFieldReference, typeName(ref)))
	}
	sig := fn.Type().(*types.Signature)
	f := &Func{
		Name:      fn.Name(),
		Sig:       goSignature(sig),
		Generic:   sig.TypeParams().Len() > 0,
		Value:     fn,
		Emittable: sig.Recv() == nil,
	}
	if fn.Pkg() != nil {
		f.PkgPath, f.PkgName = fn.Pkg().Path(), fn.Pkg().Name()
	}
	return f, nil
}

func (u goUniverse) Type(ref any) (Type, error) {
	switch r := ref.(type) {
	case types.Type:
		return FromGoTypes(r), nil
	case Type:
		return r, nil
	case string:
		switch {
		case strings.HasPrefix(r, "*"):
			t, err := u.Type(r[1:])
			if err != nil {
				return nil, err
			}
			return FromGoTypes(types.NewPointer(t.Raw().(types.Type))), nil
		case strings.HasPrefix(r, "[]"):
			t, err := u.Type(r[2:])
			if err != nil {
				return nil, err
			}
			return FromGoTypes(types.NewSlice(t.Raw().(types.Type))), nil
		}
		base, args := splitTypeArgs(r)
		obj, err := u.lookup(base)
		if err != nil {
			return nil, err
		}
		tn, ok := obj.(*types.TypeName)
		if !ok {
			return nil, errorc.With(errors.ErrUnresolvableRef, errorc.String(errors.ErrorFieldReference, r))
		}
		if len(args) == 0 {
			return FromGoTypes(tn.Type()), nil
		}
		targs := make([]types.Type, len(args))
		for i, a := range args {
			t, err := u.Type(a)
			if err != nil {
				return nil, err
			}
			targs[i] = t.Raw().(types.Type)
		}
		inst, err := types.Instantiate(nil, tn.Type(), targs, true)
		if err != nil {
			return nil, errorc.With(
				errors.ErrUnresolvableRef,
				errorc.String(errors.ErrorFieldReference, r),
				errorc.Error(errors.ErrorFieldCause, err),
			)
		}
		return FromGoTypes(inst), nil
	}
	return nil, errorc.With(errors.ErrUnresolvableRef, errorc.String(errors.ErrorFieldReference, typeName(ref)))
}

// splitTypeArgs splits "path.Name[A, B]" into "path.Name" and its top-level
// type argument references.
func splitTypeArgs(ref string) (string, []string) {
	open := strings.IndexByte(ref, '[')
	if open < 0 || !strings.HasSuffix(ref, "]") {
		return ref, nil
	}
	var (
		args  []string
		depth int
		start = open + 1
	)
	for i := start; i < len(ref)-1; i++ {
		switch ref[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(ref[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(ref[start:len(ref)-1]))
	return ref[:open], args
}

// Instantiate infers the type arguments of fn by unifying its parameter
// types with params, then its result types with the concrete types among
// results, and instantiates fn with them.
func (u goUniverse) Instantiate(fn *Func, params, results []Type) (*Func, error) {
	if !fn.Generic {
		return fn, nil
	}
	gfn, ok := fn.Value.(*types.Func)
	if !ok {
		return nil, noFit(fn, "not a declared function")
	}
	sig := gfn.Type().(*types.Signature)
	if sig.Params().Len() != len(params) {
		return nil, noFit(fn, "parameter count differs")
	}
	subst := make(map[*types.TypeParam]types.Type)
	for i, p := range params {
		pt, ok := goType(p)
		if !ok || !unify(sig.Params().At(i).Type(), pt, subst) {
			return nil, noFit(fn, "parameter "+sig.Params().At(i).Name()+" does not unify")
		}
	}
	if sig.Results().Len() == len(results) {
		for i, r := range results {
			rt, ok := goType(r)
			if !ok || types.IsInterface(rt) {
				// Interface results are reached by wrapping, not by inference.
				continue
			}
			trial := make(map[*types.TypeParam]types.Type, len(subst))
			for k, v := range subst {
				trial[k] = v
			}
			if unify(sig.Results().At(i).Type(), rt, trial) {
				subst = trial
			}
		}
	}

	targs := make([]types.Type, sig.TypeParams().Len())
	for i := range targs {
		tp := sig.TypeParams().At(i)
		a, ok := subst[tp]
		if !ok {
			return nil, errorc.With(
				errors.ErrInvalidMember,
				errorc.String(errors.ErrorFieldReference, fn.Qualified()),
				errorc.String(errors.ErrorFieldCause, "cannot infer type parameter "+tp.Obj().Name()),
			)
		}
		targs[i] = a
	}
	inst, err := types.Instantiate(nil, sig, targs, true)
	if err != nil {
		return nil, errorc.With(
			errors.ErrInvalidMember,
			errorc.String(errors.ErrorFieldReference, fn.Qualified()),
			errorc.Error(errors.ErrorFieldCause, err),
		)
	}
	isig, ok := inst.(*types.Signature)
	if !ok {
		return nil, noFit(fn, "instantiation is not a function")
	}
	out := *fn
	out.Generic = false
	out.Sig = goSignature(isig)
	out.TypeArgs = make([]Type, len(targs))
	for i, a := range targs {
		out.TypeArgs[i] = FromGoTypes(a)
	}
	return &out, nil
}

// noFit reports a generic function whose signature cannot take the given
// parameter types.
func noFit(fn *Func, cause string) error {
	return errorc.With(
		errors.ErrNotAdaptable,
		errorc.String(errors.ErrorFieldReference, fn.Qualified()),
		errorc.String(errors.ErrorFieldCause, cause),
	)
}

// unify binds the type parameters of param so that arg can be passed to it.
func unify(param, arg types.Type, subst map[*types.TypeParam]types.Type) bool {
	switch p := param.(type) {
	case *types.TypeParam:
		if bound, ok := subst[p]; ok {
			return types.Identical(bound, arg)
		}
		subst[p] = arg
		return true
	case *types.Pointer:
		a, ok := arg.(*types.Pointer)
		return ok && unify(p.Elem(), a.Elem(), subst)
	case *types.Slice:
		a, ok := arg.(*types.Slice)
		return ok && unify(p.Elem(), a.Elem(), subst)
	case *types.Array:
		a, ok := arg.(*types.Array)
		return ok && a.Len() == p.Len() && unify(p.Elem(), a.Elem(), subst)
	case *types.Map:
		a, ok := arg.(*types.Map)
		return ok && unify(p.Key(), a.Key(), subst) && unify(p.Elem(), a.Elem(), subst)
	case *types.Chan:
		a, ok := arg.(*types.Chan)
		return ok && unify(p.Elem(), a.Elem(), subst)
	case *types.Named:
		a, ok := types.Unalias(arg).(*types.Named)
		if !ok || p.TypeArgs().Len() == 0 {
			return types.AssignableTo(arg, param)
		}
		if a.Origin() != p.Origin() || a.TypeArgs().Len() != p.TypeArgs().Len() {
			return false
		}
		for i := 0; i < p.TypeArgs().Len(); i++ {
			if !unify(p.TypeArgs().At(i), a.TypeArgs().At(i), subst) {
				return false
			}
		}
		return true
	default:
		return types.AssignableTo(arg, param)
	}
}
