package typesys

import (
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/errors"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// rtype is a Type of the reflect universe. reflect.Type values are
// canonical, so the wrapped value doubles as the identity key.
type rtype struct {
	t reflect.Type
}

// Of wraps a reflect.Type.
func Of(t reflect.Type) Type {
	if t == nil {
		return nil
	}
	return rtype{t: t}
}

// ReflectType unwraps a Type of the reflect universe.
func ReflectType(t Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	rt, ok := t.Raw().(reflect.Type)
	return rt, ok
}

func (r rtype) Key() any       { return r.t }
func (r rtype) String() string { return r.t.String() }
func (r rtype) Raw() any       { return r.t }

func (r rtype) Kind() Kind {
	switch r.t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String,
		reflect.UnsafePointer:
		return Basic
	case reflect.Interface:
		return Interface
	case reflect.Struct:
		return Struct
	case reflect.Ptr:
		return Pointer
	case reflect.Slice:
		return Slice
	case reflect.Array:
		return Array
	case reflect.Map:
		return Map
	case reflect.Func:
		return Function
	case reflect.Chan:
		return Chan
	default:
		return Other
	}
}

func (r rtype) Elem() Type {
	switch r.t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rtype{t: r.t.Elem()}
	default:
		return nil
	}
}

func (r rtype) MapKey() Type {
	if r.t.Kind() != reflect.Map {
		return nil
	}
	return rtype{t: r.t.Key()}
}

func (r rtype) Len() int {
	if r.t.Kind() != reflect.Array {
		return 0
	}
	return r.t.Len()
}

func (r rtype) IsInteger() bool {
	switch r.t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

func (r rtype) Methods() []Method {
	n := r.t.NumMethod()
	methods := make([]Method, 0, n)
	isIface := r.t.Kind() == reflect.Interface
	for i := 0; i < n; i++ {
		m := r.t.Method(i)
		ft := m.Type
		first := 0
		if !isIface {
			// method expressions of concrete types take the receiver first
			first = 1
		}
		methods = append(methods, Method{
			Name:     m.Name,
			Exported: m.IsExported(),
			Sig:      signatureOf(ft, first),
		})
	}
	return methods
}

func (r rtype) Fields() []Field {
	st := r.t
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil
	}
	fields := make([]Field, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		fields = append(fields, Field{
			Name:     f.Name,
			Type:     rtype{t: f.Type},
			Index:    i,
			Embedded: f.Anonymous,
			Exported: f.IsExported(),
		})
	}
	return fields
}

func (r rtype) Identical(u Type) bool {
	ut, ok := ReflectType(u)
	return ok && r.t == ut
}

func (r rtype) AssignableTo(u Type) bool {
	ut, ok := ReflectType(u)
	return ok && r.t.AssignableTo(ut)
}

func (r rtype) Named() (string, string, bool) {
	if r.t.Name() == "" {
		return "", "", false
	}
	return r.t.PkgPath(), r.t.Name(), true
}

func (r rtype) Expr(q Qualifier) (string, error) {
	return reflectExpr(r.t, q)
}

func reflectExpr(t reflect.Type, q Qualifier) (string, error) {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name(), nil
		}
		name := qualifyTypeArgs(t.Name(), q)
		if prefix := q(t.PkgPath(), pkgNameOf(t.PkgPath())); prefix != "" {
			return prefix + "." + name, nil
		}
		return name, nil
	}
	switch t.Kind() {
	case reflect.Ptr:
		s, err := reflectExpr(t.Elem(), q)
		return "*" + s, err
	case reflect.Slice:
		s, err := reflectExpr(t.Elem(), q)
		return "[]" + s, err
	case reflect.Array:
		s, err := reflectExpr(t.Elem(), q)
		return "[" + strconv.Itoa(t.Len()) + "]" + s, err
	case reflect.Chan:
		s, err := reflectExpr(t.Elem(), q)
		switch t.ChanDir() {
		case reflect.RecvDir:
			return "<-chan " + s, err
		case reflect.SendDir:
			return "chan<- " + s, err
		default:
			return "chan " + s, err
		}
	case reflect.Map:
		k, err := reflectExpr(t.Key(), q)
		if err != nil {
			return "", err
		}
		v, err := reflectExpr(t.Elem(), q)
		return "map[" + k + "]" + v, err
	case reflect.Func:
		return funcExpr(signatureOf(t, 0), q)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any", nil
		}
	}
	return "", errorc.With(errors.ErrNotEmittable, errorc.String(errors.ErrorFieldReference, t.String()))
}

func funcExpr(sig Signature, q Qualifier) (string, error) {
	var b strings.Builder
	b.WriteString("func(")
	for i, p := range sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if sig.Variadic && i == len(sig.Params)-1 {
			s, err := p.Elem().Expr(q)
			if err != nil {
				return "", err
			}
			b.WriteString("..." + s)
			continue
		}
		s, err := p.Expr(q)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	b.WriteString(")")
	results := make([]string, 0, len(sig.Results))
	for _, r := range sig.Results {
		s, err := r.Expr(q)
		if err != nil {
			return "", err
		}
		results = append(results, s)
	}
	switch len(results) {
	case 0:
	case 1:
		b.WriteString(" " + results[0])
	default:
		b.WriteString(" (" + strings.Join(results, ", ") + ")")
	}
	return b.String(), nil
}

// qualifyTypeArgs rewrites the package paths reflect prints inside the type
// argument list of an instantiated generic type.
func qualifyTypeArgs(name string, q Qualifier) string {
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name[:open])
	rest := name[open:]
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := rest[start:end]
		if dot := strings.LastIndexByte(tok, '.'); dot > 0 {
			path, ident := tok[:dot], tok[dot+1:]
			if prefix := q(path, pkgNameOf(path)); prefix != "" {
				b.WriteString(prefix + "." + ident)
			} else {
				b.WriteString(ident)
			}
		} else {
			b.WriteString(tok)
		}
		start = -1
	}
	for i := 0; i < len(rest); i++ {
		switch c := rest[i]; c {
		case '[', ']', ',', '*', ' ':
			flush(i)
			b.WriteByte(c)
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(rest))
	return b.String()
}

func signatureOf(ft reflect.Type, first int) Signature {
	sig := Signature{Variadic: ft.IsVariadic()}
	for i := first; i < ft.NumIn(); i++ {
		sig.Params = append(sig.Params, rtype{t: ft.In(i)})
	}
	for i := 0; i < ft.NumOut(); i++ {
		sig.Results = append(sig.Results, rtype{t: ft.Out(i)})
	}
	return sig
}

type reflectUniverse struct{}

// Reflect returns the run-time universe. Function references are func
// values, type references are reflect.Type values.
func Reflect() Universe {
	return reflectUniverse{}
}

func (reflectUniverse) Name() string { return "reflect" }

func (reflectUniverse) Error() Type { return rtype{t: errorType} }

func (reflectUniverse) Func(ref any) (*Func, error) {
	v := reflect.ValueOf(ref)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, errorc.With(
			errors.ErrUnresolvableRef,
			errorc.String(errors.ErrorFieldReference, typeName(ref)),
		)
	}
	fn := &Func{Sig: signatureOf(v.Type(), 0), Value: v}
	full := ""
	if rf := runtime.FuncForPC(v.Pointer()); rf != nil {
		full = rf.Name()
	}
	fn.PkgPath, fn.Name = splitFuncName(full)
	fn.PkgName = pkgNameOf(fn.PkgPath)
	fn.Emittable = fn.Name != "" && isIdent(fn.Name)
	return fn, nil
}

// splitFuncName splits "example.com/pkg.Name[...]" into path and name.
func splitFuncName(full string) (string, string) {
	full = strings.ReplaceAll(full, "[...]", "")
	slash := strings.LastIndexByte(full, '/')
	dot := strings.IndexByte(full[slash+1:], '.')
	if dot < 0 {
		return "", full
	}
	dot += slash + 1
	return full[:dot], full[dot+1:]
}

func isIdent(s string) bool {
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return s != ""
}

func (reflectUniverse) Type(ref any) (Type, error) {
	switch t := ref.(type) {
	case reflect.Type:
		if t != nil {
			return rtype{t: t}, nil
		}
	case Type:
		return t, nil
	}
	return nil, errorc.With(errors.ErrUnresolvableRef, errorc.String(errors.ErrorFieldReference, typeName(ref)))
}

func typeName(ref any) string {
	if ref == nil {
		return "<nil>"
	}
	return reflect.TypeOf(ref).String()
}

// Instantiate returns fn unchanged: reflect only ever sees instantiated
// functions, so callers pass every instantiation they need.
func (reflectUniverse) Instantiate(fn *Func, _, _ []Type) (*Func, error) {
	if fn.Generic {
		return nil, errorc.With(
			errors.ErrInvalidMember,
			errorc.String(errors.ErrorFieldReference, fn.Qualified()),
			errorc.String(errors.ErrorFieldCause, "pass an explicit instantiation"),
		)
	}
	return fn, nil
}
