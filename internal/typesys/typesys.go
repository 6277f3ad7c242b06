// Package typesys abstracts the two type systems shim resolves against: the
// run-time one (reflect) and the compile-time one (go/types). Resolution and
// source emission only ever see this abstraction.
package typesys

import "strings"

// Kind classifies a type by its underlying structure.
type Kind uint8

const (
	Other Kind = iota
	Basic
	Interface
	Struct
	Pointer
	Slice
	Array
	Map
	Function
	Chan
)

func (k Kind) String() string {
	switch k {
	case Basic:
		return "basic"
	case Interface:
		return "interface"
	case Struct:
		return "struct"
	case Pointer:
		return "pointer"
	case Slice:
		return "slice"
	case Array:
		return "array"
	case Map:
		return "map"
	case Function:
		return "func"
	case Chan:
		return "chan"
	default:
		return "other"
	}
}

// Qualifier returns the prefix used for a package in generated source; an
// empty result means the package is the one being generated.
type Qualifier func(pkgPath, pkgName string) string

// Type is a type of either universe.
type Type interface {
	// Key is comparable and equal for identical types of the same universe.
	Key() any
	String() string
	Kind() Kind
	// Elem is the element type of pointers, slices, arrays, maps and channels.
	Elem() Type
	// MapKey is the key type of a map.
	MapKey() Type
	// Len is the length of an array.
	Len() int
	// IsInteger reports an integer basic underlying type.
	IsInteger() bool
	// Methods is the exported method set. For interfaces these are the
	// interface methods, including unexported ones.
	Methods() []Method
	// Fields are the direct fields of a struct or pointer to struct.
	Fields() []Field
	Identical(u Type) bool
	AssignableTo(u Type) bool
	// Named returns the package path and name of a defined type.
	Named() (pkgPath, name string, ok bool)
	// Expr renders the type as a Go expression.
	Expr(q Qualifier) (string, error)
	// Raw returns the reflect.Type or types.Type behind this type.
	Raw() any
}

// Signature is a func signature without receiver.
type Signature struct {
	Params   []Type
	Results  []Type
	Variadic bool
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteString("func(")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if s.Variadic && i == len(s.Params)-1 {
			b.WriteString("...")
			b.WriteString(p.Elem().String())
			continue
		}
		b.WriteString(p.String())
	}
	b.WriteString(")")
	switch len(s.Results) {
	case 0:
	case 1:
		b.WriteString(" ")
		b.WriteString(s.Results[0].String())
	default:
		b.WriteString(" (")
		for i, r := range s.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.String())
		}
		b.WriteString(")")
	}
	return b.String()
}

// Method is a method of a method set.
type Method struct {
	Name     string
	Exported bool
	Sig      Signature
	// Declaring is the receiver base type when the universe knows it.
	Declaring Type
}

// Field is a direct struct field.
type Field struct {
	Name     string
	Type     Type
	Index    int
	Embedded bool
	Exported bool
}

// Func is a package-level function.
type Func struct {
	PkgPath string
	PkgName string
	Name    string
	Sig     Signature
	// TypeArgs are the explicit instantiation arguments of a generic function.
	TypeArgs []Type
	// Generic marks an uninstantiated generic function.
	Generic bool
	// Value is the reflect.Value of the function in the reflect universe.
	Value any
	// Emittable is false for closures and method values.
	Emittable bool
}

// Qualified returns "path.Name".
func (f *Func) Qualified() string {
	if f.PkgPath == "" {
		return f.Name
	}
	return f.PkgPath + "." + f.Name
}

// Expr renders a reference to the function as a Go expression.
func (f *Func) Expr(q Qualifier) (string, error) {
	var b strings.Builder
	if prefix := q(f.PkgPath, f.PkgName); prefix != "" {
		b.WriteString(prefix)
		b.WriteString(".")
	}
	b.WriteString(f.Name)
	if len(f.TypeArgs) > 0 {
		b.WriteString("[")
		for i, a := range f.TypeArgs {
			if i > 0 {
				b.WriteString(", ")
			}
			s, err := a.Expr(q)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
		b.WriteString("]")
	}
	return b.String(), nil
}

// Universe resolves references and instantiates generic functions.
type Universe interface {
	// Name identifies the universe in logs.
	Name() string
	// Func resolves a function reference.
	Func(ref any) (*Func, error)
	// Type resolves a type reference.
	Type(ref any) (Type, error)
	// Instantiate infers the type arguments of a generic fn from the types
	// its parameters will receive and, for type parameters only its results
	// mention, from the concrete results expected of it. Non-generic
	// functions are returned as is. A type parameter left unbound is
	// ErrInvalidMember; a signature that cannot take params is ErrNotAdaptable.
	Instantiate(fn *Func, params, results []Type) (*Func, error)
	// Error is the predeclared error type.
	Error() Type
}

// IsContract reports whether t can serve as a contract: an interface with at
// least one method, all of them exported.
func IsContract(t Type) bool {
	if t == nil || t.Kind() != Interface {
		return false
	}
	methods := t.Methods()
	if len(methods) == 0 {
		return false
	}
	for _, m := range methods {
		if !m.Exported {
			return false
		}
	}
	return true
}

// Deref returns the element of a pointer, or t itself.
func Deref(t Type) Type {
	if t.Kind() == Pointer {
		return t.Elem()
	}
	return t
}

// ShortName is the unqualified name of t, used to derive identifiers.
func ShortName(t Type) string {
	if _, name, ok := t.Named(); ok {
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		return name
	}
	switch t.Kind() {
	case Pointer:
		return ShortName(t.Elem())
	case Slice:
		return ShortName(t.Elem()) + "Slice"
	case Array:
		return ShortName(t.Elem()) + "Array"
	case Map:
		return ShortName(t.MapKey()) + ShortName(t.Elem()) + "Map"
	default:
		return t.Kind().String()
	}
}

// pkgNameOf approximates a package name from its import path.
func pkgNameOf(path string) string {
	name := path
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
		if len(name) > 1 && name[0] == 'v' && strings.Trim(name[1:], "0123456789") == "" {
			trimmed := path[:i]
			if j := strings.LastIndexByte(trimmed, '/'); j >= 0 {
				name = trimmed[j+1:]
			} else {
				name = trimmed
			}
		}
	}
	name = strings.TrimPrefix(name, "go-")
	return strings.NewReplacer("-", "", ".", "").Replace(name)
}
