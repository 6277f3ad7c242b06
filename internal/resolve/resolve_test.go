package resolve

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/shim/contract"
	shimerrors "github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/members"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

type (
	valuer  interface{ Value() string }
	getter  interface{ Get() labeled }
	labeled interface{ Label() string }
	partial interface {
		Present() string
		Absent() error
	}
	greeter interface {
		Greet(name string) string
		Farewell() string
	}
	acceptor interface{ Accept(v labeled) int }
	maker    interface{ Make(n int) labeled }
)

type (
	valued  struct{ Value string }
	item    struct{ name string }
	catalog struct{}
	person  struct{}
	sink    struct{}

	strV struct{ V string }
	intV struct{ V int }
	mixed struct {
		strV
		intV
	}
)

func (*item) Name() string          { return "" }
func (*catalog) Get() *item         { return nil }
func (person) Present() string      { return "" }
func (*person) Greet(string) string { return "" }
func (sink) Accept(*item) int       { return 0 }

func newItem(n int) *item { return &item{} }

func shout(g greeter, name string) string { return name }
func wave(greeter) string                 { return "" }

func of[T any]() typesys.Type {
	return typesys.Of(reflect.TypeOf((*T)(nil)).Elem())
}

func newEngine(t *testing.T, configs map[typesys.Type]*contract.Config) *Engine {
	t.Helper()
	e := NewEngine(typesys.Reflect())
	for c, cfg := range configs {
		require.NoError(t, e.Configure(c, cfg))
	}
	return e
}

func TestResolve_Property(t *testing.T) {
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[valuer](): contract.New(contract.For("Value", contract.AsProperty())),
	})

	p, err := e.Resolve(of[valuer](), of[*valued]())
	require.NoError(t, err)
	require.Len(t, p.Bindings, 1)

	b := p.Bindings[0]
	require.NotNil(t, b.Target)
	assert.Equal(t, members.TargetField, b.Target.Kind)
	assert.Equal(t, "Value", b.Target.Name)
	require.Len(t, b.Results, 1)
	assert.Equal(t, plan.Assign, b.Results[0].Kind)
	assert.False(t, p.Proxied())
	assert.Empty(t, p.Pairs())
}

func TestResolve_NestedClosure(t *testing.T) {
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[labeled](): contract.New(contract.For("Label", contract.Rename("Name"))),
	})

	p, err := e.Resolve(of[getter](), of[*catalog]())
	require.NoError(t, err)
	require.Len(t, p.Bindings[0].Results, 1)
	assert.Equal(t, plan.Wrap, p.Bindings[0].Results[0].Kind)

	pairs := p.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, of[labeled]().Key(), pairs[0][0].Key())
	assert.Equal(t, of[*item]().Key(), pairs[0][1].Key())

	nested, ok := e.Lookup(of[labeled](), of[*item]())
	require.True(t, ok, "the nested pair is committed with the outer one")
	assert.Equal(t, "Name", nested.Bindings[0].Target.Name)
	assert.Len(t, e.Plans(), 2)
}

func TestResolve_ClosureIsAtomic(t *testing.T) {
	e := newEngine(t, nil)

	_, err := e.Resolve(of[getter](), of[*catalog]())
	require.Error(t, err, "*item has no Label method")
	assert.True(t, errors.Is(err, shimerrors.ErrUnresolvedMember), "got %v", err)

	_, ok := e.Lookup(of[getter](), of[*catalog]())
	assert.False(t, ok, "the outer pair is not committed when a nested one fails")
	assert.Empty(t, e.Plans())

	require.NoError(t, e.Configure(of[labeled](), contract.New(contract.For("Label", contract.Rename("Name")))),
		"failed resolution does not freeze configuration")
	_, err = e.Resolve(of[getter](), of[*catalog]())
	require.NoError(t, err)
}

func TestResolve_UnwrapPair(t *testing.T) {
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[labeled](): contract.New(contract.For("Label", contract.Rename("Name"))),
	})

	p, err := e.Resolve(of[acceptor](), of[sink]())
	require.NoError(t, err)
	b := p.Bindings[0]
	require.Len(t, b.Params, 1)
	assert.Equal(t, plan.Unwrap, b.Params[0].Kind)
	assert.True(t, b.Unwraps())

	_, ok := e.Lookup(of[labeled](), of[*item]())
	assert.True(t, ok)
}

func TestResolve_RankPrefersExact(t *testing.T) {
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[valuer](): contract.New(contract.For("Value", contract.AsProperty(), contract.Rename("V"))),
	})

	p, err := e.Resolve(of[valuer](), of[*mixed]())
	require.NoError(t, err)
	b := p.Bindings[0]
	require.NotNil(t, b.Target)
	assert.Equal(t, "strV.V", b.Target.Qualified)
}

func TestResolve_Ambiguous(t *testing.T) {
	type twin struct{ V string }
	type other struct{ V string }
	type both struct {
		twin
		other
	}
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[valuer](): contract.New(contract.For("Value", contract.AsProperty(), contract.Rename("V"))),
	})

	_, err := e.Resolve(of[valuer](), of[*both]())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shimerrors.ErrAmbiguousMember), "got %v", err)
	assert.Contains(t, err.Error(), "twin.V")
	assert.Contains(t, err.Error(), "other.V")
}

func TestResolve_AmbiguousDiamond(t *testing.T) {
	type Leaf struct{ V string }
	type Left struct{ Leaf }
	type Right struct{ Leaf }
	type root struct {
		Left
		Right
	}

	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[valuer](): contract.New(contract.For("Value", contract.AsProperty(), contract.Rename("V"))),
	})
	_, err := e.Resolve(of[valuer](), of[*root]())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shimerrors.ErrAmbiguousMember), "got %v", err)
	assert.Contains(t, err.Error(), "Left.Leaf.V")
	assert.Contains(t, err.Error(), "Right.Leaf.V")

	e = newEngine(t, map[typesys.Type]*contract.Config{
		of[valuer](): contract.New(contract.For("Value", contract.AsProperty(), contract.Rename("Right.Leaf.V"))),
	})
	p, err := e.Resolve(of[valuer](), of[*root]())
	require.NoError(t, err)
	assert.Equal(t, ".Right.Leaf.V", p.Bindings[0].Target.Selector())
}

func TestResolve_NotAdaptable(t *testing.T) {
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[valuer](): contract.New(contract.For("Value", contract.AsProperty(), contract.Rename("V"))),
	})

	_, err := e.Resolve(of[valuer](), of[*intV]())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shimerrors.ErrNotAdaptable), "got %v", err)
}

func TestResolve_Tolerant(t *testing.T) {
	e := newEngine(t, nil)
	e.Tolerate(of[partial]())
	assert.True(t, e.Tolerates(of[partial]()))

	p, err := e.Resolve(of[partial](), of[person]())
	require.NoError(t, err)
	assert.True(t, p.Tolerant)

	byName := map[string]plan.Binding{}
	for _, b := range p.Bindings {
		byName[b.Name()] = b
	}
	assert.True(t, byName["Absent"].Missing)
	assert.False(t, byName["Present"].Missing)
}

func TestResolve_Proxy(t *testing.T) {
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[greeter](): contract.New(
			contract.For("Greet", contract.WithProxy(contract.Default, shout)),
			contract.For("Farewell", contract.WithProxy(contract.Default, wave)),
		),
	})

	p, err := e.Resolve(of[greeter](), of[*person]())
	require.NoError(t, err)
	assert.True(t, p.Proxied())

	byName := map[string]plan.Binding{}
	for _, b := range p.Bindings {
		byName[b.Name()] = b
	}
	greet := byName["Greet"]
	assert.True(t, greet.Reentrant, "default mode overrides an existing member")
	require.NotNil(t, greet.Target)
	require.NotNil(t, greet.Proxy)
	assert.Equal(t, "shout", greet.Proxy.Func.Name)

	farewell := byName["Farewell"]
	assert.False(t, farewell.Reentrant, "default mode adds a missing member")
	assert.Nil(t, farewell.Target)
}

func TestResolve_Factory(t *testing.T) {
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[maker]():   contract.New(contract.For("Make", contract.AsConstructor(newItem))),
		of[labeled](): contract.New(contract.For("Label", contract.Rename("Name"))),
	})

	p, err := e.Resolve(of[maker](), nil)
	require.NoError(t, err)
	assert.Nil(t, p.Target)
	b := p.Bindings[0]
	require.NotNil(t, b.Func)
	assert.Equal(t, members.TargetFunc, b.Func.Kind)
	assert.Equal(t, plan.Wrap, b.Results[0].Kind)

	_, err = e.Resolve(of[valuer](), nil)
	assert.True(t, errors.Is(err, shimerrors.ErrInvalidContract), "got %v", err)
}

func TestEngine_Configure(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.Resolve(of[valuer](), of[*item]())
	require.Error(t, err)

	_, err = e.Resolve(of[labeled](), of[*item]())
	require.Error(t, err)

	require.NoError(t, e.Configure(of[labeled](), contract.New(contract.For("Label", contract.Rename("Name")))))
	_, err = e.Resolve(of[labeled](), of[*item]())
	require.NoError(t, err)

	err = e.Configure(of[labeled](), contract.New())
	assert.True(t, errors.Is(err, shimerrors.ErrAlreadyResolved), "got %v", err)

	e.Reset()
	assert.Empty(t, e.Plans())
	require.NoError(t, e.Configure(of[labeled](), contract.New()))
}

func TestEngine_ConcurrentResolve(t *testing.T) {
	e := newEngine(t, map[typesys.Type]*contract.Config{
		of[labeled](): contract.New(contract.For("Label", contract.Rename("Name"))),
	})

	const n = 32
	plans := make([]*plan.Plan, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plans[i], errs[i] = e.Resolve(of[getter](), of[*catalog]())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, plans[0], plans[i])
	}
}

const boxSource = `package app

type Boxes interface {
	Create(v int) Boxed
}

type Boxed interface {
	Content() int
}

type Box[T any] struct{ v T }

func (b *Box[T]) Value() T { return b.v }

func NewBox[T any](v T) *Box[T] { return &Box[T]{v: v} }

type Empties interface {
	Empty() *Box[int]
}

type Counters interface {
	Count() int
}

func NewEmpty[T any]() *Box[T] { return &Box[T]{} }

func Zero[T any]() int { return 0 }
`

func boxUniverse(t *testing.T) typesys.Universe {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "box.go", boxSource, 0)
	require.NoError(t, err)
	pkg, err := (&types.Config{}).Check("example.com/app", fset, []*ast.File{f}, nil)
	require.NoError(t, err)
	return typesys.GoTypes(pkg)
}

func TestResolve_GoTypesGenericConstructor(t *testing.T) {
	u := boxUniverse(t)
	boxes, err := u.Type("example.com/app.Boxes")
	require.NoError(t, err)
	boxed, err := u.Type("example.com/app.Boxed")
	require.NoError(t, err)

	e := NewEngine(u)
	require.NoError(t, e.Configure(boxes, contract.New(contract.For("Create", contract.AsConstructor("example.com/app.NewBox")))))
	require.NoError(t, e.Configure(boxed, contract.New(contract.For("Content", contract.Rename("Value")))))

	p, err := e.Resolve(boxes, nil)
	require.NoError(t, err)

	b := p.Bindings[0]
	require.NotNil(t, b.Func)
	require.Len(t, b.Func.Func.TypeArgs, 1)
	assert.Equal(t, "int", b.Func.Func.TypeArgs[0].String())
	assert.Equal(t, plan.Wrap, b.Results[0].Kind)
	assert.Equal(t, "*example.com/app.Box[int]", b.Results[0].From.String())

	boxInt, err := u.Type("*example.com/app.Box[int]")
	require.NoError(t, err)
	nested, ok := e.Lookup(boxed, boxInt)
	require.True(t, ok)
	assert.Equal(t, "Value", nested.Bindings[0].Target.Name)
}

func TestResolve_GoTypesResultOnlyConstructor(t *testing.T) {
	u := boxUniverse(t)

	t.Run("inferred from the contract result", func(t *testing.T) {
		empties, err := u.Type("example.com/app.Empties")
		require.NoError(t, err)

		e := NewEngine(u)
		require.NoError(t, e.Configure(empties, contract.New(contract.For("Empty", contract.AsConstructor("example.com/app.NewEmpty")))))

		p, err := e.Resolve(empties, nil)
		require.NoError(t, err)

		b := p.Bindings[0]
		require.NotNil(t, b.Func)
		require.Len(t, b.Func.Func.TypeArgs, 1)
		assert.Equal(t, "int", b.Func.Func.TypeArgs[0].String())
		assert.Equal(t, plan.Assign, b.Results[0].Kind)
	})

	t.Run("type parameter left unbound", func(t *testing.T) {
		counters, err := u.Type("example.com/app.Counters")
		require.NoError(t, err)

		e := NewEngine(u)
		require.NoError(t, e.Configure(counters, contract.New(contract.For("Count", contract.AsConstructor("example.com/app.Zero")))))

		_, err = e.Resolve(counters, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shimerrors.ErrInvalidMember), "got %v", err)
		assert.Contains(t, err.Error(), "cannot infer type parameter T")
	})
}
