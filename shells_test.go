package shim_test

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/ygrebnov/shim"
)

// Contracts used across the package tests.
type (
	Valuer interface{ Value() string }

	Setter interface {
		Value() string
		SetValue(v string)
	}

	Getter  interface{ Get() Labeled }
	Labeled interface{ Label() string }

	Boxes interface{ Create(v int) Boxed }
	Boxed interface{ Content() int }

	Partial interface {
		Present() string
		Absent() error
		Gone() int
	}

	Greeter interface {
		Greet(name string) string
		Farewell() string
	}

	Dict interface {
		Get(k string) (int, bool)
		Put(k string, v int)
	}

	Notifier interface{ OnChange(h func(string)) }

	Sink interface{ Accept(v Valuer) string }

	Calculator interface{ Add(a, b int) int }

	Joiner interface {
		Join(sep string, parts ...string) string
	}

	Labels interface{ All() []Labeled }

	Unshelled interface{ Nothing() }

	// Misfit is registered with a shell that does not embed shim.Shell.
	Misfit interface{ Fit() string }
)

// Targets.
type (
	valued struct{ Value string }

	inner struct{ Value string }
	outer struct{ *inner }

	left  struct{ Value string }
	right struct{ Value string }
	both  struct {
		left
		right
	}

	item    struct{ name string }
	catalog struct{ first *item }
	shelf   struct{ items []*item }

	box[T any] struct{ v T }

	partial struct{}

	greeter struct{ greeting string }

	// tally counts the calls that reach it.
	tally struct{ greets int }

	counts map[string]int

	emitter struct{ Handlers []func(string) }

	sink struct{}

	joiner struct{}

	fitted struct{}
)

func (i *item) Name() string { return i.name }

func (c *catalog) Get() *item { return c.first }

func (s *shelf) All() []*item { return s.items }

func newBox[T any](v T) *box[T] { return &box[T]{v: v} }

func (b *box[T]) Value() T { return b.v }

func (partial) Present() string { return "here" }

func (g *greeter) Greet(name string) string { return g.greeting + ", " + name }

func (t *tally) Greet(name string) string {
	t.greets++
	return "tally:" + name
}

func (sink) Accept(v *valued) string { return "got " + v.Value }

func (joiner) Join(sep string, parts ...string) string { return strings.Join(parts, sep) }

func (fitted) Fit() string { return "fit" }

func Add(a, b int) int { return a + b }

func shout(g Greeter, name string) string { return strings.ToUpper(g.Greet(name)) }

func wave(Greeter) string { return "bye" }

func badProxy(g Greeter, n int) string { return "" }

var (
	errFlaky   = errors.New("flaky proxy")
	flakyCalls atomic.Int32
)

// flaky panics on its first call and answers afterwards.
func flaky(_ Greeter, name string) string {
	if flakyCalls.Add(1) == 1 {
		panic(errFlaky)
	}
	return "proxy:" + name
}

func mute(Greeter, string) string { return "..." }

type valuerShell struct {
	shim.Shell
	WValue func() string
}

func (s *valuerShell) Value() string { return s.WValue() }

type setterShell struct {
	shim.Shell
	WValue    func() string
	WSetValue func(v string)
}

func (s *setterShell) Value() string     { return s.WValue() }
func (s *setterShell) SetValue(v string) { s.WSetValue(v) }

type getterShell struct {
	shim.Shell
	WGet func() Labeled
}

func (s *getterShell) Get() Labeled { return s.WGet() }

type labeledShell struct {
	shim.Shell
	WLabel func() string
}

func (s *labeledShell) Label() string { return s.WLabel() }

type boxesShell struct {
	shim.Shell
	WCreate func(v int) Boxed
}

func (s *boxesShell) Create(v int) Boxed { return s.WCreate(v) }

type boxedShell struct {
	shim.Shell
	WContent func() int
}

func (s *boxedShell) Content() int { return s.WContent() }

type partialShell struct {
	shim.Shell
	WPresent func() string
	WAbsent  func() error
	WGone    func() int
}

func (s *partialShell) Present() string { return s.WPresent() }
func (s *partialShell) Absent() error   { return s.WAbsent() }
func (s *partialShell) Gone() int       { return s.WGone() }

type greeterShell struct {
	shim.Shell
	WGreet    func(name string) string
	WFarewell func() string
}

func (s *greeterShell) Greet(name string) string { return s.WGreet(name) }
func (s *greeterShell) Farewell() string         { return s.WFarewell() }

type dictShell struct {
	shim.Shell
	WGet func(k string) (int, bool)
	WPut func(k string, v int)
}

func (s *dictShell) Get(k string) (int, bool) { return s.WGet(k) }
func (s *dictShell) Put(k string, v int)      { s.WPut(k, v) }

type notifierShell struct {
	shim.Shell
	WOnChange func(h func(string))
}

func (s *notifierShell) OnChange(h func(string)) { s.WOnChange(h) }

type sinkShell struct {
	shim.Shell
	WAccept func(v Valuer) string
}

func (s *sinkShell) Accept(v Valuer) string { return s.WAccept(v) }

type calculatorShell struct {
	shim.Shell
	WAdd func(a, b int) int
}

func (s *calculatorShell) Add(a, b int) int { return s.WAdd(a, b) }

type joinerShell struct {
	shim.Shell
	WJoin func(sep string, parts ...string) string
}

func (s *joinerShell) Join(sep string, parts ...string) string { return s.WJoin(sep, parts...) }

type labelsShell struct {
	shim.Shell
	WAll func() []Labeled
}

func (s *labelsShell) All() []Labeled { return s.WAll() }

type misfitShell struct{}

func (misfitShell) Fit() string { return "" }

func init() {
	shim.RegisterShell(func() Valuer { return &valuerShell{} })
	shim.RegisterShell(func() Setter { return &setterShell{} })
	shim.RegisterShell(func() Getter { return &getterShell{} })
	shim.RegisterShell(func() Labeled { return &labeledShell{} })
	shim.RegisterShell(func() Boxes { return &boxesShell{} })
	shim.RegisterShell(func() Boxed { return &boxedShell{} })
	shim.RegisterShell(func() Partial { return &partialShell{} })
	shim.RegisterShell(func() Greeter { return &greeterShell{} })
	shim.RegisterShell(func() Dict { return &dictShell{} })
	shim.RegisterShell(func() Notifier { return &notifierShell{} })
	shim.RegisterShell(func() Sink { return &sinkShell{} })
	shim.RegisterShell(func() Calculator { return &calculatorShell{} })
	shim.RegisterShell(func() Joiner { return &joinerShell{} })
	shim.RegisterShell(func() Labels { return &labelsShell{} })
	shim.RegisterShell(func() Misfit { return misfitShell{} })
}
