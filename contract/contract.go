// Package contract holds the declarative, per-member configuration of a
// contract interface: renames, member kinds, proxies, static sources,
// constructor requests and parameter real-type overrides.
//
// References to functions and types are opaque to this package. At run time
// they are Go values (func values, reflect.Type); when generating source they
// are qualified names such as "example.com/pkg.NewBox". The type universe in
// use resolves them.
package contract

import "sort"

// Kind is the shape a contract member is bound with.
type Kind uint8

const (
	// Method binds to a method of the target.
	Method Kind = iota
	// Property binds a getter X() T or a setter SetX(T) to the exported field X.
	Property
	// Indexer binds (k) V, (k) (V, bool) or (k, v) to a map or slice.
	Indexer
	// Event binds OnX(h) to a handler slice field, appending h.
	Event
	// Constructor calls one of the configured factories and adapts its result.
	Constructor
	// Static calls one of the configured package-level functions.
	Static
)

func (k Kind) String() string {
	switch k {
	case Method:
		return "method"
	case Property:
		return "property"
	case Indexer:
		return "indexer"
	case Event:
		return "event"
	case Constructor:
		return "constructor"
	case Static:
		return "static"
	default:
		return "unknown"
	}
}

// Instance reports whether members of this kind need a target instance.
func (k Kind) Instance() bool {
	return k != Constructor && k != Static
}

// Mode selects how a proxy relates to the member it is attached to.
type Mode uint8

const (
	// Default overrides an existing target member, or adds the member when absent.
	Default Mode = iota
	// Override requires an existing target member and replaces calls to it.
	Override
	// Add requires the member to be absent from the target.
	Add
)

func (m Mode) String() string {
	switch m {
	case Default:
		return "default"
	case Override:
		return "override"
	case Add:
		return "add"
	default:
		return "unknown"
	}
}

// Proxy redirects a contract member to a package-level function. For
// instance members the function receives the adapter as its first argument.
type Proxy struct {
	Mode Mode
	Func any
}

// Member is the configuration of one contract method.
type Member struct {
	Name   string
	Kind   Kind
	Rename string
	Proxy  *Proxy
	// Sources are constructor factories (Constructor) or functions (Static).
	Sources []any
	// RealTypes overrides, per parameter index, the type a parameter is
	// compared with and unwrapped to.
	RealTypes map[int]any
}

// Config is the configuration of one contract type.
type Config struct {
	members map[string]*Member
}

// Option configures a Config at construction time.
type Option func(*Config)

// MemberOption configures a single Member.
type MemberOption func(*Member)

// New builds a Config from options. Options naming the same member are merged
// in order.
func New(opts ...Option) *Config {
	c := &Config{members: make(map[string]*Member)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// For configures the contract method called name.
func For(name string, opts ...MemberOption) Option {
	return func(c *Config) {
		m, ok := c.members[name]
		if !ok {
			m = &Member{Name: name}
			c.members[name] = m
		}
		for _, opt := range opts {
			opt(m)
		}
	}
}

// Add stores m, replacing any previous configuration of the same member.
func (c *Config) Add(m Member) {
	if c.members == nil {
		c.members = make(map[string]*Member)
	}
	cp := m
	c.members[m.Name] = &cp
}

// Member returns a copy of the configuration of the named member.
func (c *Config) Member(name string) (Member, bool) {
	if c == nil {
		return Member{}, false
	}
	m, ok := c.members[name]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// Names returns the configured member names, sorted.
func (c *Config) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.members))
	for name := range c.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AsProperty binds the member to a field.
func AsProperty() MemberOption {
	return func(m *Member) { m.Kind = Property }
}

// AsIndexer binds the member to an element of a map or slice.
func AsIndexer() MemberOption {
	return func(m *Member) { m.Kind = Indexer }
}

// AsEvent binds the member to a handler slice field.
func AsEvent() MemberOption {
	return func(m *Member) { m.Kind = Event }
}

// AsConstructor binds the member to one of the given factories. The member
// result is an adapter over the factory result.
func AsConstructor(factories ...any) MemberOption {
	return func(m *Member) {
		m.Kind = Constructor
		m.Sources = append(m.Sources, factories...)
	}
}

// AsStatic binds the member to the function among funcs named like the member.
func AsStatic(funcs ...any) MemberOption {
	return func(m *Member) {
		m.Kind = Static
		m.Sources = append(m.Sources, funcs...)
	}
}

// Rename looks the member up on the target under name. A qualified
// "Embedded.Field" name selects one of two same-depth fields.
func Rename(name string) MemberOption {
	return func(m *Member) { m.Rename = name }
}

// WithProxy attaches a proxy function to the member.
func WithProxy(mode Mode, fn any) MemberOption {
	return func(m *Member) { m.Proxy = &Proxy{Mode: mode, Func: fn} }
}

// RealType declares the concrete type behind parameter index param.
func RealType(param int, t any) MemberOption {
	return func(m *Member) {
		if m.RealTypes == nil {
			m.RealTypes = make(map[int]any)
		}
		m.RealTypes[param] = t
	}
}
