// Package resolve binds contract members to target members and drives the
// implicit closure of (contract, target) pairs to a fixpoint.
package resolve

import (
	"sort"
	"sync"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"

	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/members"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

// resolver binds the members of one (contract, target) pair.
type resolver struct {
	contract typesys.Type
	target   typesys.Type
	universe typesys.Universe
	matcher  matcher
	tolerant bool
}

func (r *resolver) bind(m members.ContractMember, d *members.Descriptor) (plan.Binding, error) {
	cands, err := r.matcher.candidates(m, d)
	if err != nil {
		return plan.Binding{}, errorc.With(err,
			errorc.String(errors.ErrorFieldContractType, r.contract.String()),
			errorc.String(errors.ErrorFieldMemberName, m.Name),
		)
	}
	found, err := pick(r.contract, m, cands)
	if err != nil {
		return plan.Binding{}, err
	}
	if m.Proxy != nil {
		return r.bindProxy(m, found)
	}
	if found == nil {
		if r.tolerant {
			return plan.Binding{Member: m, Missing: true}, nil
		}
		return plan.Binding{}, errorc.With(
			errors.ErrUnresolvedMember,
			errorc.String(errors.ErrorFieldContractType, r.contract.String()),
			errorc.String(errors.ErrorFieldTargetType, r.targetName()),
			errorc.String(errors.ErrorFieldMemberName, m.Name),
			errorc.String(errors.ErrorFieldMemberKind, m.Kind.String()),
		)
	}
	if found.rank == rankNone {
		return plan.Binding{}, r.notAdaptable(m, found)
	}
	b := plan.Binding{Member: m}
	r.attach(&b, found)
	return b, nil
}

func (r *resolver) attach(b *plan.Binding, found *candidate) {
	tm := found.member
	if tm.Kind == members.TargetFunc {
		b.Func = &tm
	} else {
		b.Target = &tm
	}
	b.Params = found.params
	b.Results = found.results
}

func (r *resolver) notAdaptable(m members.ContractMember, found *candidate) error {
	return errorc.With(
		errors.ErrNotAdaptable,
		errorc.String(errors.ErrorFieldContractType, r.contract.String()),
		errorc.String(errors.ErrorFieldTargetType, r.targetName()),
		errorc.String(errors.ErrorFieldMemberName, m.Name),
		errorc.String(errors.ErrorFieldTargetMember, describe(found.member)),
		errorc.String(errors.ErrorFieldFromType, found.bad[0].String()),
		errorc.String(errors.ErrorFieldToType, found.bad[1].String()),
	)
}

func (r *resolver) targetName() string {
	if r.target == nil {
		return "<factory>"
	}
	return r.target.String()
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger resolution is reported to.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine resolves (contract, target) pairs of one universe into plans and
// caches them. Plans are never re-resolved or removed, except by Reset.
type Engine struct {
	universe typesys.Universe
	logger   *zap.Logger

	mu       sync.RWMutex
	plans    map[plan.Key]*plan.Plan
	configs  map[any]*contract.Config
	tolerant map[any]bool
	resolved map[any]bool // contract keys with at least one plan
}

// NewEngine creates an engine resolving in universe u.
func NewEngine(u typesys.Universe, opts ...Option) *Engine {
	e := &Engine{
		universe: u,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.init()
	return e
}

func (e *Engine) init() {
	e.plans = make(map[plan.Key]*plan.Plan)
	e.configs = make(map[any]*contract.Config)
	e.tolerant = make(map[any]bool)
	e.resolved = make(map[any]bool)
}

// Universe returns the universe the engine resolves in.
func (e *Engine) Universe() typesys.Universe {
	return e.universe
}

// Configure sets the member configuration of contract c. The configuration
// is validated immediately. It cannot change once c has been resolved.
func (e *Engine) Configure(c typesys.Type, cfg *contract.Config) error {
	if _, err := members.Contract(e.universe, c, cfg); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resolved[c.Key()] {
		return errorc.With(errors.ErrAlreadyResolved, errorc.String(errors.ErrorFieldContractType, c.String()))
	}
	e.configs[c.Key()] = cfg
	return nil
}

// Tolerate makes unresolved members of c bind to not-implemented stubs.
// There is no way back.
func (e *Engine) Tolerate(c typesys.Type) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tolerant[c.Key()] = true
}

// Tolerates reports whether missing members of c are tolerated.
func (e *Engine) Tolerates(c typesys.Type) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tolerant[c.Key()]
}

// Lookup returns the committed plan of a pair. A nil target looks up a factory.
func (e *Engine) Lookup(c, t typesys.Type) (*plan.Plan, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.plans[plan.KeyOf(c, t)]
	return p, ok
}

// Resolve returns the plan of (c, t), resolving it and every pair it
// transitively needs first. A nil target resolves a factory, whose members
// must all be constructors or statics. Pairs discovered while resolving are
// committed together, and only when all of them resolve.
func (e *Engine) Resolve(c, t typesys.Type) (*plan.Plan, error) {
	if p, ok := e.Lookup(c, t); ok {
		return p, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := plan.KeyOf(c, t)
	if p, ok := e.plans[key]; ok {
		return p, nil
	}

	staged := make(map[plan.Key]*plan.Plan)
	queue := [][2]typesys.Type{{c, t}}
	for len(queue) > 0 {
		pair := queue[0]
		queue = queue[1:]

		k := plan.KeyOf(pair[0], pair[1])
		if _, ok := e.plans[k]; ok {
			continue
		}
		if _, ok := staged[k]; ok {
			continue
		}

		p, err := e.resolvePair(pair[0], pair[1])
		if err != nil {
			e.logger.Debug("resolution failed",
				zap.String("universe", e.universe.Name()),
				zap.String("contract", c.String()),
				zap.String("pair", pairName(pair[0], pair[1])),
				zap.Error(err),
			)
			return nil, err
		}
		staged[k] = p
		queue = append(queue, p.Pairs()...)
	}

	for k, p := range staged {
		e.plans[k] = p
		e.resolved[k.Contract] = true
		e.logger.Debug("plan committed",
			zap.String("universe", e.universe.Name()),
			zap.String("pair", pairName(p.Contract, p.Target)),
			zap.Int("bindings", len(p.Bindings)),
			zap.Bool("proxied", p.Proxied()),
		)
	}
	return staged[key], nil
}

func (e *Engine) resolvePair(c, t typesys.Type) (*plan.Plan, error) {
	ms, err := members.Contract(e.universe, c, e.configs[c.Key()])
	if err != nil {
		return nil, err
	}
	if t == nil && !members.StaticOnly(ms) {
		return nil, errorc.With(
			errors.ErrInvalidContract,
			errorc.String(errors.ErrorFieldContractType, c.String()),
			errorc.String(errors.ErrorFieldCause, "factory contract has instance members"),
		)
	}

	d := &members.Descriptor{}
	if t != nil {
		d = members.Describe(t)
	}
	r := &resolver{
		contract: c,
		target:   t,
		universe: e.universe,
		matcher:  matcher{universe: e.universe},
		tolerant: e.tolerant[c.Key()],
	}
	p := &plan.Plan{Contract: c, Target: t, Tolerant: r.tolerant}
	for _, m := range ms {
		b, err := r.bind(m, d)
		if err != nil {
			return nil, err
		}
		p.Bindings = append(p.Bindings, b)
	}
	return p, nil
}

// Plans returns every committed plan ordered by contract, then target.
func (e *Engine) Plans() []*plan.Plan {
	e.mu.RLock()
	out := make([]*plan.Plan, 0, len(e.plans))
	for _, p := range e.plans {
		out = append(out, p)
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Contract.String() != b.Contract.String() {
			return a.Contract.String() < b.Contract.String()
		}
		return pairName(nil, a.Target) < pairName(nil, b.Target)
	})
	return out
}

// Reset drops plans, configurations and tolerance.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.init()
}

func pairName(c, t typesys.Type) string {
	target := "<factory>"
	if t != nil {
		target = t.String()
	}
	if c == nil {
		return target
	}
	return c.String() + " <- " + target
}
