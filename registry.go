// Package shim adapts values of concrete types to interfaces they do not
// implement. Each contract method is bound to a target method, field, map or
// slice, a constructor or static function, or a proxy function, and the
// binding is memoized per (contract, target) type pair in a Registry.
package shim

import (
	"context"
	"reflect"
	"sync"

	"github.com/ygrebnov/errorc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/ygrebnov/shim/constants"
	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/dispatch"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/resolve"
	"github.com/ygrebnov/shim/internal/typesys"
)

// Registry resolves and memoizes adapters. It is safe for concurrent use.
type Registry struct {
	engine   *resolve.Engine
	logger   *zap.Logger
	provider metric.MeterProvider

	lookups     metric.Int64Counter
	synthesized metric.Int64Counter
	failures    metric.Int64Counter

	mu       sync.RWMutex
	adapters map[plan.Key]*dispatch.Adapter
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger sets the logger resolution and synthesis are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMeterProvider sets the provider of the registry counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(r *Registry) {
		if mp != nil {
			r.provider = mp
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:   zap.NewNop(),
		provider: otel.GetMeterProvider(),
		adapters: make(map[plan.Key]*dispatch.Adapter),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.engine = resolve.NewEngine(typesys.Reflect(), resolve.WithLogger(r.logger))

	meter := r.provider.Meter(constants.ImportPath)
	r.lookups = r.counter(meter, "shim.registry.lookups")
	r.synthesized = r.counter(meter, "shim.registry.synthesized")
	r.failures = r.counter(meter, "shim.registry.failures")
	return r
}

// counter creates the named counter. A counter the meter fails to create
// is reported and replaced by one that records nothing.
func (r *Registry) counter(meter metric.Meter, name string) metric.Int64Counter {
	c, err := meter.Int64Counter(name)
	if err != nil {
		r.logger.Warn("counter not created", zap.String("name", name), zap.Error(err))
	}
	if c == nil {
		return noop.Int64Counter{}
	}
	return c
}

// adapter returns the adapter of (c, target), resolving and synthesizing it
// on first use. A nil target denotes a factory.
func (r *Registry) adapter(c, target reflect.Type) (*dispatch.Adapter, error) {
	ct, tt := typesys.Of(c), typesys.Of(target)
	key := plan.KeyOf(ct, tt)

	r.mu.RLock()
	a, ok := r.adapters[key]
	r.mu.RUnlock()
	if ok {
		r.lookups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", "hit")))
		return a, nil
	}
	r.lookups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", "miss")))

	p, err := r.engine.Resolve(ct, tt)
	if err != nil {
		r.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("stage", "resolve")))
		return nil, err
	}

	if err := r.checkShells(p); err != nil {
		r.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("stage", "synthesize")))
		return nil, err
	}
	a, err = r.synthesize(key, c, p)
	if err != nil {
		r.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("stage", "synthesize")))
		return nil, err
	}
	return a, nil
}

// checkShells verifies that a shell is registered for every contract p
// wraps results into, transitively, so that a missing one is reported now
// rather than when a member is called. Nested adapters are built lazily.
func (r *Registry) checkShells(p *plan.Plan) error {
	seen := map[plan.Key]bool{p.Key(): true}
	queue := []*plan.Plan{p}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, pair := range wrapPairs(next) {
			key := plan.KeyOf(pair[0], pair[1])
			if seen[key] {
				continue
			}
			seen[key] = true
			c, _ := typesys.ReflectType(pair[0])
			if _, ok := lookupShell(c); !ok {
				return errorc.With(errors.ErrNoShell, errorc.String(errors.ErrorFieldContractType, c.String()))
			}
			if nested, ok := r.engine.Lookup(pair[0], pair[1]); ok {
				queue = append(queue, nested)
			}
		}
	}
	return nil
}

func (r *Registry) synthesize(key plan.Key, c reflect.Type, p *plan.Plan) (*dispatch.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[key]; ok {
		return a, nil
	}
	newShell, ok := lookupShell(c)
	if !ok {
		return nil, errorc.With(errors.ErrNoShell, errorc.String(errors.ErrorFieldContractType, c.String()))
	}
	a, err := dispatch.New(p, newShell, r.adapter)
	if err != nil {
		return nil, err
	}
	r.adapters[key] = a
	r.synthesized.Add(context.Background(), 1)
	r.logger.Debug("adapter synthesized",
		zap.Stringer("contract", p.Contract),
		zap.Stringer("target", targetOf(p)),
		zap.Int("bindings", len(p.Bindings)),
	)
	return a, nil
}

// wrapPairs returns the (contract, target) pairs whose adapters p's results
// are wrapped with.
func wrapPairs(p *plan.Plan) [][2]typesys.Type {
	var out [][2]typesys.Type
	for _, b := range p.Bindings {
		for _, c := range b.Results {
			c.Walk(func(c plan.Conv) {
				if c.Kind == plan.Wrap {
					out = append(out, [2]typesys.Type{c.To, c.From})
				}
			})
		}
	}
	return out
}

type factoryName struct{}

func (factoryName) String() string { return "<factory>" }

func targetOf(p *plan.Plan) interface{ String() string } {
	if p.Target == nil {
		return factoryName{}
	}
	return p.Target
}

// Configure sets the member configuration of contract c. It fails with
// ErrAlreadyResolved once c has been resolved.
func (r *Registry) Configure(c reflect.Type, opts ...contract.Option) error {
	ct, err := contractType(c)
	if err != nil {
		return err
	}
	return r.engine.Configure(ct, contract.New(opts...))
}

// TolerateMissingMembers makes unresolved members of contract c bind to
// stubs signalling ErrNotImplemented when called. It cannot be undone.
func (r *Registry) TolerateMissingMembers(c reflect.Type) error {
	ct, err := contractType(c)
	if err != nil {
		return err
	}
	r.engine.Tolerate(ct)
	return nil
}

// Plans returns every resolved plan.
func (r *Registry) Plans() []*Plan {
	return r.engine.Plans()
}

// Reset drops every plan, adapter, configuration and tolerance.
// Registered shells are kept.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engine.Reset()
	r.adapters = make(map[plan.Key]*dispatch.Adapter)
}

func contractType(c reflect.Type) (typesys.Type, error) {
	ct := typesys.Of(c)
	if !typesys.IsContract(ct) {
		name := "<nil>"
		if c != nil {
			name = c.String()
		}
		return nil, errorc.With(errors.ErrInvalidContract, errorc.String(errors.ErrorFieldContractType, name))
	}
	return ct, nil
}
