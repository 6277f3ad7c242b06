// Package generate resolves the pairs of a manifest against a compile-time
// universe and renders the adapter and shell sources.
package generate

import (
	"context"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/emit"
	"github.com/ygrebnov/shim/internal/manifest"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/resolve"
	"github.com/ygrebnov/shim/internal/typesys"
)

// Output holds the rendered sources. A part with nothing to render is nil.
type Output struct {
	Adapters []byte
	Shells   []byte
	Plans    []*plan.Plan
}

type pair struct {
	contract typesys.Type
	target   typesys.Type
}

// Run resolves every pair of m, at most concurrency at a time, and renders
// the resulting plans, nested pairs included.
func Run(ctx context.Context, logger *zap.Logger, u typesys.Universe, m *manifest.Manifest, concurrency int) (*Output, error) {
	engine := resolve.NewEngine(u, resolve.WithLogger(logger))
	pairs, err := configure(engine, u, m)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := engine.Resolve(p.contract, p.target)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg := emit.Config{Package: m.Package, Path: m.Path}
	out := &Output{Plans: engine.Plans()}
	if len(out.Plans) > 0 {
		if out.Adapters, err = emit.File(cfg, out.Plans); err != nil {
			return nil, err
		}
	}
	if len(m.Shells) > 0 {
		contracts := make([]typesys.Type, 0, len(m.Shells))
		for _, ref := range m.Shells {
			c, err := u.Type(ref)
			if err != nil {
				return nil, err
			}
			contracts = append(contracts, c)
		}
		if out.Shells, err = emit.Shells(cfg, contracts); err != nil {
			return nil, err
		}
	}
	logger.Info("generated",
		zap.Int("pairs", len(pairs)),
		zap.Int("plans", len(out.Plans)),
		zap.Int("shells", len(m.Shells)),
	)
	return out, nil
}

// configure applies member configuration and tolerance before anything is
// resolved. A contract's members may be configured by one pair only.
func configure(engine *resolve.Engine, u typesys.Universe, m *manifest.Manifest) ([]pair, error) {
	configured := make(map[any]string)
	pairs := make([]pair, 0, len(m.Pairs))
	for _, mp := range m.Pairs {
		c, err := u.Type(mp.Contract)
		if err != nil {
			return nil, err
		}
		var t typesys.Type
		if mp.Target != "" {
			if t, err = u.Type(mp.Target); err != nil {
				return nil, err
			}
		}

		if len(mp.Members) > 0 {
			if prev, ok := configured[c.Key()]; ok {
				return nil, errorc.With(
					errors.ErrInvalidManifest,
					errorc.String(errors.ErrorFieldContractType, c.String()),
					errorc.String(errors.ErrorFieldCause, "members already configured by pair with target "+prev),
				)
			}
			configured[c.Key()] = mp.Target
			cfg, err := mp.Config()
			if err != nil {
				return nil, err
			}
			if err := engine.Configure(c, cfg); err != nil {
				return nil, err
			}
		}
		if mp.Tolerate {
			engine.Tolerate(c)
		}
		pairs = append(pairs, pair{contract: c, target: t})
	}
	return pairs, nil
}
