// Package loader type-checks Go packages for the compile-time universe.
package loader

import (
	"context"
	"go/types"
	"strings"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/typesys"
)

const mode = packages.NeedName | packages.NeedTypes | packages.NeedImports | packages.NeedDeps

// Load type-checks the packages matching patterns from dir, with the given
// build tags, and returns the universe over them and their dependencies.
func Load(ctx context.Context, logger *zap.Logger, dir string, tags []string, patterns ...string) (typesys.Universe, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    mode,
		Dir:     dir,
	}
	if len(tags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(tags, ",")}
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, loadError(strings.Join(patterns, " "), err)
	}

	var failed error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			logger.Error("package error", zap.String("package", p.PkgPath), zap.String("error", e.Error()))
			if failed == nil {
				failed = loadError(p.PkgPath, e)
			}
		}
	})
	if failed != nil {
		return nil, failed
	}

	roots := make([]*types.Package, 0, len(pkgs))
	for _, p := range pkgs {
		roots = append(roots, p.Types)
		logger.Debug("package loaded", zap.String("package", p.PkgPath))
	}
	return typesys.GoTypes(roots...), nil
}

func loadError(ref string, err error) error {
	return errorc.With(
		errors.ErrUnresolvableRef,
		errorc.String(errors.ErrorFieldReference, ref),
		errorc.Error(errors.ErrorFieldCause, err),
	)
}
