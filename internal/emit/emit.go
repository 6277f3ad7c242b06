// Package emit renders plans as Go source: one adapter struct and
// constructor per plan, and shells the run-time backend fills in.
package emit

import (
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/constants"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

// Config names the package generated code belongs to.
type Config struct {
	// Package is the package name.
	Package string
	// Path is the import path of the package. Its own types are not qualified.
	Path string
}

type names struct {
	typ  string
	ctor string
}

type generator struct {
	cfg   Config
	im    *imports
	body  strings.Builder
	pairs map[plan.Key]names
	taken map[string]bool
}

func newGenerator(cfg Config) *generator {
	return &generator{
		cfg:   cfg,
		im:    newImports(cfg.Path),
		pairs: make(map[plan.Key]names),
		taken: make(map[string]bool),
	}
}

// File renders the adapters of plans. Every pair a plan wraps results
// through must be among plans.
func File(cfg Config, plans []*plan.Plan) ([]byte, error) {
	g := newGenerator(cfg)
	for _, p := range plans {
		g.name(p)
	}
	for _, p := range plans {
		if err := g.adapter(p); err != nil {
			return nil, err
		}
	}
	return g.finish()
}

// Shells renders a shell type per contract and an init function
// registering them.
func Shells(cfg Config, contracts []typesys.Type) ([]byte, error) {
	g := newGenerator(cfg)
	var registrations []string
	for _, c := range contracts {
		if !typesys.IsContract(c) {
			return nil, errorc.With(errors.ErrInvalidContract, errorc.String(errors.ErrorFieldContractType, c.String()))
		}
		name := g.unique(upperFirst(typesys.ShortName(c)) + "Shell")
		cexpr, err := c.Expr(g.im.qualify)
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(&g.body, "// %s is the run-time shell of %s.\ntype %s struct {\n%s\n", name, cexpr, name, g.ref("Shell"))
		methods := c.Methods()
		for _, m := range methods {
			params, results, _, err := g.signature(m.Sig)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&g.body, "%s%s func(%s)%s\n", constants.ShellFieldPrefix, m.Name, params, results)
		}
		g.body.WriteString("}\n\n")
		for _, m := range methods {
			params, results, args, err := g.signature(m.Sig)
			if err != nil {
				return nil, err
			}
			call := "s." + constants.ShellFieldPrefix + m.Name + "(" + strings.Join(args, ", ") + ")"
			if len(m.Sig.Results) > 0 {
				call = "return " + call
			}
			fmt.Fprintf(&g.body, "func (s *%s) %s(%s)%s {\n%s\n}\n\n", name, m.Name, params, results, call)
		}
		registrations = append(registrations,
			fmt.Sprintf("%s(func() %s { return &%s{} })", g.ref("RegisterShell"), cexpr, name))
	}
	if len(registrations) > 0 {
		g.body.WriteString("func init() {\n" + strings.Join(registrations, "\n") + "\n}\n")
	}
	return g.finish()
}

func (g *generator) finish() ([]byte, error) {
	var b strings.Builder
	b.WriteString(constants.GeneratedHeader + "\n\n")
	b.WriteString("package " + g.cfg.Package + "\n\n")
	g.im.render(&b)
	b.WriteString(g.body.String())
	src, err := format.Source([]byte(b.String()))
	if err != nil {
		return nil, errorc.With(
			errors.ErrNotEmittable,
			errorc.String(errors.ErrorFieldReference, g.cfg.Path),
			errorc.Error(errors.ErrorFieldCause, err),
		)
	}
	return src, nil
}

func (g *generator) name(p *plan.Plan) {
	contract := upperFirst(typesys.ShortName(p.Contract))
	from := "Factory"
	if p.Target != nil {
		from = "From" + upperFirst(typesys.ShortName(p.Target))
	}
	typ := g.unique(lowerFirst(contract) + from)
	g.pairs[p.Key()] = names{typ: typ, ctor: "New" + upperFirst(typ)}
}

func (g *generator) unique(name string) string {
	n := name
	for i := 2; g.taken[n]; i++ {
		n = name + strconv.Itoa(i)
	}
	g.taken[n] = true
	return n
}

// ref refers to an identifier of the runtime package.
func (g *generator) ref(ident string) string {
	if q := g.im.qualify(constants.ImportPath, constants.Namespace); q != "" {
		return q + "." + ident
	}
	return ident
}

// signature renders parameters as p0, p1, ... and returns the argument list
// forwarding them.
func (g *generator) signature(sig typesys.Signature) (params, results string, args []string, err error) {
	ps := make([]string, len(sig.Params))
	args = make([]string, len(sig.Params))
	for i, p := range sig.Params {
		args[i] = "p" + strconv.Itoa(i)
		t := p
		prefix := ""
		if sig.Variadic && i == len(sig.Params)-1 {
			t, prefix = p.Elem(), "..."
		}
		s, err := t.Expr(g.im.qualify)
		if err != nil {
			return "", "", nil, err
		}
		ps[i] = args[i] + " " + prefix + s
	}
	if sig.Variadic {
		args[len(args)-1] += "..."
	}
	rs := make([]string, len(sig.Results))
	for i, r := range sig.Results {
		s, err := r.Expr(g.im.qualify)
		if err != nil {
			return "", "", nil, err
		}
		rs[i] = s
	}
	switch len(rs) {
	case 0:
	case 1:
		results = " " + rs[0]
	default:
		results = " (" + strings.Join(rs, ", ") + ")"
	}
	return strings.Join(ps, ", "), results, args, nil
}

func notEmittable(ref, cause string) error {
	return errorc.With(
		errors.ErrNotEmittable,
		errorc.String(errors.ErrorFieldReference, ref),
		errorc.String(errors.ErrorFieldCause, cause),
	)
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}
