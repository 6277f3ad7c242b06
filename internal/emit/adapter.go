package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/internal/members"
	"github.com/ygrebnov/shim/internal/plan"
	"github.com/ygrebnov/shim/internal/typesys"
)

func (g *generator) adapter(p *plan.Plan) error {
	n := g.pairs[p.Key()]
	cexpr, err := p.Contract.Expr(g.im.qualify)
	if err != nil {
		return err
	}

	var texpr string
	if p.Target != nil {
		if texpr, err = p.Target.Expr(g.im.qualify); err != nil {
			return err
		}
		fmt.Fprintf(&g.body, "// %s adapts %s to %s.\n", n.typ, texpr, cexpr)
	} else {
		fmt.Fprintf(&g.body, "// %s implements the static members of %s.\n", n.typ, cexpr)
	}
	fmt.Fprintf(&g.body, "type %s struct {\n", n.typ)
	if p.Target != nil {
		fmt.Fprintf(&g.body, "target %s\n", texpr)
	}
	if p.Proxied() {
		fmt.Fprintf(&g.body, "busy [%d]%s.Bool\n", len(p.Bindings), g.im.qualify("sync/atomic", "atomic"))
	}
	g.body.WriteString("}\n\n")

	if p.Target != nil {
		fmt.Fprintf(&g.body, "// %s returns target adapted to %s.\nfunc %s(target %s) %s {\n", n.ctor, cexpr, n.ctor, texpr, cexpr)
		if nilable(p.Target) {
			g.body.WriteString("if target == nil {\nreturn nil\n}\n")
		}
		fmt.Fprintf(&g.body, "return &%s{target: target}\n}\n\n", n.typ)
		fmt.Fprintf(&g.body, "func (a *%s) ShimTarget() any {\nreturn a.target\n}\n\n", n.typ)
	} else {
		fmt.Fprintf(&g.body, "// %s returns the factory of %s.\nfunc %s() %s {\nreturn &%s{}\n}\n\n", n.ctor, cexpr, n.ctor, cexpr, n.typ)
		fmt.Fprintf(&g.body, "func (a *%s) ShimTarget() any {\nreturn nil\n}\n\n", n.typ)
	}

	for i, b := range p.Bindings {
		if err := g.method(p, n.typ, i, b); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) method(p *plan.Plan, typ string, i int, b plan.Binding) error {
	params, results, _, err := g.signature(b.Member.Sig)
	if err != nil {
		return err
	}
	direct, err := g.direct(p, b)
	if err != nil {
		return err
	}

	var body string
	switch {
	case b.Proxy == nil:
		body = direct
	default:
		proxy, err := g.proxy(b)
		if err != nil {
			return err
		}
		body = proxy
		if b.Reentrant && direct != "" {
			if len(b.Member.Sig.Results) == 0 {
				direct += "return\n"
			}
			body = fmt.Sprintf("if !a.busy[%d].CompareAndSwap(false, true) {\n%s}\ndefer a.busy[%d].Store(false)\n%s",
				i, direct, i, proxy)
		}
	}
	fmt.Fprintf(&g.body, "func (a *%s) %s(%s)%s {\n%s}\n\n", typ, b.Name(), params, results, body)
	return nil
}

// direct renders the statements calling the bound member, or "" for added
// proxies.
func (g *generator) direct(p *plan.Plan, b plan.Binding) (string, error) {
	switch {
	case b.Missing:
		return g.missing(p, b)
	case b.Func != nil:
		if !b.Func.Func.Emittable {
			return "", notEmittable(b.Func.Qualified, "function has no name in source")
		}
		callee, err := b.Func.Func.Expr(g.im.qualify)
		if err != nil {
			return "", err
		}
		return g.call(b, callee)
	case b.Target == nil:
		return "", nil
	}

	tm := b.Target
	if tm.Kind == members.TargetMethod {
		return g.call(b, "a.target."+tm.Name)
	}
	sel := "a.target"
	if tm.Kind == members.TargetField {
		sel += tm.Selector()
	}

	switch b.Member.Kind {
	case contract.Property:
		if b.Member.Accessor == members.Set {
			v, err := g.conv(b.Params[0], "p0")
			if err != nil {
				return "", err
			}
			return sel + " = " + v + "\n", nil
		}
		return g.ret(b, sel)
	case contract.Indexer:
		return g.index(b, sel)
	case contract.Event:
		return sel + " = append(" + sel + ", p0)\n", nil
	}
	return "", nil
}

func (g *generator) index(b plan.Binding, container string) (string, error) {
	key, err := g.conv(b.Params[0], "p0")
	if err != nil {
		return "", err
	}
	elem := container + "[" + key + "]"
	if b.Member.Accessor == members.Set {
		v, err := g.conv(b.Params[1], "p1")
		if err != nil {
			return "", err
		}
		return elem + " = " + v + "\n", nil
	}
	if len(b.Member.Sig.Results) == 1 {
		return g.ret(b, elem)
	}
	v, err := g.conv(b.Results[0], "r0")
	if err != nil {
		return "", err
	}
	ok := "ok"
	if rt := b.Member.Sig.Results[1]; rt.String() != "bool" {
		s, err := rt.Expr(g.im.qualify)
		if err != nil {
			return "", err
		}
		ok = s + "(ok)"
	}
	return "r0, ok := " + elem + "\nreturn " + v + ", " + ok + "\n", nil
}

func (g *generator) call(b plan.Binding, callee string) (string, error) {
	args := make([]string, len(b.Params))
	for i, c := range b.Params {
		a, err := g.conv(c, "p"+strconv.Itoa(i))
		if err != nil {
			return "", err
		}
		args[i] = a
	}
	if b.Member.Sig.Variadic {
		args[len(args)-1] += "..."
	}
	return g.ret(b, callee+"("+strings.Join(args, ", ")+")")
}

// ret renders returning the results of expr, converted.
func (g *generator) ret(b plan.Binding, expr string) (string, error) {
	switch n := len(b.Member.Sig.Results); {
	case n == 0:
		return expr + "\n", nil
	case !b.Wraps():
		return "return " + expr + "\n", nil
	case n == 1:
		v, err := g.conv(b.Results[0], expr)
		if err != nil {
			return "", err
		}
		return "return " + v + "\n", nil
	default:
		vars := make([]string, n)
		outs := make([]string, n)
		for i := range vars {
			vars[i] = "r" + strconv.Itoa(i)
			v, err := g.conv(b.Results[i], vars[i])
			if err != nil {
				return "", err
			}
			outs[i] = v
		}
		return strings.Join(vars, ", ") + " := " + expr + "\nreturn " + strings.Join(outs, ", ") + "\n", nil
	}
}

func (g *generator) proxy(b plan.Binding) (string, error) {
	fn := b.Proxy.Func
	if !fn.Emittable {
		return "", notEmittable(fn.Qualified(), "proxy has no name in source")
	}
	callee, err := fn.Expr(g.im.qualify)
	if err != nil {
		return "", err
	}
	var args []string
	if b.Member.Kind.Instance() {
		args = append(args, "a")
	}
	for i := range b.Member.Sig.Params {
		args = append(args, "p"+strconv.Itoa(i))
	}
	if b.Member.Sig.Variadic {
		args[len(args)-1] += "..."
	}
	call := callee + "(" + strings.Join(args, ", ") + ")"
	if len(b.Member.Sig.Results) == 0 {
		return call + "\n", nil
	}
	return "return " + call + "\n", nil
}

func (g *generator) missing(p *plan.Plan, b plan.Binding) (string, error) {
	target := "<factory>"
	if p.Target != nil {
		target = p.Target.String()
	}
	signal := fmt.Sprintf("%s(%q, %q, %q)", g.ref("NotImplemented"), p.Contract.String(), target, b.Name())
	rs := b.Member.Sig.Results
	if len(rs) == 0 || !isError(rs[len(rs)-1]) {
		return "panic(" + signal + ")\n", nil
	}
	outs := make([]string, 0, len(rs))
	for _, r := range rs[:len(rs)-1] {
		s, err := r.Expr(g.im.qualify)
		if err != nil {
			return "", err
		}
		outs = append(outs, "*new("+s+")")
	}
	return "return " + strings.Join(append(outs, signal), ", ") + "\n", nil
}

// conv renders expr converted as c says.
func (g *generator) conv(c plan.Conv, expr string) (string, error) {
	switch c.Kind {
	case plan.Wrap:
		n, ok := g.pairs[plan.KeyOf(c.To, c.From)]
		if !ok {
			return "", notEmittable(c.To.String()+" <- "+c.From.String(), "nested pair was not resolved")
		}
		return n.ctor + "(" + expr + ")", nil
	case plan.Unwrap:
		to, err := c.To.Expr(g.im.qualify)
		if err != nil {
			return "", err
		}
		return g.ref("MustUnwrap") + "[" + to + "](" + expr + ")", nil
	case plan.Slice, plan.Array:
		from, err := c.From.Expr(g.im.qualify)
		if err != nil {
			return "", err
		}
		to, err := c.To.Expr(g.im.qualify)
		if err != nil {
			return "", err
		}
		elem, err := g.conv(*c.Elem, "e")
		if err != nil {
			return "", err
		}
		if c.Kind == plan.Array {
			return fmt.Sprintf("func(in %s) (out %s) {\nfor i, e := range in {\nout[i] = %s\n}\nreturn\n}(%s)",
				from, to, elem, expr), nil
		}
		return fmt.Sprintf("func(in %s) %s {\nif in == nil {\nreturn nil\n}\nout := make(%s, len(in))\nfor i, e := range in {\nout[i] = %s\n}\nreturn out\n}(%s)",
			from, to, to, elem, expr), nil
	default:
		return expr, nil
	}
}

func nilable(t typesys.Type) bool {
	switch t.Kind() {
	case typesys.Pointer, typesys.Map, typesys.Slice, typesys.Interface, typesys.Function, typesys.Chan:
		return true
	default:
		return false
	}
}

func isError(t typesys.Type) bool {
	return t.Kind() == typesys.Interface && t.String() == "error"
}
