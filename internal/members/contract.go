// Package members normalizes a contract interface and a target type into
// uniform member lists the resolver matches against each other.
package members

import (
	"strings"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/shim/constants"
	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/errors"
	"github.com/ygrebnov/shim/internal/typesys"
)

// Accessor is the direction of a property or indexer member.
type Accessor uint8

const (
	NoAccessor Accessor = iota
	Get
	Set
)

func (a Accessor) String() string {
	switch a {
	case Get:
		return "get"
	case Set:
		return "set"
	default:
		return ""
	}
}

// ContractMember is one method of a contract, with its configuration applied.
type ContractMember struct {
	Index int
	Name  string
	Kind  contract.Kind
	// Lookup is the name candidates are searched under.
	Lookup   string
	Accessor Accessor
	Sig      typesys.Signature
	// RealParams holds per-parameter real-type overrides; entries may be nil.
	RealParams []typesys.Type
	Proxy      *Proxy
	// Sources are the configured constructor factories or static functions.
	Sources []*typesys.Func
}

// Proxy is a resolved proxy specification.
type Proxy struct {
	Mode contract.Mode
	Func *typesys.Func
}

// ParamType returns the type parameter i is compared with.
func (m ContractMember) ParamType(i int) typesys.Type {
	if i < len(m.RealParams) && m.RealParams[i] != nil {
		return m.RealParams[i]
	}
	return m.Sig.Params[i]
}

// Contract builds the members of the contract type c. cfg may be nil.
func Contract(u typesys.Universe, c typesys.Type, cfg *contract.Config) ([]ContractMember, error) {
	if !typesys.IsContract(c) {
		return nil, errorc.With(errors.ErrInvalidContract, errorc.String(errors.ErrorFieldContractType, c.String()))
	}
	methods := c.Methods()
	declared := make(map[string]bool, len(methods))
	for _, m := range methods {
		declared[m.Name] = true
	}
	for _, name := range cfg.Names() {
		if !declared[name] {
			return nil, errorc.With(
				errors.ErrUnknownMember,
				errorc.String(errors.ErrorFieldContractType, c.String()),
				errorc.String(errors.ErrorFieldMemberName, name),
			)
		}
	}

	out := make([]ContractMember, 0, len(methods))
	for i, m := range methods {
		mc, _ := cfg.Member(m.Name)
		cm := ContractMember{
			Index:  i,
			Name:   m.Name,
			Kind:   mc.Kind,
			Lookup: m.Name,
			Sig:    m.Sig,
		}
		if err := cm.classify(); err != nil {
			return nil, errorc.With(err,
				errorc.String(errors.ErrorFieldContractType, c.String()),
				errorc.String(errors.ErrorFieldMemberName, m.Name),
				errorc.String(errors.ErrorFieldMemberKind, mc.Kind.String()),
				errorc.String(errors.ErrorFieldSignature, m.Sig.String()),
			)
		}
		if mc.Rename != "" {
			cm.Lookup = mc.Rename
		}
		if err := cm.resolveRefs(u, mc); err != nil {
			return nil, errorc.With(err,
				errorc.String(errors.ErrorFieldContractType, c.String()),
				errorc.String(errors.ErrorFieldMemberName, m.Name),
			)
		}
		out = append(out, cm)
	}
	return out, nil
}

// classify checks the signature against the declared kind and derives the
// accessor and lookup name.
func (m *ContractMember) classify() error {
	in, out := len(m.Sig.Params), len(m.Sig.Results)
	switch m.Kind {
	case contract.Method, contract.Static:
		return nil
	case contract.Property:
		switch {
		case in == 0 && out == 1:
			m.Accessor = Get
		case in == 1 && out == 0 && !m.Sig.Variadic:
			m.Accessor = Set
			if name := strings.TrimPrefix(m.Name, constants.SetterPrefix); name != m.Name && name != "" {
				m.Lookup = name
			}
		default:
			return errors.ErrInvalidMember
		}
	case contract.Indexer:
		switch {
		case in == 1 && (out == 1 || out == 2 && m.Sig.Results[1].Kind() == typesys.Basic && m.Sig.Results[1].String() == "bool"):
			m.Accessor = Get
		case in == 2 && out == 0 && !m.Sig.Variadic:
			m.Accessor = Set
		default:
			return errors.ErrInvalidMember
		}
	case contract.Event:
		if in != 1 || out != 0 || m.Sig.Variadic || m.Sig.Params[0].Kind() != typesys.Function {
			return errors.ErrInvalidMember
		}
	case contract.Constructor:
		if out == 0 || out > 2 {
			return errors.ErrInvalidMember
		}
	default:
		return errors.ErrInvalidMember
	}
	return nil
}

func (m *ContractMember) resolveRefs(u typesys.Universe, mc contract.Member) error {
	if len(mc.RealTypes) > 0 {
		m.RealParams = make([]typesys.Type, len(m.Sig.Params))
		for i, ref := range mc.RealTypes {
			if i < 0 || i >= len(m.Sig.Params) {
				return errors.ErrInvalidMember
			}
			t, err := u.Type(ref)
			if err != nil {
				return err
			}
			m.RealParams[i] = t
		}
	}
	for _, ref := range mc.Sources {
		fn, err := u.Func(ref)
		if err != nil {
			return err
		}
		m.Sources = append(m.Sources, fn)
	}
	if mc.Proxy != nil {
		fn, err := u.Func(mc.Proxy.Func)
		if err != nil {
			return err
		}
		m.Proxy = &Proxy{Mode: mc.Proxy.Mode, Func: fn}
	}
	if (m.Kind == contract.Constructor || m.Kind == contract.Static) && len(m.Sources) == 0 && m.Proxy == nil {
		return errors.ErrInvalidMember
	}
	return nil
}

// StaticOnly reports whether no member needs a target instance.
func StaticOnly(ms []ContractMember) bool {
	for _, m := range ms {
		if m.Kind.Instance() {
			return false
		}
	}
	return true
}
