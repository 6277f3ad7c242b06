// Package manifest reads the YAML description of the adapters shimgen
// generates: the contract/target pairs, their member configuration and the
// contracts to write run-time shells for.
//
//	package: adapters
//	path: example.com/app/adapters
//	shells:
//	  - example.com/app/api.Named
//	pairs:
//	  - contract: example.com/app/api.Named
//	    target: "*example.com/app/model.Person"
//	    members:
//	      Value:
//	        kind: property
//	        rename: Name
//	  - contract: example.com/app/api.Boxes
//	    members:
//	      Create:
//	        kind: constructor
//	        sources: [example.com/app/model.NewBox]
//
// A pair without a target is a factory. References are "import/path.Name";
// type references may be prefixed by "*" or "[]" and carry type arguments
// in brackets.
package manifest

import (
	"os"
	"sort"
	"strings"

	"github.com/ygrebnov/errorc"
	"gopkg.in/yaml.v3"

	"github.com/ygrebnov/shim/contract"
	"github.com/ygrebnov/shim/errors"
)

// Manifest is the root document.
type Manifest struct {
	Package string   `yaml:"package"`
	Path    string   `yaml:"path"`
	Shells  []string `yaml:"shells,omitempty"`
	Pairs   []Pair   `yaml:"pairs"`
}

// Pair is one contract/target pair.
type Pair struct {
	Contract string            `yaml:"contract"`
	Target   string            `yaml:"target,omitempty"`
	Tolerate bool              `yaml:"tolerate,omitempty"`
	Members  map[string]Member `yaml:"members,omitempty"`
}

// Member configures one contract method.
type Member struct {
	Kind    string         `yaml:"kind,omitempty"`
	Rename  string         `yaml:"rename,omitempty"`
	Proxy   *Proxy         `yaml:"proxy,omitempty"`
	Sources []string       `yaml:"sources,omitempty"`
	Real    map[int]string `yaml:"real,omitempty"`
}

// Proxy attaches a proxy function to a member.
type Proxy struct {
	Mode string `yaml:"mode,omitempty"`
	Func string `yaml:"func"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorc.With(
			errors.ErrInvalidManifest,
			errorc.String(errors.ErrorFieldPath, path),
			errorc.Error(errors.ErrorFieldCause, err),
		)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errorc.With(err, errorc.String(errors.ErrorFieldPath, path))
	}
	return m, nil
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errorc.With(errors.ErrInvalidManifest, errorc.Error(errors.ErrorFieldCause, err))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every field shimgen relies on is set and every
// enumerated value is known.
func (m *Manifest) Validate() error {
	if m.Package == "" {
		return invalid("", "package is required")
	}
	if m.Path == "" {
		return invalid("", "path is required")
	}
	if len(m.Pairs) == 0 && len(m.Shells) == 0 {
		return invalid("", "nothing to generate")
	}
	seen := make(map[string]bool, len(m.Pairs))
	for _, p := range m.Pairs {
		if p.Contract == "" {
			return invalid(p.name(), "contract is required")
		}
		if seen[p.name()] {
			return invalid(p.name(), "duplicate pair")
		}
		seen[p.name()] = true
		if _, err := p.Config(); err != nil {
			return err
		}
	}
	return nil
}

// Config converts the member section of p. Function and type references
// stay strings for the go/types universe to resolve.
func (p Pair) Config() (*contract.Config, error) {
	cfg := contract.New()
	for _, name := range p.memberNames() {
		src := p.Members[name]
		m := contract.Member{Name: name, Rename: src.Rename}

		kind, ok := kinds[src.Kind]
		if !ok {
			return nil, invalid(p.name(), "member "+name+": unknown kind "+src.Kind)
		}
		m.Kind = kind
		if len(src.Sources) > 0 && kind != contract.Constructor && kind != contract.Static {
			return nil, invalid(p.name(), "member "+name+": sources need kind constructor or static")
		}
		for _, s := range src.Sources {
			m.Sources = append(m.Sources, s)
		}

		if src.Proxy != nil {
			mode, ok := modes[src.Proxy.Mode]
			if !ok {
				return nil, invalid(p.name(), "member "+name+": unknown proxy mode "+src.Proxy.Mode)
			}
			if src.Proxy.Func == "" {
				return nil, invalid(p.name(), "member "+name+": proxy func is required")
			}
			m.Proxy = &contract.Proxy{Mode: mode, Func: src.Proxy.Func}
		}

		if len(src.Real) > 0 {
			m.RealTypes = make(map[int]any, len(src.Real))
			for i, t := range src.Real {
				if i < 0 {
					return nil, invalid(p.name(), "member "+name+": negative parameter index")
				}
				m.RealTypes[i] = t
			}
		}
		cfg.Add(m)
	}
	return cfg, nil
}

// Packages returns the import paths every reference of m points into,
// sorted and without duplicates.
func (m *Manifest) Packages() []string {
	set := make(map[string]bool)
	add := func(ref string) {
		for _, p := range packagesOf(ref) {
			set[p] = true
		}
	}
	for _, s := range m.Shells {
		add(s)
	}
	for _, p := range m.Pairs {
		add(p.Contract)
		add(p.Target)
		for _, mem := range p.Members {
			for _, s := range mem.Sources {
				add(s)
			}
			if mem.Proxy != nil {
				add(mem.Proxy.Func)
			}
			for _, t := range mem.Real {
				add(t)
			}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (p Pair) name() string {
	if p.Target == "" {
		return p.Contract + " <- <factory>"
	}
	return p.Contract + " <- " + p.Target
}

func (p Pair) memberNames() []string {
	names := make([]string, 0, len(p.Members))
	for name := range p.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// packagesOf returns the packages ref and its type arguments refer to.
// Predeclared names have none.
func packagesOf(ref string) []string {
	for {
		switch {
		case strings.HasPrefix(ref, "*"):
			ref = ref[1:]
			continue
		case strings.HasPrefix(ref, "[]"):
			ref = ref[2:]
			continue
		}
		break
	}
	if ref == "" {
		return nil
	}

	var out []string
	base := ref
	if open := strings.IndexByte(ref, '['); open >= 0 && strings.HasSuffix(ref, "]") {
		base = ref[:open]
		depth, start := 0, open+1
		for i := start; i < len(ref)-1; i++ {
			switch ref[i] {
			case '[':
				depth++
			case ']':
				depth--
			case ',':
				if depth == 0 {
					out = append(out, packagesOf(strings.TrimSpace(ref[start:i]))...)
					start = i + 1
				}
			}
		}
		out = append(out, packagesOf(strings.TrimSpace(ref[start:len(ref)-1]))...)
	}
	slash := strings.LastIndexByte(base, '/')
	if dot := strings.LastIndexByte(base, '.'); dot > slash {
		out = append(out, base[:dot])
	}
	return out
}

var kinds = map[string]contract.Kind{
	"":            contract.Method,
	"method":      contract.Method,
	"property":    contract.Property,
	"indexer":     contract.Indexer,
	"event":       contract.Event,
	"constructor": contract.Constructor,
	"static":      contract.Static,
}

var modes = map[string]contract.Mode{
	"":         contract.Default,
	"default":  contract.Default,
	"override": contract.Override,
	"add":      contract.Add,
}

func invalid(pair, cause string) error {
	if pair == "" {
		return errorc.With(errors.ErrInvalidManifest, errorc.String(errors.ErrorFieldCause, cause))
	}
	return errorc.With(
		errors.ErrInvalidManifest,
		errorc.String(errors.ErrorFieldPair, pair),
		errorc.String(errors.ErrorFieldCause, cause),
	)
}
