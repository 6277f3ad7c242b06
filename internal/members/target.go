package members

import (
	"strings"

	"github.com/ygrebnov/shim/internal/typesys"
)

// TargetKind is the kind of a target member.
type TargetKind uint8

const (
	TargetMethod TargetKind = iota
	TargetField
	// TargetSelf is the target value itself, for indexers over maps and slices.
	TargetSelf
	// TargetFunc is a package-level function: a constructor or static source.
	TargetFunc
)

func (k TargetKind) String() string {
	switch k {
	case TargetMethod:
		return "method"
	case TargetField:
		return "field"
	case TargetSelf:
		return "self"
	case TargetFunc:
		return "func"
	default:
		return "unknown"
	}
}

// TargetMember is one member of a target type.
type TargetMember struct {
	Kind TargetKind
	Name string
	// Qualified is the embedding path, e.g. "Left.Leaf.V", for fields kept
	// because of a same-depth collision, otherwise Name.
	Qualified string
	Sig       typesys.Signature
	// Type is the field or self type.
	Type      typesys.Type
	Declaring typesys.Type
	// Path is the embedding chain of a field, ending with the field itself.
	Path []typesys.Field
	// Settable reports whether the field can be assigned through the target.
	Settable bool
	Func     *typesys.Func
	Depth    int
	Order    int
	Key      string
}

// Selector renders the field path as a Go selector suffix, e.g. ".Inner.Value".
func (t TargetMember) Selector() string {
	var b strings.Builder
	for _, f := range t.Path {
		b.WriteString(".")
		b.WriteString(f.Name)
	}
	return b.String()
}

// Descriptor is the flattened, de-duplicated member set of a target type.
type Descriptor struct {
	Type    typesys.Type
	Members []TargetMember
}

// Named returns the members of kind k reachable as name, in hierarchy order.
func (d *Descriptor) Named(k TargetKind, name string) []TargetMember {
	var out []TargetMember
	for _, m := range d.Members {
		if m.Kind == k && (m.Name == name || m.Qualified == name) {
			out = append(out, m)
		}
	}
	return out
}

// Self returns the indexable target itself, if any.
func (d *Descriptor) Self() (TargetMember, bool) {
	for _, m := range d.Members {
		if m.Kind == TargetSelf {
			return m, true
		}
	}
	return TargetMember{}, false
}

// Describe builds the descriptor of target type t. Methods come from the
// method set, where Go already applied promotion and shadowing. Fields are
// walked breadth-first through embedded structs: a shallower field hides a
// deeper one with the same key, and same-depth duplicates are both kept,
// qualified by their embedding path, e.g. "Left.Leaf.V".
func Describe(t typesys.Type) *Descriptor {
	d := &Descriptor{Type: t}
	order := 0
	for _, m := range t.Methods() {
		if !m.Exported {
			continue
		}
		decl := m.Declaring
		if decl == nil {
			decl = typesys.Deref(t)
		}
		d.Members = append(d.Members, TargetMember{
			Kind:      TargetMethod,
			Name:      m.Name,
			Qualified: m.Name,
			Sig:       m.Sig,
			Declaring: decl,
			Order:     order,
			Key:       dedupKey(TargetMethod, m.Name, m.Sig.Params),
		})
		order++
	}

	switch t.Kind() {
	case typesys.Map, typesys.Slice:
		d.Members = append(d.Members, TargetMember{
			Kind:      TargetSelf,
			Type:      t,
			Declaring: t,
			Depth:     -1,
			Order:     order,
			Settable:  true,
			Key:       dedupKey(TargetSelf, "", nil),
		})
		order++
	}

	for _, f := range walkFields(t) {
		f.Order = order
		order++
		d.Members = append(d.Members, f)
	}
	return d
}

type walkItem struct {
	typ      typesys.Type
	path     []typesys.Field
	settable bool
	// onPath holds the struct types embedded along path, root included.
	onPath map[any]bool
}

func (it walkItem) embed(typ typesys.Type, path []typesys.Field, settable bool) walkItem {
	onPath := make(map[any]bool, len(it.onPath)+1)
	for k := range it.onPath {
		onPath[k] = true
	}
	onPath[typ.Key()] = true
	return walkItem{typ: typ, path: path, settable: settable, onPath: onPath}
}

func walkFields(t typesys.Type) []TargetMember {
	root := typesys.Deref(t)
	if root.Kind() != typesys.Struct {
		return nil
	}
	var (
		out    []TargetMember
		hidden = make(map[string]int) // dedup key -> depth it was first seen at
		level  = []walkItem{{
			typ:      root,
			settable: t.Kind() == typesys.Pointer,
			onPath:   map[any]bool{root.Key(): true},
		}}
	)
	for depth := 0; len(level) > 0; depth++ {
		var (
			next    []walkItem
			atDepth = make(map[string][]int) // dedup key -> indexes into out
		)
		for _, it := range level {
			for _, f := range it.typ.Fields() {
				path := append(append([]typesys.Field(nil), it.path...), f)
				if f.Embedded {
					et := f.Type
					settable := it.settable
					if et.Kind() == typesys.Pointer {
						et = et.Elem()
						settable = true
					}
					// A struct embedded again within itself is a cycle. The same
					// struct reached through two sibling paths is walked twice.
					if et.Kind() == typesys.Struct && !it.onPath[et.Key()] {
						next = append(next, it.embed(et, path, settable))
					}
				}
				if !f.Exported {
					continue
				}
				key := dedupKey(TargetField, f.Name, nil)
				if d, ok := hidden[key]; ok && d < depth {
					continue
				}
				out = append(out, TargetMember{
					Kind:      TargetField,
					Name:      f.Name,
					Qualified: f.Name,
					Type:      f.Type,
					Declaring: it.typ,
					Path:      path,
					Settable:  it.settable,
					Depth:     depth,
					Key:       key,
				})
				atDepth[key] = append(atDepth[key], len(out)-1)
			}
		}
		for key, idx := range atDepth {
			hidden[key] = depth
			if len(idx) < 2 {
				continue
			}
			for _, i := range idx {
				m := &out[i]
				m.Qualified = strings.TrimPrefix(m.Selector(), ".")
				m.Key = key + "@" + m.Qualified
			}
		}
		level = next
	}
	return out
}

func dedupKey(k TargetKind, name string, params []typesys.Type) string {
	var b strings.Builder
	b.WriteString(k.String())
	b.WriteString(":")
	b.WriteString(name)
	b.WriteString("(")
	for i, p := range params {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(p.String())
	}
	b.WriteString(")")
	return b.String()
}
