package emit

import (
	"sort"
	"strconv"
	"strings"
)

// imports collects the packages generated code refers to and picks a
// distinct name for each.
type imports struct {
	self   string
	byPath map[string]string
	byName map[string]string
}

func newImports(self string) *imports {
	return &imports{
		self:   self,
		byPath: make(map[string]string),
		byName: make(map[string]string),
	}
}

// qualify is a typesys.Qualifier.
func (im *imports) qualify(path, name string) string {
	if path == "" || path == im.self {
		return ""
	}
	if n, ok := im.byPath[path]; ok {
		return n
	}
	n := name
	for i := 2; im.byName[n] != ""; i++ {
		n = name + strconv.Itoa(i)
	}
	im.byPath[path] = n
	im.byName[n] = path
	return n
}

func (im *imports) render(b *strings.Builder) {
	if len(im.byPath) == 0 {
		return
	}
	paths := make([]string, 0, len(im.byPath))
	for p := range im.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	b.WriteString("import (\n")
	for _, p := range paths {
		n := im.byPath[p]
		if n != p[strings.LastIndexByte(p, '/')+1:] {
			b.WriteString("\t" + n + " ")
		} else {
			b.WriteString("\t")
		}
		b.WriteString(strconv.Quote(p) + "\n")
	}
	b.WriteString(")\n\n")
}
