package gen

import (
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/header"
)

// index resolves the unqualified names the header parser leaves in type
// references. The first definition of a name wins.
type index struct {
	records  map[string]*header.Record
	typedefs map[string]header.Type
	paths    map[*header.Record][]string
	order    []*header.Record
	aliases  []header.Typedef
	enums    []header.Enum
}

func newIndex(ns *header.Namespace) *index {
	idx := &index{
		records:  make(map[string]*header.Record),
		typedefs: make(map[string]header.Type),
		paths:    make(map[*header.Record][]string),
	}
	ns.Walk(func(path []string, ns *header.Namespace) {
		for _, r := range ns.Records {
			if prev, ok := idx.records[r.Name]; ok {
				Logger().Warn("record defined twice, keeping the first",
					zap.String("record", r.Name),
					zap.String("first", idx.qualified(prev)),
					zap.Strings("second", append(append([]string(nil), path...), r.Name)))
				continue
			}
			idx.records[r.Name] = r
			idx.paths[r] = path
			idx.order = append(idx.order, r)
		}
		for _, td := range ns.Typedefs {
			if _, ok := idx.typedefs[td.Name]; ok {
				continue
			}
			idx.typedefs[td.Name] = td.Type
			idx.aliases = append(idx.aliases, td)
		}
		idx.enums = append(idx.enums, ns.Enums...)
	})
	return idx
}

// resolve follows typedef chains to the first non-typedef type. Target
// dependent builtins such as size_t are returned unresolved.
func (idx *index) resolve(t header.Type) header.Type {
	for seen := 0; t.Kind == header.KindTypedef && seen < 64; seen++ {
		next, ok := idx.typedefs[t.Name]
		if !ok {
			return t
		}
		t = next
	}
	return t
}

func (idx *index) qualified(r *header.Record) string {
	return strings.Join(append(append([]string(nil), idx.paths[r]...), r.Name), "::")
}
