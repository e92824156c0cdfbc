package featurize

import (
	"strconv"

	"github.com/pulsarml/pulsar/pkg/dataview"
)

// reserveColumnName produces a column name guaranteed absent from both
// the schema as it stands at the moment of the call and the taken set of
// names already reserved in the same assembly run. The bare base is used
// when free; otherwise a numeric suffix is appended, counting up from 1.
// Deterministic for identical call sequences.
func reserveColumnName(schema *dataview.Schema, base string, taken map[string]struct{}) string {
	free := func(name string) bool {
		if schema.Has(name) {
			return false
		}
		_, used := taken[name]
		return !used
	}
	if free(base) {
		return base
	}
	for i := 1; ; i++ {
		name := base + "_" + strconv.Itoa(i)
		if free(name) {
			return name
		}
	}
}

// tempRegistry tracks the temp columns created during one assembly run,
// in creation order. It is owned by exactly one run and must not be
// shared across concurrent assemblies.
type tempRegistry struct {
	taken map[string]struct{}
	order []string
}

func newTempRegistry() *tempRegistry {
	return &tempRegistry{taken: make(map[string]struct{})}
}

// reserve names a temp column derived from source and the stage tag,
// checked against the current schema, and registers it for the final
// cleanup drop.
func (r *tempRegistry) reserve(schema *dataview.Schema, source, tag string) string {
	name := reserveColumnName(schema, source+"_"+tag, r.taken)
	r.taken[name] = struct{}{}
	r.order = append(r.order, name)
	return name
}

// names returns the registered temp columns in creation order.
func (r *tempRegistry) names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
