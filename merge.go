package etc

import "dario.cat/mergo"

// Merge deep-merges docs from left to right into a new Doc. Nested mappings are
// merged recursively; scalars and arrays from later documents replace earlier ones,
// zero values included. The inputs are not modified. Nil documents are skipped.
func Merge(docs ...Doc) Doc {
	out := Doc{}
	for _, d := range docs {
		if d == nil {
			continue
		}
		src := clone(d).(Doc)
		if err := mergo.Merge(&out, src, mergo.WithOverride); err != nil {
			// mergo only rejects mismatched types; later values still win.
			for k, v := range src {
				out[k] = v
			}
		}
	}
	return out
}

// clone copies the maps and arrays of v so merged results never share them
// with their inputs.
func clone(v any) any {
	switch n := v.(type) {
	case map[string]any:
		m := make(Doc, len(n))
		for k, e := range n {
			m[k] = clone(e)
		}
		return m
	case []any:
		s := make([]any, len(n))
		for i, e := range n {
			s[i] = clone(e)
		}
		return s
	}
	return v
}
