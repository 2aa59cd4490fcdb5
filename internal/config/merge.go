package config

// MergeDefaults returns dst with every key missing from it filled in from
// defaults. Keys present in dst win, even when they hold zero values or nil.
// When both sides hold a map the two are merged recursively. Neither input
// is modified and default subtrees are copied, so the result can be edited
// freely.
func MergeDefaults(dst, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(defaults))
	for k, v := range dst {
		out[k] = clone(v)
	}

	for k, def := range defaults {
		cur, ok := out[k]
		if !ok {
			out[k] = clone(def)
			continue
		}
		curMap, curIsMap := cur.(map[string]any)
		defMap, defIsMap := def.(map[string]any)
		if curIsMap && defIsMap {
			out[k] = MergeDefaults(curMap, defMap)
		}
	}
	return out
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = clone(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = clone(e)
		}
		return s
	default:
		return v
	}
}
