package statemachine

// Context accessor helpers. Event context arrives as map[string]any,
// typically populated either directly by in-process callers or via
// encoding/json.Unmarshal (which decodes numbers as float64 and arrays as
// []any) — these helpers tolerate both.

func ctxString(ctx map[string]any, key, def string) string {
	v, ok := ctx[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func ctxBool(ctx map[string]any, key string, def bool) bool {
	v, ok := ctx[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func ctxInt(ctx map[string]any, key string, def int) int {
	v, ok := ctx[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func ctxInt64(ctx map[string]any, key string, def int64) int64 {
	v, ok := ctx[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return def
	}
}

func ctxStringSlice(ctx map[string]any, key string) []string {
	v, ok := ctx[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
