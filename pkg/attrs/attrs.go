// Package attrs inspects the variadic key-value pairs used by slog calls.
package attrs

// ExtractString returns the string value following key in a flat
// [key1, value1, key2, value2, ...] slice. Missing keys, odd tails and
// non-string values all yield "".
func ExtractString(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); !ok || k != key {
			continue
		}
		if v, ok := kv[i+1].(string); ok {
			return v
		}
	}
	return ""
}
