package audit

import (
	"fmt"
	"reflect"
)

// Mask reemplaza recursivamente los campos sensibles por "<REDACTED:campo>".
func Mask(data map[string]any, pii map[string]struct{}) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if _, sensitive := pii[k]; sensitive {
			out[k] = fmt.Sprintf("<REDACTED:%s>", k)
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			out[k] = Mask(val, pii)
		case []any:
			items := make([]any, len(val))
			for i, item := range val {
				if m, ok := item.(map[string]any); ok {
					items[i] = Mask(m, pii)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}

// Diff devuelve {campo: {before, after}} para cada clave cuyo valor cambió.
func Diff(before, after map[string]any) map[string]any {
	changes := map[string]any{}
	for k, b := range before {
		if a, ok := after[k]; !ok || !reflect.DeepEqual(a, b) {
			changes[k] = map[string]any{"before": b, "after": after[k]}
		}
	}
	for k, a := range after {
		if _, ok := before[k]; !ok {
			changes[k] = map[string]any{"before": nil, "after": a}
		}
	}
	return changes
}
