package resolver

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// exportAll разрешает cmp сравнивать неэкспортируемые поля непрозрачных структур
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

// field значение поля с признаком присутствия.
// Отсутствующее поле отличается от поля со значением JSON null.
type field struct {
	value   any
	present bool
}

func lookup(data map[string]any, key string) field {
	v, ok := data[key]
	return field{value: v, present: ok}
}

func (f field) equal(other field) bool {
	if f.present != other.present {
		return false
	}
	if !f.present {
		return true
	}
	return equalValues(f.value, other.value)
}

// equalValues сравнивает JSON-значения.
// Числа сравниваются по значению: float64 после json.Unmarshal равно int из Go-кода.
// Типизированные срезы и объекты сравниваются поэлементно, как []any и map[string]any.
func equalValues(a, b any) bool {
	return cmp.Equal(normalize(a), normalize(b), exportAll)
}

func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	}

	if arr, ok := asArray(v); ok {
		return normalize(arr)
	}
	if obj, ok := asObject(v); ok {
		return normalize(obj)
	}
	return v
}
