package models

// CloneData создает глубокую копию JSON-объекта ресурса.
// nil остается nil.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	clone := make(map[string]any, len(data))
	for k, v := range data {
		clone[k] = CloneValue(v)
	}
	return clone
}

// CloneValue глубоко копирует вложенные объекты и массивы
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneData(val)
	case []any:
		clone := make([]any, len(val))
		for i, item := range val {
			clone[i] = CloneValue(item)
		}
		return clone
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

// Overwrite возвращает копию current, поверх которой записаны поля patch
func Overwrite(current, patch map[string]any) map[string]any {
	result := CloneData(current)
	if result == nil {
		result = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		result[k] = CloneValue(v)
	}
	return result
}
