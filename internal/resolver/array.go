package resolver

import (
	"reflect"

	"github.com/iudanet/gophsync/internal/models"
)

// asArray приводит значение к []any, если это массив.
// Типизированные срезы ([]int, []map[string]any) тоже считаются массивами;
// []byte остается скаляром, как в JSON (base64-строка).
func asArray(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	case nil, []byte:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asObject приводит значение к map[string]any, если это объект со строковыми ключами
func asObject(v any) (map[string]any, bool) {
	if obj, ok := v.(map[string]any); ok {
		return obj, true
	}
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// mergeArrays выполняет умное слияние массивов:
// (base ∪ addedLocal ∪ addedRemote) - removedLocal - removedRemote.
// Порядок: сохранившиеся элементы base, затем добавления local, затем remote.
// Дубликаты удаляются.
func mergeArrays(base, local, remote []any) []any {
	result := make([]any, 0, len(base)+len(local)+len(remote))

	add := func(v any) {
		if !containsValue(result, v) {
			result = append(result, models.CloneValue(v))
		}
	}

	for _, v := range base {
		// Элемент base, пропавший на любой из сторон, считается удаленным
		if containsValue(local, v) && containsValue(remote, v) {
			add(v)
		}
	}
	for _, v := range local {
		if !containsValue(base, v) {
			add(v)
		}
	}
	for _, v := range remote {
		if !containsValue(base, v) {
			add(v)
		}
	}

	return result
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if equalValues(item, v) {
			return true
		}
	}
	return false
}
