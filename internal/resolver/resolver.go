// Package resolver реализует детерминированное трехстороннее слияние ресурсов.
// Все функции чистые и безопасны для конкурентного вызова.
package resolver

import (
	"sort"

	"github.com/iudanet/gophsync/internal/models"
)

// Resolver stateless обертка над функциями пакета.
// Удобна для внедрения в потребителей через интерфейс.
type Resolver struct{}

// New создает Resolver
func New() *Resolver {
	return &Resolver{}
}

// DetectConflict см. пакетную функцию DetectConflict
func (r *Resolver) DetectConflict(base, local, remote map[string]any) bool {
	return DetectConflict(base, local, remote)
}

// Merge см. пакетную функцию Merge
func (r *Resolver) Merge(ctx models.ConflictContext) models.MergeResult {
	return Merge(ctx)
}

// DetectConflict возвращает true, если есть хотя бы одно поле, которое
// изменено и локально, и удаленно, причем в разные значения.
func DetectConflict(base, local, remote map[string]any) bool {
	for _, key := range unionKeys(base, local, remote) {
		b, l, r := lookup(base, key), lookup(local, key), lookup(remote, key)
		if !l.equal(b) && !r.equal(b) && !l.equal(r) {
			return true
		}
	}
	return false
}

// Merge сливает три версии ресурса согласно стратегии.
// local и remote возвращают соответствующую сторону без конфликтов,
// merge (и любая неизвестная стратегия) выполняет слияние по полям.
// Merge никогда не завершается ошибкой.
func Merge(ctx models.ConflictContext) models.MergeResult {
	switch models.ParseStrategy(string(ctx.Strategy)) {
	case models.StrategyLocal:
		return models.MergeResult{Merged: cloneOrEmpty(ctx.Local), Conflicts: []models.FieldConflict{}}
	case models.StrategyRemote:
		return models.MergeResult{Merged: cloneOrEmpty(ctx.Remote), Conflicts: []models.FieldConflict{}}
	}

	merged, conflicts := mergeObjects(ctx.Base, ctx.Local, ctx.Remote, "")
	return models.MergeResult{Merged: merged, Conflicts: conflicts}
}

// mergeObjects применяет трехстороннее слияние к полям объекта.
// prefix добавляется к именам полей вложенных конфликтов (meta.title).
func mergeObjects(base, local, remote map[string]any, prefix string) (map[string]any, []models.FieldConflict) {
	merged := make(map[string]any)
	conflicts := make([]models.FieldConflict, 0)

	set := func(key string, f field) {
		if f.present {
			merged[key] = models.CloneValue(f.value)
		}
	}

	for _, key := range unionKeys(base, local, remote) {
		b, l, r := lookup(base, key), lookup(local, key), lookup(remote, key)

		switch {
		case l.equal(r):
			// Стороны сошлись (или поле не менялось)
			set(key, l)
		case l.equal(b):
			// Изменила только удаленная сторона
			set(key, r)
		case r.equal(b):
			set(key, l)
		default:
			value, fieldConflicts, ok := mergeStructured(b, l, r, prefix+key+".")
			if ok {
				merged[key] = value
				conflicts = append(conflicts, fieldConflicts...)
				continue
			}

			conflicts = append(conflicts, models.FieldConflict{
				Field:       prefix + key,
				BaseValue:   models.CloneValue(b.value),
				LocalValue:  models.CloneValue(l.value),
				RemoteValue: models.CloneValue(r.value),
			})
			// По умолчанию побеждает локальное значение
			set(key, l)
		}
	}

	return merged, conflicts
}

// mergeStructured сливает поле, измененное обеими сторонами, если оно
// массив или вложенный объект на обеих сторонах. ok=false для скаляров.
func mergeStructured(b, l, r field, prefix string) (any, []models.FieldConflict, bool) {
	if !l.present || !r.present {
		return nil, nil, false
	}

	if localArr, ok := asArray(l.value); ok {
		remoteArr, ok := asArray(r.value)
		if !ok {
			return nil, nil, false
		}
		baseArr, _ := asArray(b.value)
		return mergeArrays(baseArr, localArr, remoteArr), nil, true
	}

	if localObj, ok := asObject(l.value); ok {
		remoteObj, ok := asObject(r.value)
		if !ok {
			return nil, nil, false
		}
		baseObj, _ := asObject(b.value)
		merged, conflicts := mergeObjects(baseObj, localObj, remoteObj, prefix)
		return merged, conflicts, true
	}

	return nil, nil, false
}

// unionKeys возвращает отсортированное объединение ключей
func unionKeys(maps ...map[string]any) []string {
	seen := make(map[string]struct{})
	for _, m := range maps {
		for k := range m {
			seen[k] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneOrEmpty(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return models.CloneData(data)
}
