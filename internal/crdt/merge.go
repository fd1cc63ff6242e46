package crdt

import "github.com/iudanet/fieldsync/internal/models"

// MergeValue объединяет входящее значение с существующим по правилам варианта:
//   - list + list: объединение без повторов, порядок existing сохраняется, новые элементы дописываются в конец;
//   - list + скаляр или map: значение дописывается в список как элемент;
//   - list + null: список очищается;
//   - map + map: рекурсивное слияние по ключам;
//   - иначе входящее значение перезаписывает существующее.
func MergeValue(existing, incoming models.Value) models.Value {
	switch {
	case existing.Kind() == models.KindList && incoming.Kind() != models.KindNull:
		return models.List(UnionList(existing.Items(), Items(incoming))...)
	case existing.Kind() == models.KindMap && incoming.Kind() == models.KindMap:
		return models.Map(MergeFields(existing.Entries(), incoming.Entries()))
	default:
		return incoming.Clone()
	}
}

// MergeFields применяет MergeValue к каждому полю incoming. Поля, отсутствующие в incoming,
// остаются без изменений. Аргументы не модифицируются.
func MergeFields(existing, incoming models.Fields) models.Fields {
	out := existing.Clone()
	if out == nil {
		out = make(models.Fields, len(incoming))
	}
	for name, v := range incoming {
		if cur, ok := out[name]; ok {
			out[name] = MergeValue(cur, v)
			continue
		}
		out[name] = v.Clone()
	}
	return out
}

// Items возвращает элементы списка, а для любого другого значения список из него одного.
func Items(v models.Value) []models.Value {
	if v.Kind() == models.KindList {
		return v.Items()
	}
	return []models.Value{v}
}

// UnionList возвращает элементы a, за которыми следуют элементы b, отсутствующие в a.
// Ни один элемент ни из одной последовательности не теряется.
func UnionList(a, b []models.Value) []models.Value {
	out := make([]models.Value, 0, len(a)+len(b))
	for _, v := range a {
		out = append(out, v.Clone())
	}
	for _, v := range b {
		if !containsValue(out, v) {
			out = append(out, v.Clone())
		}
	}
	return out
}

func containsValue(list []models.Value, v models.Value) bool {
	for _, item := range list {
		if item.Equal(v) {
			return true
		}
	}
	return false
}
