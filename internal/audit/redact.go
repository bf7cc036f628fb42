package audit

import "strings"

const FilteredMarker = "[FILTERED]"

// Redactor заменяет значения чувствительных полей маркером. Имена сравниваются без учета регистра.
type Redactor struct {
	fields map[string]struct{}
}

func NewRedactor(fields []string) *Redactor {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = struct{}{}
	}
	return &Redactor{fields: set}
}

// Redact возвращает копию документа; вложенные объекты и массивы обходятся рекурсивно.
func (r *Redactor) Redact(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if _, ok := r.fields[strings.ToLower(k)]; ok {
			out[k] = FilteredMarker
			continue
		}
		out[k] = r.redactValue(v)
	}
	return out
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return r.Redact(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = r.redactValue(item)
		}
		return items
	default:
		return v
	}
}
