package domain

import "encoding/json"

// Details — полезная нагрузка события. Частые формы (описание, изменения, поиск,
// экспорт, ошибка, запрос/ответ) разобраны в типизированные поля,
// всё непредусмотренное сохраняется в Extra и возвращается как есть.
type Details struct {
	Description string         `json:"description,omitempty"`
	ItemID      string         `json:"itemId,omitempty"`
	ItemName    string         `json:"itemName,omitempty"`
	Changes     map[string]any `json:"changes,omitempty"`
	SearchTerm  string         `json:"searchTerm,omitempty"`
	ResultCount *int           `json:"resultCount,omitempty"`
	ExportType  string         `json:"exportType,omitempty"`
	Filters     map[string]any `json:"filters,omitempty"`
	Page        string         `json:"page,omitempty"`
	Error       *ErrorInfo     `json:"error,omitempty"`
	Request     *RequestInfo   `json:"request,omitempty"`
	Response    *ResponseInfo  `json:"response,omitempty"`
	Body        map[string]any `json:"body,omitempty"`
	TraceID     string         `json:"traceId,omitempty"`

	Extra map[string]any `json:"-"`
}

type ErrorInfo struct {
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

type RequestInfo struct {
	Method string            `json:"method"`
	URL    string            `json:"url"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query,omitempty"`
}

type ResponseInfo struct {
	StatusCode    int   `json:"statusCode"`
	ResponseTime  int64 `json:"responseTime"` // мс
	ContentLength int64 `json:"contentLength"`
}

var knownDetailKeys = []string{
	"description", "itemId", "itemName", "changes", "searchTerm", "resultCount",
	"exportType", "filters", "page", "error", "request", "response", "body", "traceId",
}

// plainDetails без методов, чтобы не уйти в рекурсию при (un)marshal.
type plainDetails Details

func (d Details) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(plainDetails(d))
	if err != nil || len(d.Extra) == 0 {
		return raw, err
	}

	merged := make(map[string]any, len(d.Extra)+len(knownDetailKeys))
	for k, v := range d.Extra {
		merged[k] = v
	}
	// Типизированные поля перекрывают одноименные ключи из Extra
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

func (d *Details) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	// details — открытая нагрузка: известный ключ другого типа
	// ({"error":"timeout"}, {"itemId":42}) уходит в Extra как есть.
	var p plainDetails
	for _, k := range knownDetailKeys {
		v, ok := all[k]
		if !ok {
			continue
		}
		single, err := json.Marshal(map[string]json.RawMessage{k: v})
		if err != nil {
			return err
		}
		// Пробный разбор в пустую структуру: ошибка типа не должна оставить полузаполненное поле
		var trial plainDetails
		if err := json.Unmarshal(single, &trial); err != nil {
			continue
		}
		if err := json.Unmarshal(single, &p); err != nil {
			return err
		}
		delete(all, k)
	}

	if len(all) > 0 {
		p.Extra = make(map[string]any, len(all))
		for k, v := range all {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			p.Extra[k] = val
		}
	}

	*d = Details(p)
	return nil
}
