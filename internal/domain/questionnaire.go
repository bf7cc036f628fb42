package domain

import (
	"encoding/json"
	"time"
)

type QuestionnaireKind string

const (
	KindVictim    QuestionnaireKind = "victim"
	KindAuthor    QuestionnaireKind = "author"
	KindPromulher QuestionnaireKind = "promulher"
	KindProtege   QuestionnaireKind = "protege"
)

// requiredFields — минимальный набор полей, без которых анкета не принимается.
var requiredFields = map[QuestionnaireKind][]string{
	KindVictim:    {"victimName", "birthDate", "visitDate", "visitTime", "municipality", "authorName"},
	KindAuthor:    {"authorName", "victimName", "authorBirthDate", "authorMunicipality", "visitDate", "visitTime"},
	KindPromulher: nil,
	KindProtege:   nil,
}

// RequiredFields возвращает обязательные поля анкеты данного типа.
func (k QuestionnaireKind) RequiredFields() []string {
	return requiredFields[k]
}

func (k QuestionnaireKind) Valid() bool {
	_, ok := requiredFields[k]
	return ok
}

// Questionnaire хранится как документ: произвольные поля формы лежат в Data.
type Questionnaire struct {
	ID        string
	Kind      QuestionnaireKind
	Data      map[string]any
	CreatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarshalJSON отдает анкету плоским документом, служебные поля поверх данных формы.
func (q Questionnaire) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(q.Data)+4)
	for k, v := range q.Data {
		doc[k] = v
	}
	doc["id"] = q.ID
	doc["created_at"] = q.CreatedAt
	doc["updated_at"] = q.UpdatedAt
	if q.CreatedBy != nil {
		doc["created_by"] = *q.CreatedBy
	}
	return json.Marshal(doc)
}

// Служебные ключи, которые клиент не может переписать через тело запроса.
var reservedKeys = []string{"id", "_id", "created_at", "updated_at", "created_by", "createdAt", "updatedAt"}

// StripReserved удаляет служебные ключи из присланного документа.
func StripReserved(data map[string]any) map[string]any {
	for _, k := range reservedKeys {
		delete(data, k)
	}
	return data
}
