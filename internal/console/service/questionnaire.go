package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

type QuestionnaireRepository interface {
	Create(ctx context.Context, q *domain.Questionnaire) error
	List(ctx context.Context, kind domain.QuestionnaireKind, match map[string]string) ([]*domain.Questionnaire, error)
	Get(ctx context.Context, kind domain.QuestionnaireKind, id string) (*domain.Questionnaire, error)
	Update(ctx context.Context, kind domain.QuestionnaireKind, id string, patch map[string]any) (*domain.Questionnaire, error)
	Delete(ctx context.Context, kind domain.QuestionnaireKind, id string) (bool, error)
}

// QuestionnaireService обслуживает все четыре типа анкет одинаково, различаются только обязательные поля.
type QuestionnaireService struct {
	repo   QuestionnaireRepository
	logger *zap.Logger
}

func NewQuestionnaireService(repo QuestionnaireRepository, logger *zap.Logger) *QuestionnaireService {
	return &QuestionnaireService{
		repo:   repo,
		logger: logger.With(zap.String("mod", "questionnaire-service")),
	}
}

func notFoundMessage(kind domain.QuestionnaireKind) string {
	switch kind {
	case domain.KindVictim:
		return "Questionário de vítima não encontrado"
	case domain.KindAuthor:
		return "Questionário de autor não encontrado"
	}
	return "Registro não encontrado"
}

func (s *QuestionnaireService) List(ctx context.Context, kind domain.QuestionnaireKind) ([]*domain.Questionnaire, error) {
	items, err := s.repo.List(ctx, kind, nil)
	if err != nil {
		return nil, fmt.Errorf("questionnaire_service: failed to list %s: %w: %w", kind, domain.ErrPersistence, err)
	}
	return items, nil
}

// LookupVictim ищет анкету жертвы по CPF, а если он не задан — по RG.
func (s *QuestionnaireService) LookupVictim(ctx context.Context, cpf, rg string) (*domain.Questionnaire, error) {
	match := map[string]string{}
	switch {
	case cpf != "":
		match["cpf"] = cpf
	case rg != "":
		match["rg"] = rg
	default:
		return nil, domain.NewValidationError("Informe o CPF ou RG para realizar a busca", nil)
	}

	items, err := s.repo.List(ctx, domain.KindVictim, match)
	if err != nil {
		return nil, fmt.Errorf("questionnaire_service: failed to lookup victim: %w: %w", domain.ErrPersistence, err)
	}
	if len(items) == 0 {
		return nil, domain.NewNotFound("Questionário não encontrado")
	}
	return items[0], nil
}

func (s *QuestionnaireService) Get(ctx context.Context, kind domain.QuestionnaireKind, id string) (*domain.Questionnaire, error) {
	if !validID(id) {
		return nil, domain.NewNotFound(notFoundMessage(kind))
	}
	q, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("questionnaire_service: failed to get %s: %w: %w", kind, domain.ErrPersistence, err)
	}
	if q == nil {
		return nil, domain.NewNotFound(notFoundMessage(kind))
	}
	return q, nil
}

func (s *QuestionnaireService) Create(ctx context.Context, caller *domain.Actor, kind domain.QuestionnaireKind, data map[string]any) (*domain.Questionnaire, error) {
	data = domain.StripReserved(data)
	if err := validateRequired(kind, data); err != nil {
		return nil, err
	}

	now := time.Now()
	q := &domain.Questionnaire{
		ID:        uuid.NewString(),
		Kind:      kind,
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if caller != nil && caller.ID != "" {
		id := caller.ID
		q.CreatedBy = &id
	}

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("questionnaire_service: failed to create %s: %w: %w", kind, domain.ErrPersistence, err)
	}
	return q, nil
}

// Update сливает присланные поля с сохраненным документом.
func (s *QuestionnaireService) Update(ctx context.Context, kind domain.QuestionnaireKind, id string, patch map[string]any) (*domain.Questionnaire, error) {
	if !validID(id) {
		return nil, domain.NewNotFound(notFoundMessage(kind))
	}
	patch = domain.StripReserved(patch)

	// Обязательное поле нельзя обнулить через обновление
	var cleared []string
	for _, f := range kind.RequiredFields() {
		if v, ok := patch[f]; ok && isBlank(v) {
			cleared = append(cleared, f)
		}
	}
	if len(cleared) > 0 {
		return nil, missingFieldsError(cleared)
	}

	q, err := s.repo.Update(ctx, kind, id, patch)
	if err != nil {
		return nil, fmt.Errorf("questionnaire_service: failed to update %s: %w: %w", kind, domain.ErrPersistence, err)
	}
	if q == nil {
		return nil, domain.NewNotFound(notFoundMessage(kind))
	}
	return q, nil
}

func (s *QuestionnaireService) Delete(ctx context.Context, kind domain.QuestionnaireKind, id string) error {
	if !validID(id) {
		return domain.NewNotFound(notFoundMessage(kind))
	}
	ok, err := s.repo.Delete(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("questionnaire_service: failed to delete %s: %w: %w", kind, domain.ErrPersistence, err)
	}
	if !ok {
		return domain.NewNotFound(notFoundMessage(kind))
	}
	return nil
}

func validateRequired(kind domain.QuestionnaireKind, data map[string]any) error {
	var missing []string
	for _, f := range kind.RequiredFields() {
		if isBlank(data[f]) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return missingFieldsError(missing)
	}
	return nil
}

func missingFieldsError(fields []string) error {
	errs := make(map[string]string, len(fields))
	for _, f := range fields {
		errs[f] = "obrigatório"
	}
	return domain.NewValidationError("Campos obrigatórios ausentes: "+strings.Join(fields, ", "), errs)
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
