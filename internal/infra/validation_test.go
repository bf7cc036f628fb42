package infra

import (
	"errors"
	"testing"

	"github.com/xela07ax/promulher-api/internal/domain"
)

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		wantMsg   string
		wantField string
	}{
		{
			name:      "missing email",
			in:        domain.LoginRequest{Senha: "x"},
			wantMsg:   "Campos obrigatórios ausentes: email",
			wantField: "email",
		},
		{
			name:      "bad email",
			in:        domain.LoginRequest{Email: "ana", Senha: "x"},
			wantMsg:   "Dados inválidos",
			wantField: "email",
		},
		{
			name:      "short password",
			in:        domain.CreateUserRequest{Nome: "Ana", Email: "ana@example.com", Senha: "123"},
			wantMsg:   "Dados inválidos",
			wantField: "senha",
		},
		{
			name:      "unknown role",
			in:        domain.CreateUserRequest{Nome: "Ana", Email: "ana@example.com", Senha: "123456", Role: "root"},
			wantMsg:   "Dados inválidos",
			wantField: "role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", verr.Message, tt.wantMsg)
			}
			if verr.Fields[tt.wantField] == "" {
				t.Errorf("field %q missing in %v", tt.wantField, verr.Fields)
			}
		})
	}

	if err := ValidateStruct(domain.LoginRequest{Email: "ana@example.com", Senha: "x"}); err != nil {
		t.Errorf("valid request: %v", err)
	}
}
