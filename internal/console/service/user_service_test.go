package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(users ...*domain.User) (*UserService, *MockUserRepo) {
	repo := NewMockUserRepo(users...)
	return NewUserService(repo, bcrypt.MinCost, true, zap.NewNop()), repo
}

func TestUserService_Create(t *testing.T) {
	svc, repo := newUserService()
	ctx := context.Background()

	u, err := svc.Create(ctx, domain.CreateUserRequest{Nome: "Ana", Email: "ana@example.com", Senha: "segredo1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Role != domain.RoleUser {
		t.Errorf("default role = %q", u.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(repo.Users[u.ID].Senha), []byte("segredo1")) != nil {
		t.Error("password must be stored as bcrypt hash")
	}

	_, err = svc.Create(ctx, domain.CreateUserRequest{Nome: "Ana 2", Email: "ana@example.com", Senha: "segredo1"})
	if !errors.Is(err, domain.ErrConflict) || err.Error() != msgUserExists {
		t.Errorf("duplicate: %v", err)
	}

	_, err = svc.Create(ctx, domain.CreateUserRequest{Nome: "B", Email: "not-an-email", Senha: "123"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Fields["email"] == "" || verr.Fields["senha"] == "" {
		t.Errorf("validation: %v", err)
	}
}

func TestUserService_CreatePrivilegedSignup(t *testing.T) {
	tests := []struct {
		name    string
		allow   bool
		role    domain.Role
		wantErr error
	}{
		{"open: superadmin", true, domain.RoleSuperAdmin, nil},
		{"closed: superadmin", false, domain.RoleSuperAdmin, domain.ErrForbidden},
		{"closed: admin", false, domain.RoleAdmin, domain.ErrForbidden},
		{"closed: user", false, domain.RoleUser, nil},
		{"closed: default role", false, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepo()
			svc := NewUserService(repo, bcrypt.MinCost, tt.allow, zap.NewNop())

			u, err := svc.Create(context.Background(), domain.CreateUserRequest{
				Nome: "Ana", Email: "ana@example.com", Senha: "segredo1", Role: tt.role,
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if len(repo.Users) != 0 {
					t.Error("rejected user must not be stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if tt.role != "" && u.Role != tt.role {
				t.Errorf("role = %q, want %q", u.Role, tt.role)
			}
		})
	}
}

func TestUserService_List(t *testing.T) {
	self := &domain.User{ID: uuid.NewString(), Nome: "Bia", Email: "bia@example.com", Role: domain.RoleUser}
	other := &domain.User{ID: uuid.NewString(), Nome: "Cris", Email: "cris@example.com", Role: domain.RoleUser}
	svc, _ := newUserService(self, other)
	ctx := context.Background()

	all, err := svc.List(ctx, &domain.Actor{ID: "x", Role: domain.RoleAdmin})
	if err != nil || len(all) != 2 {
		t.Fatalf("admin list: %v, %d", err, len(all))
	}

	mine, err := svc.List(ctx, &domain.Actor{ID: self.ID, Role: domain.RoleUser})
	if err != nil || len(mine) != 1 || mine[0].ID != self.ID {
		t.Fatalf("user list: %v, %+v", err, mine)
	}

	none, err := svc.List(ctx, &domain.Actor{ID: "garbage", Role: domain.RoleUser})
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("bad id list: %v, %+v", err, none)
	}

	if _, err := svc.List(ctx, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("nil caller: %v", err)
	}
}

func TestUserService_Get(t *testing.T) {
	self := &domain.User{ID: uuid.NewString(), Email: "bia@example.com", Role: domain.RoleUser}
	svc, _ := newUserService(self)
	ctx := context.Background()

	if _, err := svc.Get(ctx, &domain.Actor{ID: self.ID, Role: domain.RoleUser}, self.ID); err != nil {
		t.Errorf("self: %v", err)
	}
	if _, err := svc.Get(ctx, &domain.Actor{ID: "other", Role: domain.RoleUser}, self.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("other user: %v", err)
	}
	if _, err := svc.Get(ctx, &domain.Actor{Role: domain.RoleAdmin}, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
	if _, err := svc.Get(ctx, &domain.Actor{Role: domain.RoleAdmin}, "42"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("malformed id: %v", err)
	}
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	newUser := func() *domain.User {
		return &domain.User{ID: uuid.NewString(), Nome: "Bia", Email: "bia@example.com", Senha: "old-hash", Role: domain.RoleUser}
	}

	t.Run("self keeps name when blank", func(t *testing.T) {
		u := newUser()
		svc, repo := newUserService(u)
		got, err := svc.Update(ctx, &domain.Actor{ID: u.ID, Role: domain.RoleUser}, u.ID,
			domain.UpdateUserRequest{Email: "bia2@example.com", Role: domain.RoleUser})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Nome != "Bia" || got.Email != "bia2@example.com" {
			t.Errorf("got %+v", got)
		}
		if repo.Users[u.ID].Senha != "old-hash" {
			t.Error("password must stay when not sent")
		}
	})

	t.Run("self cannot escalate", func(t *testing.T) {
		u := newUser()
		svc, _ := newUserService(u)
		_, err := svc.Update(ctx, &domain.Actor{ID: u.ID, Role: domain.RoleUser}, u.ID,
			domain.UpdateUserRequest{Email: u.Email, Role: domain.RoleAdmin})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("escalation: %v", err)
		}
	})

	t.Run("admin changes role and password", func(t *testing.T) {
		u := newUser()
		svc, repo := newUserService(u)
		got, err := svc.Update(ctx, &domain.Actor{ID: "adm", Role: domain.RoleAdmin}, u.ID,
			domain.UpdateUserRequest{Nome: "Beatriz", Email: u.Email, Senha: "novasenha", Role: domain.RoleAdmin})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Role != domain.RoleAdmin || got.Nome != "Beatriz" {
			t.Errorf("got %+v", got)
		}
		if bcrypt.CompareHashAndPassword([]byte(repo.Users[u.ID].Senha), []byte("novasenha")) != nil {
			t.Error("password not re-hashed")
		}
	})

	t.Run("invalid payload", func(t *testing.T) {
		u := newUser()
		svc, _ := newUserService(u)
		_, err := svc.Update(ctx, &domain.Actor{ID: u.ID, Role: domain.RoleUser}, u.ID,
			domain.UpdateUserRequest{Email: "", Role: domain.RoleUser})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("got %v", err)
		}
	})
}

func TestUserService_Delete(t *testing.T) {
	u := &domain.User{ID: uuid.NewString(), Email: "bia@example.com", Role: domain.RoleUser}
	svc, repo := newUserService(u)
	ctx := context.Background()

	if err := svc.Delete(ctx, &domain.Actor{ID: u.ID, Role: domain.RoleUser}, u.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("self delete: %v", err)
	}
	if err := svc.Delete(ctx, &domain.Actor{ID: "adm", Role: domain.RoleAdmin}, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.Users[u.ID]; ok {
		t.Error("user still stored")
	}
	if err := svc.Delete(ctx, &domain.Actor{ID: "adm", Role: domain.RoleAdmin}, u.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
