package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ordenes-api/internal/application/auth"
	"github.com/jhoicas/ordenes-api/internal/application/dto"
	"github.com/jhoicas/ordenes-api/internal/domain"
	"github.com/jhoicas/ordenes-api/internal/domain/entity"
	"github.com/jhoicas/ordenes-api/pkg/jwt"
)

// memUserRepo usuarios en memoria indexados por email.
type memUserRepo struct {
	byEmail map[string]*entity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: make(map[string]*entity.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	if _, ok := r.byEmail[u.Email]; ok {
		return domain.ErrDuplicate
	}
	cp := *u
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func newTestUseCase() (*auth.AuthUseCase, *memUserRepo) {
	repo := newMemUserRepo()
	uc := auth.NewAuthUseCase(repo, auth.JWTConfig{
		Secret:     "secreto-de-test",
		ExpMinutes: 60,
		Issuer:     "ordenes-api-test",
	})
	return uc, repo
}

func TestRegisterUser_CreaUsuarioConPasswordHasheado(t *testing.T) {
	uc, repo := newTestUseCase()

	out, err := uc.RegisterUser(context.Background(), dto.RegisterRequest{
		Email:    "ana@example.com",
		Password: "superSecreta1",
		FullName: "Ana Gómez",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", out.Email)
	assert.True(t, out.IsActive)
	assert.False(t, out.IsAdmin)

	stored := repo.byEmail["ana@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "superSecreta1", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
}

func TestRegisterUser_EmailRepetidoFalla(t *testing.T) {
	uc, _ := newTestUseCase()

	_, err := uc.RegisterUser(context.Background(), dto.RegisterRequest{
		Email: "ana@example.com", Password: "superSecreta1",
	})
	require.NoError(t, err)

	_, err = uc.RegisterUser(context.Background(), dto.RegisterRequest{
		Email: "ana@example.com", Password: "otraClave123",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestLogin_CredencialesValidasEmitenJWTConRol(t *testing.T) {
	uc, repo := newTestUseCase()

	_, err := uc.RegisterUser(context.Background(), dto.RegisterRequest{
		Email: "ana@example.com", Password: "superSecreta1",
	})
	require.NoError(t, err)

	out, err := uc.Login(context.Background(), dto.LoginRequest{
		Email: "ana@example.com", Password: "superSecreta1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Token)

	userID, role, err := jwt.Parse("secreto-de-test", out.Token)
	require.NoError(t, err)
	assert.Equal(t, repo.byEmail["ana@example.com"].ID, userID)
	assert.Equal(t, entity.RoleCustomer, role)
}

func TestLogin_PasswordIncorrectoEsUnauthorized(t *testing.T) {
	uc, _ := newTestUseCase()

	_, err := uc.RegisterUser(context.Background(), dto.RegisterRequest{
		Email: "ana@example.com", Password: "superSecreta1",
	})
	require.NoError(t, err)

	_, err = uc.Login(context.Background(), dto.LoginRequest{
		Email: "ana@example.com", Password: "equivocada",
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLogin_EmailDesconocidoEsUserNotFound(t *testing.T) {
	uc, _ := newTestUseCase()

	_, err := uc.Login(context.Background(), dto.LoginRequest{
		Email: "nadie@example.com", Password: "superSecreta1",
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLogin_CuentaInactivaEsForbidden(t *testing.T) {
	uc, repo := newTestUseCase()

	_, err := uc.RegisterUser(context.Background(), dto.RegisterRequest{
		Email: "ana@example.com", Password: "superSecreta1",
	})
	require.NoError(t, err)
	repo.byEmail["ana@example.com"].IsActive = false

	_, err = uc.Login(context.Background(), dto.LoginRequest{
		Email: "ana@example.com", Password: "superSecreta1",
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLogin_AdminObtieneRolAdminEnElToken(t *testing.T) {
	uc, repo := newTestUseCase()

	_, err := uc.RegisterUser(context.Background(), dto.RegisterRequest{
		Email: "root@example.com", Password: "superSecreta1",
	})
	require.NoError(t, err)
	repo.byEmail["root@example.com"].IsAdmin = true

	out, err := uc.Login(context.Background(), dto.LoginRequest{
		Email: "root@example.com", Password: "superSecreta1",
	})
	require.NoError(t, err)

	_, role, err := jwt.Parse("secreto-de-test", out.Token)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, role)
}
