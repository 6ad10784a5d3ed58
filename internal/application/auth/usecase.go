package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/wip-ledger/internal/application/dto"
	"github.com/jhoicas/wip-ledger/internal/domain"
	"github.com/jhoicas/wip-ledger/internal/domain/entity"
	"github.com/jhoicas/wip-ledger/internal/domain/repository"
	"github.com/jhoicas/wip-ledger/pkg/jwt"
)

var roles = []string{entity.RoleAdmin, entity.RoleOperator, entity.RoleQC}

// AuthUseCase alta de usuarios de planta y login con JWT.
type AuthUseCase struct {
	userRepo repository.UserRepository
	tokens   *jwt.Issuer
	cost     int
	now      func() time.Time
}

// NewAuthUseCase construye el caso de uso. tokens puede ser nil en herramientas que
// solo dan de alta usuarios (seed_admin); Login falla en ese caso.
func NewAuthUseCase(userRepo repository.UserRepository, tokens *jwt.Issuer) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithBcryptCost cambia el costo de bcrypt (tests usan bcrypt.MinCost).
func (uc *AuthUseCase) WithBcryptCost(cost int) *AuthUseCase {
	uc.cost = cost
	return uc
}

// normalizeUsername los usernames se comparan sin mayúsculas ni espacios.
func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RegisterUser crea un usuario activo. Rol vacío: operator.
// ErrUsernameTaken si el username ya existe.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	username := normalizeUsername(in.Username)
	if username == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	role := in.Role
	if role == "" {
		role = entity.RoleOperator
	}
	if !slices.Contains(roles, role) {
		return nil, domain.ErrInvalidInput
	}

	existing, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, &domain.StorageError{Op: "get user", Err: err}
	}
	if existing != nil {
		return nil, domain.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	user := &entity.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		Status:       entity.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.Name == "" {
		user.Name = username
	}
	// La unicidad la garantiza la DB; la consulta previa solo da un error temprano
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return nil, err
		}
		return nil, &domain.StorageError{Op: "create user", Err: err}
	}
	out := toUserResponse(user)
	return &out, nil
}

// Login verifica credenciales y emite el token.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	if uc.tokens == nil {
		return nil, errors.New("auth: emisor de tokens no configurado")
	}
	user, err := uc.userRepo.GetByUsername(ctx, normalizeUsername(in.Username))
	if err != nil {
		return nil, &domain.StorageError{Op: "get user", Err: err}
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	if user.Status != entity.UserStatusActive {
		return nil, domain.ErrForbidden
	}

	token, exp, err := uc.tokens.Sign(jwt.Subject{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, ExpiresAt: exp, User: toUserResponse(user)}, nil
}

func toUserResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
