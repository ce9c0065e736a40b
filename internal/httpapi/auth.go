package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
	"grocermate/backend/internal/xid"
)

const tokenIssuer = "grocermate"

var knownRoles = []string{domain.RoleManager, domain.RoleEmployee}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserStore
	now      func() time.Time
}

// UserStore is the part of the repository that holds accounts.
type UserStore interface {
	CountUsers(ctx context.Context) (int, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type grocerClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
		now:      time.Now,
	}
}

// BootstrapManager creates the first Manager account when no user exists yet.
// It is a no-op once any account is present or when password is empty.
func (a *AuthManager) BootstrapManager(ctx context.Context, username string, password string) error {
	count, err := a.users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 || password == "" {
		return nil
	}
	_, err = a.CreateUser(ctx, domain.UserCreateRequest{
		Username: username,
		FullName: "Store Manager",
		Password: password,
		Role:     domain.RoleManager,
	})
	if err != nil {
		return fmt.Errorf("bootstrap manager: %w", err)
	}
	log.Printf("[auth] bootstrapped manager account %q", normalizeUsername(username))
	return nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := normalizeUsername(req.Username)
	if username == "" || req.Password == "" {
		return domain.LoginResponse{}, &store.AuthenticationError{Reason: "invalid credentials"}
	}

	user, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, &store.AuthenticationError{Reason: "invalid credentials"}
		}
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(user.PasswordHash, req.Password) {
		return domain.LoginResponse{}, &store.AuthenticationError{Reason: "invalid credentials"}
	}
	if !user.Active {
		return domain.LoginResponse{}, &store.AuthenticationError{Reason: "account is inactive"}
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &grocerClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, &store.AuthenticationError{Reason: "invalid or expired token"}
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return domain.Actor{}, &store.AuthenticationError{Reason: "invalid token subject"}
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return domain.Actor{}, &store.AuthenticationError{Reason: "invalid token subject"}
	}
	return domain.Actor{UserID: userID, Username: claims.Username, Role: claims.Role}, nil
}

func (a *AuthManager) sign(user domain.User, expiresAt time.Time) (string, error) {
	claims := grocerClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        xid.New("tok"),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Username: user.Username,
		Role:     user.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) Roles() []string {
	return append([]string(nil), knownRoles...)
}

func (a *AuthManager) ListUsers(ctx context.Context) ([]domain.User, error) {
	return a.users.ListUsers(ctx)
}

func (a *AuthManager) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return a.users.GetUser(ctx, id)
}

func (a *AuthManager) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	username := normalizeUsername(req.Username)
	if len(username) < 3 {
		return domain.User{}, store.Invalid("username", "must be at least 3 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return domain.User{}, store.Invalid("username", "must not contain spaces")
	}
	if err := validatePassword(req.Password); err != nil {
		return domain.User{}, err
	}
	role, err := normalizeRole(req.Role)
	if err != nil {
		return domain.User{}, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := a.users.CreateUser(ctx, domain.User{
		Username:     username,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	if errors.Is(err, store.ErrConflict) {
		return domain.User{}, store.Invalid("username", "already exists")
	}
	return user, err
}

func (a *AuthManager) UpdateUser(ctx context.Context, id int64, req domain.UserUpdateRequest) (domain.User, error) {
	user, err := a.users.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Role != nil {
		role, err := normalizeRole(*req.Role)
		if err != nil {
			return domain.User{}, err
		}
		user.Role = role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return domain.User{}, err
		}
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return domain.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	return a.users.UpdateUser(ctx, user)
}

// DeleteUser removes an account. Managers cannot delete themselves.
func (a *AuthManager) DeleteUser(ctx context.Context, actor domain.Actor, id int64) error {
	if actor.UserID == id {
		return store.Invalid("id", "cannot delete your own account")
	}
	return a.users.DeleteUser(ctx, id)
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeRole(role string) (string, error) {
	for _, known := range knownRoles {
		if strings.EqualFold(strings.TrimSpace(role), known) {
			return known, nil
		}
	}
	return "", store.Invalid("role", fmt.Sprintf("must be one of %s", strings.Join(knownRoles, ", ")))
}

func validatePassword(password string) error {
	if len(strings.TrimSpace(password)) < 8 {
		return store.Invalid("password", "must be at least 8 characters")
	}
	return nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
