package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
	"grocermate/backend/internal/store/sqlstore"
)

func newTestAuth(t *testing.T) (*AuthManager, *sqlstore.Store) {
	t.Helper()
	repo, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewAuthManager(testSecret, time.Hour, repo), repo
}

func TestBootstrapManagerRunsOnce(t *testing.T) {
	auth, repo := newTestAuth(t)
	ctx := context.Background()

	if err := auth.BootstrapManager(ctx, "Boss", "first-pass-1"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := auth.BootstrapManager(ctx, "other", "second-pass-1"); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "boss" || users[0].Role != domain.RoleManager {
		t.Fatalf("expected a single bootstrapped manager, got %+v", users)
	}
	if users[0].PasswordHash == "first-pass-1" || !isPasswordHash(users[0].PasswordHash) {
		t.Fatalf("password must be stored as a bcrypt hash")
	}
}

func TestBootstrapManagerSkipsWithoutPassword(t *testing.T) {
	auth, repo := newTestAuth(t)
	if err := auth.BootstrapManager(context.Background(), "manager", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if n, _ := repo.CountUsers(context.Background()); n != 0 {
		t.Fatalf("expected no users, got %d", n)
	}
}

func TestLoginTokenRoundTrip(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	user, err := auth.CreateUser(ctx, domain.UserCreateRequest{Username: "till", Password: "till-pass-1", Role: "Employee"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp, err := auth.Login(ctx, domain.LoginRequest{Username: " TILL ", Password: "till-pass-1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.UserID != user.ID || resp.Role != domain.RoleEmployee {
		t.Fatalf("unexpected login response %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.UserID != user.ID || actor.Username != "till" || actor.Role != domain.RoleEmployee {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	if _, err := auth.CreateUser(ctx, domain.UserCreateRequest{Username: "till", Password: "till-pass-1", Role: "Employee"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	for _, req := range []domain.LoginRequest{
		{Username: "till", Password: "wrong-pass"},
		{Username: "ghost", Password: "till-pass-1"},
		{Username: "", Password: ""},
	} {
		if _, err := auth.Login(ctx, req); !errors.Is(err, store.ErrUnauthenticated) {
			t.Fatalf("expected unauthenticated for %+v, got %v", req, err)
		}
	}
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	if _, err := auth.CreateUser(ctx, domain.UserCreateRequest{Username: "till", Password: "till-pass-1", Role: "Employee"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	resp, err := auth.Login(ctx, domain.LoginRequest{Username: "till", Password: "till-pass-1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := NewAuthManager("another-secret-another-secret-xx", time.Hour, nil)
	if _, err := other.ParseToken(resp.AccessToken); !errors.Is(err, store.ErrUnauthenticated) {
		t.Fatalf("token signed with another secret must be rejected, got %v", err)
	}

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := auth.ParseToken(resp.AccessToken); !errors.Is(err, store.ErrUnauthenticated) {
		t.Fatalf("expired token must be rejected, got %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	cases := map[string]domain.UserCreateRequest{
		"short username": {Username: "ab", Password: "long-enough-1", Role: "Employee"},
		"spaced":         {Username: "a b c", Password: "long-enough-1", Role: "Employee"},
		"short password": {Username: "valid", Password: "short", Role: "Employee"},
		"unknown role":   {Username: "valid", Password: "long-enough-1", Role: "Owner"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := auth.CreateUser(ctx, req); !errors.Is(err, store.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := auth.CreateUser(ctx, domain.UserCreateRequest{Username: "dup", Password: "long-enough-1", Role: "Manager"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := auth.CreateUser(ctx, domain.UserCreateRequest{Username: "DUP", Password: "long-enough-1", Role: "Manager"}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("duplicate username should be a validation error, got %v", err)
	}
}

func TestDeleteUserRefusesSelf(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	user, err := auth.CreateUser(ctx, domain.UserCreateRequest{Username: "boss", Password: "long-enough-1", Role: "Manager"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	err = auth.DeleteUser(ctx, domain.Actor{UserID: user.ID, Role: domain.RoleManager}, user.ID)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateUserChangesPassword(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	user, err := auth.CreateUser(ctx, domain.UserCreateRequest{Username: "till", Password: "till-pass-1", Role: "Employee"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	newPass := "till-pass-2"
	role := "manager"
	updated, err := auth.UpdateUser(ctx, user.ID, domain.UserUpdateRequest{Password: &newPass, Role: &role})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != domain.RoleManager {
		t.Fatalf("expected role Manager, got %q", updated.Role)
	}
	if _, err := auth.Login(ctx, domain.LoginRequest{Username: "till", Password: "till-pass-1"}); err == nil {
		t.Fatalf("old password must stop working")
	}
	if _, err := auth.Login(ctx, domain.LoginRequest{Username: "till", Password: newPass}); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
}
