package sqlstore

import (
	"context"

	"grocermate/backend/internal/domain"
	"grocermate/backend/internal/store"
)

const userColumns = `id, username, full_name, password_hash, role, active, created_at`

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, classify("count users", err)
	}
	return n, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, 16)
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, classify("list users", err)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := getOne(ctx, s.db, &u, "user", id, s.dialect.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return u, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := getOne(ctx, s.db, &u, "user", username, s.dialect.rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	id, err := insertReturningID(ctx, s.db, "create user", s.dialect.rebind(`
		INSERT INTO users (username, full_name, password_hash, role, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`), user.Username, user.FullName, user.PasswordHash, user.Role, user.Active, nowUTC())
	if err != nil {
		return domain.User{}, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (domain.User, error) {
	n, err := execAffected(ctx, s.db, "update user", s.dialect.rebind(`
		UPDATE users SET full_name = ?, password_hash = ?, role = ?, active = ? WHERE id = ?
	`), user.FullName, user.PasswordHash, user.Role, user.Active, user.ID)
	if err != nil {
		return domain.User{}, err
	}
	if n == 0 {
		return domain.User{}, store.NotFound("user", user.ID)
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "users", "user", id)
}
