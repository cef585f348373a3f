package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"weblogd/internal/auth"
	"weblogd/internal/models"
)

const userColumns = "id, username, password_hash, first_name, last_name, nickname, email, url, is_global_admin, disabled, created_at, updated_at"

// UserProfile holds the optional descriptive fields of an account.
type UserProfile struct {
	FirstName string
	LastName  string
	Nickname  string
	Email     string
	URL       string
}

// CountEnabledUsers returns the number of non-disabled users.
func (s *Store) CountEnabledUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE disabled = 0").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CreateUser creates one account with an already hashed password.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, profile UserProfile, globalAdmin bool) (*models.User, error) {
	username, err := auth.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, fmt.Errorf("password hash is required")
	}

	now := s.clock()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, nickname, email, url, is_global_admin, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, username, passwordHash, profile.FirstName, profile.LastName, profile.Nickname, profile.Email, profile.URL,
		boolToInt(globalAdmin), dbFormatTime(now), dbFormatTime(now))
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:            id,
		Username:      username,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		Nickname:      profile.Nickname,
		Email:         profile.Email,
		URL:           profile.URL,
		IsGlobalAdmin: globalAdmin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetUserByUsername returns a user by normalized username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, _, err := s.getUserWithHash(ctx, username)
	return user, err
}

// GetUserByID returns a user by id.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	user, _, err := scanUser(row)
	return user, err
}

// ListUsers returns all users sorted by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, _, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// SetUserDisabled updates one user's disabled state by username.
func (s *Store) SetUserDisabled(ctx context.Context, username string, disabled bool) (*models.User, error) {
	return s.updateUserFlag(ctx, username, "disabled", disabled)
}

// SetGlobalAdmin grants or revokes global administrator rights.
func (s *Store) SetGlobalAdmin(ctx context.Context, username string, admin bool) (*models.User, error) {
	return s.updateUserFlag(ctx, username, "is_global_admin", admin)
}

func (s *Store) updateUserFlag(ctx context.Context, username, column string, value bool) (*models.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET `+column+` = ?, updated_at = ?
		WHERE username = ?
	`, boolToInt(value), dbFormatTime(s.clock()), username)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetUserByUsername(ctx, username)
}

// SetPassword replaces one user's password hash.
func (s *Store) SetPassword(ctx context.Context, username, passwordHash string) (bool, error) {
	username = normalizeUsername(username)
	if username == "" {
		return false, fmt.Errorf("username is required")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?
	`, passwordHash, dbFormatTime(s.clock()), username)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteUser deletes one user by username.
func (s *Store) DeleteUser(ctx context.Context, username string) (bool, error) {
	username = normalizeUsername(username)
	if username == "" {
		return false, fmt.Errorf("username is required")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Authenticate verifies credentials and returns the user, or nil when the
// username is unknown, the account is disabled or the password is wrong.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, hash, err := s.getUserWithHash(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		auth.VerifyPassword(auth.UnknownUserHash(), password)
		return nil, nil
	}
	if !auth.VerifyPassword(hash, password) {
		return nil, nil
	}
	if user.Disabled {
		return nil, nil
	}
	return user, nil
}

func (s *Store) getUserWithHash(ctx context.Context, username string) (*models.User, string, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, "", nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ? LIMIT 1`, username)
	return scanUser(row)
}

func scanUser(scanner interface {
	Scan(dest ...any) error
}) (*models.User, string, error) {
	var user models.User
	var passwordHash string
	var admin, disabled int
	var createdAt, updatedAt string
	if err := scanner.Scan(&user.ID, &user.Username, &passwordHash, &user.FirstName, &user.LastName, &user.Nickname,
		&user.Email, &user.URL, &admin, &disabled, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", nil
		}
		return nil, "", err
	}
	user.IsGlobalAdmin = admin != 0
	user.Disabled = disabled != 0
	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, "", err
	}
	parsedUpdated, err := dbParseTime(updatedAt)
	if err != nil {
		return nil, "", err
	}
	user.CreatedAt = parsedCreated
	user.UpdatedAt = parsedUpdated
	return &user, passwordHash, nil
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(strings.ToLower(username))
}
