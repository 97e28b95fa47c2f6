package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/merik2009/vpn-shop-bot/internal/models"
)

// ErrUserNotFound — пользователь отсутствует в хранилище.
var ErrUserNotFound = errors.New("user not found")

// UpsertUser регистрирует пользователя при первом контакте. Повторный вызов
// обновляет только отображаемое имя, не трогая email и ссылку.
func (s *Storage) UpsertUser(ctx context.Context, id int64, username string, isAdmin bool) error {
	const op = "storage.UpsertUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (id, username, is_admin)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username`
	if _, err := s.DB.ExecContext(ctx, query, id, username, isAdmin); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, email, link, is_admin
			  FROM users
			  WHERE id = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, id)

	var email, link sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &email, &link, &u.IsAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.Email = email.String
	u.Link = link.String
	return u, nil
}

// ListUsersWithEmail возвращает всех пользователей с известным email —
// кандидатов на синхронизацию с панелью.
func (s *Storage) ListUsersWithEmail(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsersWithEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, email, link, is_admin
			  FROM users
			  WHERE email IS NOT NULL AND email <> ''
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var email, link sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &email, &link, &u.IsAdmin); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		u.Email = email.String
		u.Link = link.String
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListUsers возвращает всех пользователей для административного списка.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, email, link, is_admin
			  FROM users
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var email, link sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &email, &link, &u.IsAdmin); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		u.Email = email.String
		u.Link = link.String
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListUserIDs возвращает идентификаторы всех пользователей (для рассылки).
func (s *Storage) ListUserIDs(ctx context.Context) ([]int64, error) {
	const op = "storage.ListUserIDs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

// UpdateLink перезаписывает кэшированную ссылку подключения пользователя.
// И оркестратор, и синхронизация пишут только это поле: последний победил.
func (s *Storage) UpdateLink(ctx context.Context, id int64, link string) error {
	const op = "storage.UpdateLink"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE users SET link = $1 WHERE id = $2`, link, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет пользователя. Вызывается только явным действием
// администратора — никакая фоновая логика пользователей не удаляет.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountUsers возвращает число зарегистрированных пользователей.
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	const op = "storage.CountUsers"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
