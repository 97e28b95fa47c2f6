package repository

import (
	"context"
	"fmt"

	"github.com/merik2009/vpn-shop-bot/internal/models"
)

// SavePayment добавляет запись об оплате. Журнал только пополняется,
// записи не изменяются и не удаляются.
func (s *Storage) SavePayment(ctx context.Context, p models.Payment) (int, error) {
	const op = "storage.SavePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (user_id, email, plan_id, amount, paid_at, expiry_time)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	if err := s.DB.QueryRowContext(ctx, query,
		p.UserID, p.Email, p.PlanID, p.Amount, p.PaidAt, p.ExpiryTime).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// SaveProvisionResult сохраняет результат выдачи ссылки как единое целое:
// email и ссылку пользователя вместе со строкой платежа в одной транзакции.
func (s *Storage) SaveProvisionResult(ctx context.Context, res models.ProvisionResult) error {
	const op = "storage.SaveProvisionResult"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET link = $1, email = $2 WHERE id = $3`,
		res.Link, res.Email, res.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p := res.Payment
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payments (user_id, email, plan_id, amount, paid_at, expiry_time)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.UserID, p.Email, p.PlanID, p.Amount, p.PaidAt, p.ExpiryTime); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPayments возвращает историю оплат пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userID int64) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, email, plan_id, amount, paid_at, expiry_time
			  FROM payments
			  WHERE user_id = $1
			  ORDER BY paid_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.Email, &p.PlanID, &p.Amount, &p.PaidAt, &p.ExpiryTime); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountPayments возвращает число записей в журнале платежей.
func (s *Storage) CountPayments(ctx context.Context) (int, error) {
	const op = "storage.CountPayments"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
