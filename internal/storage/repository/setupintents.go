package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// InsertSetupIntent сохраняет локальную запись о созданном SetupIntent.
func (s *Storage) InsertSetupIntent(ctx context.Context, intent *models.SetupIntent) error {
	const op = "storage.InsertSetupIntent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO stripe_setup_intents (id, user_link_id, status, deleted, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.DB.ExecContext(ctx, query,
		intent.ID, intent.UserLinkID, intent.Status, intent.Deleted,
		intent.CreatedAt, intent.UpdatedAt)
	if err != nil {
		return wrapStorageErr(op, err)
	}
	return nil
}

// UpdateSetupIntent обновляет статус и флаг удаления записи SetupIntent.
// Возвращает количество изменённых строк.
func (s *Storage) UpdateSetupIntent(ctx context.Context, intent *models.SetupIntent) (int, error) {
	const op = "storage.UpdateSetupIntent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE stripe_setup_intents
			  SET status = $1, deleted = $2, updated_at = NOW()
			  WHERE id = $3`
	result, err := s.DB.ExecContext(ctx, query, intent.Status, intent.Deleted, intent.ID)
	if err != nil {
		return 0, wrapStorageErr(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, wrapStorageErr(op, err)
	}
	return int(rowsAffected), nil
}

// FindSetupIntentByID возвращает запись SetupIntent по идентификатору Stripe.
func (s *Storage) FindSetupIntentByID(ctx context.Context, id string) (*models.SetupIntent, bool, error) {
	const op = "storage.FindSetupIntentByID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_link_id, status, deleted, created_at, updated_at
			  FROM stripe_setup_intents
			  WHERE id = $1`
	var intent models.SetupIntent
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&intent.ID, &intent.UserLinkID,
		&intent.Status, &intent.Deleted, &intent.CreatedAt, &intent.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapStorageErr(op, err)
	}
	return &intent, true, nil
}

// ListSetupIntentsByLink возвращает незавершённые SetupIntent связи.
func (s *Storage) ListSetupIntentsByLink(ctx context.Context, userLinkID string) ([]*models.SetupIntent, error) {
	const op = "storage.ListSetupIntentsByLink"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_link_id, status, deleted, created_at, updated_at
			  FROM stripe_setup_intents
			  WHERE user_link_id = $1 AND deleted = FALSE`
	rows, err := s.DB.QueryContext(ctx, query, userLinkID)
	if err != nil {
		return nil, wrapStorageErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SetupIntent
	for rows.Next() {
		var intent models.SetupIntent
		if err := rows.Scan(&intent.ID, &intent.UserLinkID, &intent.Status,
			&intent.Deleted, &intent.CreatedAt, &intent.UpdatedAt); err != nil {
			return nil, wrapStorageErr(op, err)
		}
		result = append(result, &intent)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStorageErr(op, err)
	}
	return result, nil
}
