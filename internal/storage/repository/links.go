package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// FindPrimaryLinkByOwner возвращает активную первичную связь владельца.
// Сортировка по updated_at защищает от дублей первичных записей,
// возникших до включения уникального индекса.
func (s *Storage) FindPrimaryLinkByOwner(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error) {
	const op = "storage.FindPrimaryLinkByOwner"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ownerValue, err := s.bindOwner(owner)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, owner_id, stripe_customer_id, is_primary, deleted, created_at, updated_at
			  FROM stripe_user_links
			  WHERE owner_id = $1 AND is_primary = TRUE AND deleted = FALSE
			  ORDER BY updated_at DESC
			  LIMIT 1`
	link, err := s.scanLinkRow(s.DB.QueryRowContext(ctx, query, ownerValue))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapStorageErr(op, err)
	}
	return link, true, nil
}

// FindLatestLinkByOwner возвращает последнюю обновлённую активную связь
// владельца независимо от флага is_primary.
//
// Deprecated: каноничный способ поиска — FindPrimaryLinkByOwner. Метод
// оставлен для вызывающих, ещё не перешедших на поиск по первичному флагу.
func (s *Storage) FindLatestLinkByOwner(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error) {
	const op = "storage.FindLatestLinkByOwner"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ownerValue, err := s.bindOwner(owner)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, owner_id, stripe_customer_id, is_primary, deleted, created_at, updated_at
			  FROM stripe_user_links
			  WHERE owner_id = $1 AND deleted = FALSE
			  ORDER BY updated_at DESC
			  LIMIT 1`
	link, err := s.scanLinkRow(s.DB.QueryRowContext(ctx, query, ownerValue))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapStorageErr(op, err)
	}
	return link, true, nil
}

// ListLinksByOwner возвращает все активные связи владельца.
func (s *Storage) ListLinksByOwner(ctx context.Context, owner models.UserID) ([]*models.UserLink, error) {
	const op = "storage.ListLinksByOwner"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ownerValue, err := s.bindOwner(owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, owner_id, stripe_customer_id, is_primary, deleted, created_at, updated_at
			  FROM stripe_user_links
			  WHERE owner_id = $1 AND deleted = FALSE`
	rows, err := s.DB.QueryContext(ctx, query, ownerValue)
	if err != nil {
		return nil, wrapStorageErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UserLink
	for rows.Next() {
		link, err := s.scanLinkRow(rows)
		if err != nil {
			return nil, wrapStorageErr(op, err)
		}
		result = append(result, link)
	}
	if err = rows.Err(); err != nil {
		return nil, wrapStorageErr(op, err)
	}
	return result, nil
}

// FindLinkByID возвращает связь по её ULID, включая мягко удалённые записи.
func (s *Storage) FindLinkByID(ctx context.Context, id string) (*models.UserLink, bool, error) {
	const op = "storage.FindLinkByID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, owner_id, stripe_customer_id, is_primary, deleted, created_at, updated_at
			  FROM stripe_user_links
			  WHERE id = $1`
	link, err := s.scanLinkRow(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapStorageErr(op, err)
	}
	return link, true, nil
}

// InsertLink вставляет новую связь. Нарушение уникальности — в том числе
// второй активной первичной связи владельца — возвращается как
// ErrConstraintViolation.
func (s *Storage) InsertLink(ctx context.Context, link *models.UserLink) error {
	const op = "storage.InsertLink"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ownerValue, err := s.bindOwner(link.OwnerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO stripe_user_links (id, owner_id, stripe_customer_id, is_primary,
			      deleted, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.DB.ExecContext(ctx, query,
		link.ID, ownerValue, link.StripeCustomerID, link.IsPrimary,
		link.Deleted, link.CreatedAt, link.UpdatedAt)
	if err != nil {
		return wrapStorageErr(op, err)
	}
	return nil
}

// UpdateLink обновляет изменяемые поля связи (флаг первичности) и
// освежает updated_at. stripe_customer_id не перезаписывается: перенос
// владельца на другого клиента выполняется новой записью.
// Возвращает количество изменённых строк; 0 — запись не найдена или
// уже удалена, это не ошибка.
func (s *Storage) UpdateLink(ctx context.Context, link *models.UserLink) (int, error) {
	const op = "storage.UpdateLink"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE stripe_user_links
			  SET is_primary = $1, updated_at = NOW()
			  WHERE id = $2 AND deleted = FALSE`
	result, err := s.DB.ExecContext(ctx, query, link.IsPrimary, link.ID)
	if err != nil {
		return 0, wrapStorageErr(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, wrapStorageErr(op, err)
	}
	return int(rowsAffected), nil
}

// SoftDeleteLink помечает связь удалённой и освежает updated_at.
// Возвращает количество изменённых строк.
func (s *Storage) SoftDeleteLink(ctx context.Context, link *models.UserLink) (int, error) {
	const op = "storage.SoftDeleteLink"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE stripe_user_links
			  SET deleted = TRUE, updated_at = NOW()
			  WHERE id = $1 AND deleted = FALSE`
	result, err := s.DB.ExecContext(ctx, query, link.ID)
	if err != nil {
		return 0, wrapStorageErr(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, wrapStorageErr(op, err)
	}
	return int(rowsAffected), nil
}

// rowScanner покрывает *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanLinkRow(row rowScanner) (*models.UserLink, error) {
	var link models.UserLink
	var rawOwner any
	if err := row.Scan(&link.ID, &rawOwner, &link.StripeCustomerID, &link.IsPrimary,
		&link.Deleted, &link.CreatedAt, &link.UpdatedAt); err != nil {
		return nil, err
	}
	owner, err := s.ownerFromDB(rawOwner)
	if err != nil {
		return nil, err
	}
	link.OwnerID = owner
	return &link, nil
}
