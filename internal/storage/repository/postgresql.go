// Package repository реализует хранилище связей владельцев и клиентов
// Stripe на основе PostgreSQL. Удаление везде мягкое: записи помечаются
// флагом deleted и исчезают из выборок активных связей.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
// ownerCol задаёт SQL-тип колонки owner_id и фиксируется на всё время
// жизни хранилища.
type Storage struct {
	DB       *sql.DB
	ownerCol ColumnType
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string, ownerCol ColumnType) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB:       db,
		ownerCol: ownerCol,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'stripe_user_links'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table stripe_user_links missing or query error: %w", err)
	}
	return nil
}

// wrapStorageErr переводит ошибки драйвера в доменные типы.
func wrapStorageErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w: %w", op, errs.ErrStorage, err)
}
