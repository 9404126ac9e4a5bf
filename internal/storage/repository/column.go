package repository

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// ColumnType перечисляет поддерживаемые SQL-типы колонки owner_id.
type ColumnType uint8

const (
	// ColumnVarchar — текстовая колонка, принимает любой вид идентификатора.
	ColumnVarchar ColumnType = iota + 1
	// ColumnInt — 32-битная целочисленная колонка.
	ColumnInt
	// ColumnBigint — 64-битная целочисленная колонка.
	ColumnBigint
)

func (c ColumnType) String() string {
	switch c {
	case ColumnVarchar:
		return "varchar"
	case ColumnInt:
		return "int"
	case ColumnBigint:
		return "bigint"
	}
	return "unknown"
}

// ParseColumnType восстанавливает тип колонки из строки конфигурации.
// Пустое или неизвестное значение превращается в varchar с предупреждением.
func ParseColumnType(raw string, log *slog.Logger) ColumnType {
	switch raw {
	case "varchar":
		return ColumnVarchar
	case "int":
		return ColumnInt
	case "bigint":
		return ColumnBigint
	case "":
		log.Warn("owner column type is not set, defaulting to varchar")
		return ColumnVarchar
	}
	log.Warn("unknown owner column type, defaulting to varchar",
		slog.String("value", raw))
	return ColumnVarchar
}

// bindOwner переводит идентификатор владельца в значение параметра запроса
// в соответствии с типом колонки. Несовместимый вид — ErrInvalidArgument.
func (s *Storage) bindOwner(id models.UserID) (any, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("empty owner id: %w", errs.ErrInvalidArgument)
	}

	switch s.ownerCol {
	case ColumnVarchar:
		// Текстовая колонка принимает каноничное представление любого вида.
		return id.String(), nil
	case ColumnInt:
		switch id.Kind() {
		case models.UserIDInt32:
			return id.Value().(int32), nil
		case models.UserIDInt64:
			v := id.Value().(int64)
			if v > math.MaxInt32 || v < math.MinInt32 {
				return nil, fmt.Errorf("int64 owner id %d overflows int column: %w", v, errs.ErrInvalidArgument)
			}
			return int32(v), nil
		}
		return nil, fmt.Errorf("%s owner id is not storable in int column: %w",
			id.Kind(), errs.ErrInvalidArgument)
	case ColumnBigint:
		switch id.Kind() {
		case models.UserIDInt32:
			return int64(id.Value().(int32)), nil
		case models.UserIDInt64:
			return id.Value().(int64), nil
		}
		return nil, fmt.Errorf("%s owner id is not storable in bigint column: %w",
			id.Kind(), errs.ErrInvalidArgument)
	}
	return nil, fmt.Errorf("unknown owner column type %d: %w", s.ownerCol, errs.ErrInvalidArgument)
}

// ownerFromDB восстанавливает идентификатор владельца из значения колонки.
// Вид восстановленного идентификатора определяется типом колонки: текстовая
// колонка всегда даёт строковый вид, числовые — целочисленный.
func (s *Storage) ownerFromDB(raw any) (models.UserID, error) {
	switch v := raw.(type) {
	case string:
		return models.StringID(v)
	case []byte:
		return models.StringID(string(v))
	case int32:
		return models.Int32ID(v), nil
	case int64:
		if s.ownerCol == ColumnInt {
			return models.Int32ID(int32(v)), nil
		}
		return models.Int64ID(v), nil
	}
	return models.UserID{}, fmt.Errorf("unsupported owner column value %T: %w", raw, errs.ErrStorage)
}
