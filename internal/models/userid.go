// Package models содержит доменные структуры связи пользователей приложения
// с клиентами Stripe: полиморфный идентификатор владельца и сама запись связи.
package models

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
)

// UserIDKind перечисляет поддерживаемые виды идентификатора владельца.
type UserIDKind uint8

const (
	// UserIDString — текстовый идентификатор.
	UserIDString UserIDKind = iota + 1
	// UserIDInt32 — 32-битный целочисленный идентификатор.
	UserIDInt32
	// UserIDInt64 — 64-битный целочисленный идентификатор.
	UserIDInt64
	// UserIDFloat64 — идентификатор с плавающей точкой.
	UserIDFloat64
	// UserIDBytes — произвольные байты.
	UserIDBytes
)

func (k UserIDKind) String() string {
	switch k {
	case UserIDString:
		return "string"
	case UserIDInt32:
		return "int32"
	case UserIDInt64:
		return "int64"
	case UserIDFloat64:
		return "float64"
	case UserIDBytes:
		return "bytes"
	}
	return "unknown"
}

// ParseKind восстанавливает вид идентификатора из текстового имени.
func ParseKind(s string) (UserIDKind, error) {
	switch s {
	case "string":
		return UserIDString, nil
	case "int32":
		return UserIDInt32, nil
	case "int64":
		return UserIDInt64, nil
	case "float64":
		return UserIDFloat64, nil
	case "bytes":
		return UserIDBytes, nil
	}
	return 0, fmt.Errorf("unknown user id kind %q: %w", s, errs.ErrInvalidArgument)
}

// UserID — идентификатор пользователя вызывающего приложения.
// Размеченное объединение над конечным набором скалярных видов: хранилище
// и репозиторий работают с ним единообразно, не параметризуясь конкретным
// типом идентификатора.
type UserID struct {
	kind UserIDKind
	str  string
	i64  int64
	f64  float64
	raw  []byte
}

// StringID оборачивает текстовый идентификатор. Пустая строка недопустима.
func StringID(v string) (UserID, error) {
	if v == "" {
		return UserID{}, fmt.Errorf("empty string user id: %w", errs.ErrInvalidArgument)
	}
	return UserID{kind: UserIDString, str: v}, nil
}

// Int32ID оборачивает 32-битный целочисленный идентификатор.
func Int32ID(v int32) UserID {
	return UserID{kind: UserIDInt32, i64: int64(v)}
}

// Int64ID оборачивает 64-битный целочисленный идентификатор.
func Int64ID(v int64) UserID {
	return UserID{kind: UserIDInt64, i64: v}
}

// Float64ID оборачивает идентификатор с плавающей точкой.
func Float64ID(v float64) UserID {
	return UserID{kind: UserIDFloat64, f64: v}
}

// BytesID оборачивает байтовый идентификатор. Nil и пустой срез недопустимы.
func BytesID(v []byte) (UserID, error) {
	if len(v) == 0 {
		return UserID{}, fmt.Errorf("empty bytes user id: %w", errs.ErrInvalidArgument)
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return UserID{kind: UserIDBytes, raw: cp}, nil
}

// ParseUserID восстанавливает UserID заданного вида из текстового
// представления. Используется HTTP-фасадом и при чтении varchar-колонок.
func ParseUserID(kind UserIDKind, s string) (UserID, error) {
	switch kind {
	case UserIDString:
		return StringID(s)
	case UserIDInt32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return UserID{}, fmt.Errorf("parse int32 user id %q: %w", s, errs.ErrInvalidArgument)
		}
		return Int32ID(int32(v)), nil
	case UserIDInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return UserID{}, fmt.Errorf("parse int64 user id %q: %w", s, errs.ErrInvalidArgument)
		}
		return Int64ID(v), nil
	case UserIDFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return UserID{}, fmt.Errorf("parse float64 user id %q: %w", s, errs.ErrInvalidArgument)
		}
		return Float64ID(v), nil
	case UserIDBytes:
		v, err := hex.DecodeString(s)
		if err != nil || len(v) == 0 {
			return UserID{}, fmt.Errorf("parse bytes user id %q: %w", s, errs.ErrInvalidArgument)
		}
		return BytesID(v)
	}
	return UserID{}, fmt.Errorf("unknown user id kind %d: %w", kind, errs.ErrInvalidArgument)
}

// Kind возвращает вид идентификатора.
func (id UserID) Kind() UserIDKind { return id.kind }

// IsZero сообщает, что идентификатор не был инициализирован.
func (id UserID) IsZero() bool { return id.kind == 0 }

// Value возвращает исходное обёрнутое значение.
func (id UserID) Value() any {
	switch id.kind {
	case UserIDString:
		return id.str
	case UserIDInt32:
		return int32(id.i64)
	case UserIDInt64:
		return id.i64
	case UserIDFloat64:
		return id.f64
	case UserIDBytes:
		cp := make([]byte, len(id.raw))
		copy(cp, id.raw)
		return cp
	}
	return nil
}

// String возвращает каноничное текстовое представление значения.
// Байтовые идентификаторы кодируются hex-строкой.
func (id UserID) String() string {
	switch id.kind {
	case UserIDString:
		return id.str
	case UserIDInt32, UserIDInt64:
		return strconv.FormatInt(id.i64, 10)
	case UserIDFloat64:
		return strconv.FormatFloat(id.f64, 'g', -1, 64)
	case UserIDBytes:
		return hex.EncodeToString(id.raw)
	}
	return ""
}

// Equal — структурное равенство: совпадают вид и значение.
func (id UserID) Equal(other UserID) bool {
	if id.kind != other.kind {
		return false
	}
	switch id.kind {
	case UserIDString:
		return id.str == other.str
	case UserIDInt32, UserIDInt64:
		return id.i64 == other.i64
	case UserIDFloat64:
		return id.f64 == other.f64
	case UserIDBytes:
		return bytes.Equal(id.raw, other.raw)
	}
	return id.kind == 0 && other.kind == 0
}
