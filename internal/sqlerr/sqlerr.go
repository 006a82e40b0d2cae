// Package sqlerr translates low-level Postgres errors into
// application-level errors.
//
// Repositories return raw pgx errors; the global error handler funnels
// them through HandleError so clients receive consistent shapes
// (ALREADY_EXISTS, NOT_FOUND, ...) instead of driver noise.
package sqlerr

import (
	"errors"
)

// Code classifies a Postgres error by SQLSTATE class.
type Code int

const (
	Other Code = iota
	UniqueViolation
	ForeignKeyViolation
	NotNullViolation
	CheckViolation
)

// MapCode maps a SQLSTATE code onto the Code enum.
func MapCode(sqlstate string) Code {
	switch sqlstate {
	case "23505":
		return UniqueViolation
	case "23503":
		return ForeignKeyViolation
	case "23502":
		return NotNullViolation
	case "23514":
		return CheckViolation
	default:
		return Other
	}
}

// Error is a normalized Postgres error carrying the metadata needed to
// build user-facing messages and machine codes.
type Error struct {
	Code           Code
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	ConstraintName string

	driverErr error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

// ErrCode reports the mapped Code for a given error, walking the error
// chain. Unrecognized errors map to Other.
func ErrCode(err error) Code {
	var pgerr *Error
	if errors.As(err, &pgerr) {
		return pgerr.Code
	}
	return Other
}
