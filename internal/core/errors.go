package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError signals bad caller input. The message is safe to show to
// the end user verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError signals that a referenced row does not exist or does not
// belong to the caller's tenant. The two cases are deliberately
// indistinguishable so ids cannot be probed across tenants.
type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Ref)
}

func notFound(entity string, ref any) error {
	return &NotFoundError{Entity: entity, Ref: fmt.Sprintf("%v", ref)}
}

// ConflictError signals a uniqueness conflict that survived the generator's
// retry loop or a duplicate user-supplied code.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
