// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to
// distinguish between different failure scenarios without inspecting
// driver errors. For example, ErrForbidden indicates that the caller
// does not own the bay behind the row they tried to change, while
// ErrAlreadyClaimed signals that the exclusivity check or the
// uq_claims_active unique key rejected a second active claim.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller attempts an operation
	// on a bay (or a window of a bay) they do not own.
	ErrForbidden = errors.New("forbidden")

	ErrDuplicateOwner = errors.New("owner already has a bay")
	ErrDuplicateLabel = errors.New("bay label already exists")
	ErrEmailExists    = errors.New("email already exists")

	// ErrNotAvailable is returned when a window is switched off or its
	// bay is hidden.
	ErrNotAvailable = errors.New("availability is not open for claims")

	ErrAlreadyClaimed  = errors.New("availability already claimed")
	ErrAlreadyReleased = errors.New("claim already released")
	ErrNotClaimer      = errors.New("claim belongs to another user")

	// ErrInvalidWindow is returned when chk_availabilities_window rejects
	// the stored bounds.
	ErrInvalidWindow = errors.New("window start is not before its end")

	// ErrInvariantViolated means the store holds more than one active
	// claim for a bay's windows. It should be impossible while
	// uq_claims_active exists.
	ErrInvariantViolated = errors.New("more than one active claim")
)

const (
	// mysqlDuplicateEntry is ER_DUP_ENTRY.
	mysqlDuplicateEntry = 1062
	// mysqlCheckViolated is ER_CHECK_CONSTRAINT_VIOLATED (MySQL 8.0.16+).
	mysqlCheckViolated = 3819
)

// duplicateKey reports whether err is a unique key violation and, if so,
// the raw server message (which names the violated key).
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return me.Message, true
	}
	return "", false
}

// violates reports whether err is a duplicate entry on the named key.
// MySQL 8 prefixes the key with the table name, 5.7 does not, so a
// substring match covers both.
func violates(err error, key string) bool {
	msg, ok := duplicateKey(err)
	return ok && strings.Contains(msg, key)
}

// checkFailed reports whether err is a violation of the named CHECK
// constraint.
func checkFailed(err error, constraint string) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlCheckViolated && strings.Contains(me.Message, constraint)
}
