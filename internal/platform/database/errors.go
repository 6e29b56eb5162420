package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
	sqlite "modernc.org/sqlite"

	"sdep-gateway/pkg/sentinel"
)

const (
	pgUniqueViolation       = "23505"
	sqliteConstraintUnique  = 2067
	sqliteConstraintPrimary = 1555
)

// IsUniqueViolation reports whether err is a unique-constraint rejection on
// either backend. Stores translate these into sentinel.ErrConflict.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		code := sqErr.Code()
		return code == sqliteConstraintUnique || code == sqliteConstraintPrimary
	}
	return false
}

// IsConnectionFailure reports whether err means the store itself is
// unreachable rather than the statement being wrong.
func IsConnectionFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08 is connection exceptions; 57P0x covers server shutdown.
		code := string(pqErr.Code)
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P")
	}
	// database/sql reports a closed pool with a bare string error.
	return strings.Contains(err.Error(), "database is closed")
}

// Remap classifies driver failures every store handles the same way.
// Connectivity loss wraps sentinel.ErrUnavailable so the service layer can
// surface a service-unavailable condition instead of an internal error.
func Remap(err error) error {
	if err == nil {
		return nil
	}
	if IsConnectionFailure(err) {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return err
}
