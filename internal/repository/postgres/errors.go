package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"github.com/webinar-search-api/pkg/schema/db"
)

// wrapErr annotates err with the failed operation and marks connectivity
// failures with db.ErrDatastoreUnavailable.
func wrapErr(op string, err error) error {
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, db.ErrDatastoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53": // connection_exception, insufficient_resources
			return true
		}
		switch pqErr.Code {
		case "57P01", "57P02", "57P03": // admin/crash shutdown, cannot_connect_now
			return true
		}
	}
	return false
}
