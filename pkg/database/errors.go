package database

import (
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/lib/pq"
)

// transientSignatures are driver/network error texts with no typed
// representation. Checked only after the typed classifications miss.
var transientSignatures = []string{
	"connection reset",
	"broken pipe",
	"connection refused",
	"connection timed out",
	"unexpected EOF",
	"server closed the connection",
	"bad connection",
}

// IsTransient reports whether err is a store-connectivity fault expected
// to resolve on retry with a fresh connection. Postgres SQLSTATE class 08
// covers connection exceptions; 57P01 is the server shutting the session
// down (failover, admin restart).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if strings.HasPrefix(string(pqErr.Code), "08") {
			return true
		}
		if pqErr.Code == "57P01" {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := err.Error()
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
