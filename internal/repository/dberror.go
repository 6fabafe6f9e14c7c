package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type dbErrorKind int

const (
	kindOther dbErrorKind = iota
	kindDuplicate
	kindForeignKey
	kindCheck
	kindTransient
)

// MySQL server error numbers.
const (
	mysqlDupEntry        = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mysqlCheckViolated   = 3819
)

// classify maps a driver error from either supported store onto the small
// set of outcomes the repositories care about.
func classify(err error) dbErrorKind {
	if err == nil {
		return kindOther
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDupEntry:
			return kindDuplicate
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return kindForeignKey
		case mysqlCheckViolated:
			return kindCheck
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return kindTransient
		}
		return kindOther
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return kindTransient
		case sqlite3.SQLITE_CONSTRAINT:
			switch code {
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				return kindDuplicate
			case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
				return kindForeignKey
			case sqlite3.SQLITE_CONSTRAINT_CHECK:
				return kindCheck
			}
			// extended codes disabled: fall back to the message
			msg := se.Error()
			switch {
			case strings.Contains(msg, "UNIQUE"):
				return kindDuplicate
			case strings.Contains(msg, "FOREIGN KEY"):
				return kindForeignKey
			case strings.Contains(msg, "CHECK"):
				return kindCheck
			}
		}
	}
	return kindOther
}

// IsTransient reports whether err is a lock timeout, deadlock or busy
// error after which the whole transaction may be retried.
func IsTransient(err error) bool {
	return classify(err) == kindTransient
}
