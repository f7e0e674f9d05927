// Package postgres implements the storage contract on a relational schema.
// Shared lists are realised through a real list_members table instead of the
// local driver's physical collection move; membership reads and writes
// degrade to an empty result when the database rejects them for permission
// reasons, so a list stays usable even when the membership table is locked
// down.
package postgres

import (
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Store is the remote driver.
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// New creates the remote driver on an open database handle.
func New(db *sql.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// isPermissionDenied reports whether an error is an authorization rejection
// rather than a real failure. Membership operations treat these as "no
// members found" by contract.
func isPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch string(pqErr.Code) {
		case "42501", "28000", "28P01":
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "unauthorized")
}
