package db

import "database/sql"

// Queries wraps a database handle with the planning service's query
// methods (solve_jobs, audit_log).
type Queries struct {
	db *sql.DB
}

// New returns a Queries bound to db.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}
