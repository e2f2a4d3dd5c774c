package repositories

import (
	"database/sql"
	"fmt"
)

// NextSequence bumps the counter in <table>_sequence and returns the new value.
//
// Run numbers shown by `pxsync history` come from here, so they stay gap-free and ordered across
// batches even though run ids are random. The counter row (id = 1) is seeded by the migration that
// creates the table; a missing companion table is an error.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	counter := table + "_sequence"

	res, err := tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", counter))
	if err != nil {
		return 0, fmt.Errorf("failed to bump %s: %w", counter, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("%s has no counter row", counter)
	}

	var next int
	if err := tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", counter)).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", counter, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", counter, err)
	}

	return next, nil
}
