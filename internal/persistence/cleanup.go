package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// ClearTranscript removes every stored line. The schema is kept.
func ClearTranscript(ctx context.Context, db *sql.DB) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("database is not initialized")
	}

	//goland:noinspection SqlWithoutWhere
	res, err := db.ExecContext(ctx, `DELETE FROM transcript;`)
	if err != nil {
		return 0, fmt.Errorf("clear transcript: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear transcript rows affected: %w", err)
	}

	return n, nil
}
