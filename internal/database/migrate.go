package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the bed store tables.  bed_id is the primary key, which is
// what makes bed ids unique across every ward.  Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS beds (
		bed_id     VARCHAR(64) NOT NULL,
		bed_type   VARCHAR(16) NOT NULL,
		ward_id    VARCHAR(16) NOT NULL,
		ward_name  VARCHAR(64) NOT NULL,
		status     VARCHAR(16) NOT NULL DEFAULT 'Functional',
		added_at   DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (bed_id),
		KEY idx_beds_ward_status (ward_id, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ward_census (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		ward_id     VARCHAR(16)     NOT NULL,
		occupied    INT UNSIGNED    NOT NULL,
		recorded_by VARCHAR(64)     NOT NULL DEFAULT '',
		recorded_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_census_ward_time (ward_id, recorded_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ward_surge (
		ward_id    VARCHAR(16)  NOT NULL,
		active     INT UNSIGNED NOT NULL DEFAULT 0,
		updated_by VARCHAR(64)  NOT NULL DEFAULT '',
		updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (ward_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
