package postgres

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

const dialect = "postgres"

var Migrations = migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id:   "0001_init",
			Up:   []string{migration1up},
			Down: []string{migration1down},
		},
	},
}

const migration1up = `
CREATE TABLE accounts (
    id uuid PRIMARY KEY,
    username text NOT NULL,
    password_hash text NOT NULL,
    last_token_reset timestamp with time zone NOT NULL,
    created_at timestamp with time zone DEFAULT CURRENT_TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX accounts_username_unique ON accounts (lower(username));

CREATE TABLE elections (
    id uuid PRIMARY KEY,
    owner_id uuid NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
    name text NOT NULL,
    type text NOT NULL DEFAULT 'stv',
    candidates text[] NOT NULL,
    available_seats integer NOT NULL CHECK (available_seats > 0),
    closed boolean NOT NULL DEFAULT false,
    created_at timestamp with time zone DEFAULT CURRENT_TIMESTAMP NOT NULL
);

CREATE INDEX elections_owner_idx ON elections (owner_id, created_at DESC);

-- ballots carry no reference to the voter they were mailed to
CREATE TABLE ballots (
    uuid uuid PRIMARY KEY,
    created_at bigint NOT NULL,
    salt uuid NOT NULL,
    election_id uuid NOT NULL REFERENCES elections (id) ON DELETE CASCADE,
    voted boolean NOT NULL DEFAULT false,
    data text[]
);

CREATE INDEX ballots_election_idx ON ballots (election_id);
`

const migration1down = `
DROP TABLE ballots;
DROP TABLE elections;
DROP TABLE accounts;
`

// Migrator runs one of up, down, status or upSync against db.
func Migrator(action string, db *sqlx.DB, logger *slog.Logger) error {
	switch action {
	case "upSync":
		total, applied, _, err := MigrateStatus(db)
		if err != nil {
			return fmt.Errorf("could not retrieve migrations status: %w", err)
		}
		if total > applied {
			logger.Info("applying missing migrations", "count", total-applied)
			n, err := migrate.ExecMax(db.DB, dialect, Migrations, migrate.Up, 0)
			if err != nil {
				return fmt.Errorf("could not apply necessary migrations: %w", err)
			}
			if n != total-applied {
				return fmt.Errorf("applied %d of %d missing migrations", n, total-applied)
			}
		} else if total < applied {
			return fmt.Errorf("database has %d migrations applied but only %d are known", applied, total)
		}
	case "up", "down":
		dir := migrate.Up
		if action == "down" {
			dir = migrate.Down
		}
		n, err := migrate.ExecMax(db.DB, dialect, Migrations, dir, 1)
		if err != nil {
			return fmt.Errorf("error applying migration: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("expected to apply 1 migration, applied %d", n)
		}
		logger.Info("migration complete", "direction", action)
	case "status":
	default:
		return fmt.Errorf("unknown migrate command %q", action)
	}

	total, applied, record, err := MigrateStatus(db)
	if err != nil {
		return fmt.Errorf("could not retrieve migrations status: %w", err)
	}
	logger.Info("migrations status", "total", total, "applied", applied, "records", record)
	return nil
}

// MigrateStatus returns the number of known and applied migrations and the
// applied records as JSON.
func MigrateStatus(db *sqlx.DB) (int, int, string, error) {
	total, err := Migrations.FindMigrations()
	if err != nil {
		return 0, 0, "", fmt.Errorf("cannot retrieve known migrations: %w", err)
	}
	records, err := migrate.GetMigrationRecords(db.DB, dialect)
	if err != nil {
		return len(total), 0, "", fmt.Errorf("cannot retrieve applied migrations: %w", err)
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return len(total), len(records), "", fmt.Errorf("failed to encode migration records: %w", err)
	}
	return len(total), len(records), string(raw), nil
}
