package database

import (
	"database/sql"
	"fmt"
)

// migration is a named, idempotent forward step, applied once and recorded
// in migration_log.
type migration struct {
	name string
	run  func(tx *sql.Tx) error
}

// migrations lists every forward migration in order. New migrations must
// be appended, never reordered or removed.
var migrations = []migration{
	{
		name: "fix_isclosable_flags",
		run:  migrateFixIsClosable,
	},
}

// RunMigrations applies every migration not yet recorded in migration_log.
// Safe to call on every startup.
func RunMigrations(d *Database) error {
	log.Info("checking migrations", "count", len(migrations))

	for _, m := range migrations {
		applied, err := migrationApplied(d, m.name)
		if err != nil {
			return fmt.Errorf("checking migration %q: %w", m.name, err)
		}
		if applied {
			continue
		}

		log.Info("applying migration", "name", m.name)
		tx, err := d.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %q: %w", m.name, err)
		}

		if err := m.run(tx); err != nil {
			tx.Rollback()
			recordMigration(d, m.name, false, err.Error())
			return fmt.Errorf("running migration %q: %w", m.name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO migration_log (migration_name, success, detail) VALUES (?, 1, '')",
			m.name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %q: %w", m.name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %q: %w", m.name, err)
		}
		log.Info("migration applied", "name", m.name)
	}
	return nil
}

func migrationApplied(d *Database, name string) (bool, error) {
	exists, err := d.TableExists("migration_log")
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}
	var count int
	err = d.QueryRow(
		"SELECT COUNT(*) FROM migration_log WHERE migration_name = ? AND success = 1",
		name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordMigration(d *Database, name string, success bool, detail string) {
	_, _ = d.Exec(
		"INSERT OR REPLACE INTO migration_log (migration_name, success, detail) VALUES (?, ?, ?)",
		name, success, detail,
	)
}

// migrateFixIsClosable corrects the is_closable flag on pre-existing status
// rows. Seeding now writes the correct boolean directly, but historical
// databases carried rows where a SQLite boolean-binding defect left every
// is_closable value false; this repairs them in place against the seeded
// closable set {Completed, Closed, Canceled, Rejected}.
func migrateFixIsClosable(tx *sql.Tx) error {
	closable := map[string]bool{
		"Completed": true,
		"Closed":    true,
		"Canceled":  true,
		"Rejected":  true,
	}
	for name, want := range closable {
		if _, err := tx.Exec(
			"UPDATE statuses SET is_closable = ? WHERE name = ?",
			want, name,
		); err != nil {
			return fmt.Errorf("fixing is_closable for %q: %w", name, err)
		}
	}
	if _, err := tx.Exec(`
		UPDATE statuses SET is_closable = 0
		WHERE name NOT IN ('Completed', 'Closed', 'Canceled', 'Rejected')
	`); err != nil {
		return fmt.Errorf("clearing is_closable for open statuses: %w", err)
	}
	return nil
}
