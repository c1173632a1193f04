package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	migrationsGlob    = "sql/migrations/*.sql"
	migrationLockKey  = int64(0x7470_6f69) // "tpoi"
	migrationTable    = "tpoints_schema_migrations"
	migrationTableDDL = `
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	migrationQueryTimeout = 5 * time.Second
)

var (
	//go:embed sql/migrations/*.sql
	migrationsFS embed.FS

	migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)
)

type migrationDirection string

const (
	migrationUp   migrationDirection = "up"
	migrationDown migrationDirection = "down"
)

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationState описывает одну миграцию и её состояние в базе.
type MigrationState struct {
	Version   int64
	Name      string
	AppliedAt *time.Time
}

// Applied сообщает, применена ли миграция.
func (m MigrationState) Applied() bool { return m.AppliedAt != nil }

// MigrateUp применяет up-миграции; steps=0 применяет все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.migrate(ctx, migrationUp, steps)
}

// MigrateDown откатывает миграции; steps<=0 откатывает одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.migrate(ctx, migrationDown, steps)
}

// MigrationStatus возвращает текущую версию и количество применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if s == nil || s.db == nil {
		return 0, 0, fmt.Errorf("postgres store is not initialized")
	}

	queryCtx, cancel := context.WithTimeout(ctx, migrationQueryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(queryCtx, migrationTableDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure migration table: %w", err)
	}

	var (
		version int64
		count   int
	)
	if err := s.db.QueryRowContext(queryCtx,
		`SELECT COALESCE(MAX(version), 0), COUNT(*) FROM `+migrationTable,
	).Scan(&version, &count); err != nil {
		return 0, 0, fmt.Errorf("query migration status: %w", err)
	}
	return version, count, nil
}

// Migrations перечисляет встроенные миграции вместе с отметками о применении.
func (s *Store) Migrations(ctx context.Context) ([]MigrationState, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("postgres store is not initialized")
	}
	known, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, migrationQueryTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(queryCtx, migrationTableDDL); err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}

	rows, err := s.db.QueryContext(queryCtx, `SELECT version, applied_at FROM `+migrationTable)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]time.Time)
	for rows.Next() {
		var (
			version int64
			at      time.Time
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}

	states := make([]MigrationState, 0, len(known))
	for _, m := range known {
		state := MigrationState{Version: m.Version, Name: m.Name}
		if at, ok := applied[m.Version]; ok {
			at := at
			state.AppliedAt = &at
		}
		states = append(states, state)
	}
	return states, nil
}

func (s *Store) migrate(ctx context.Context, direction migrationDirection, steps int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}
	if direction != migrationUp && direction != migrationDown {
		return fmt.Errorf("unsupported migration direction: %s", direction)
	}

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return err
	}

	// Advisory lock держится на соединении, поэтому вся работа идёт через один conn.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, migrationQueryTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, migrationTableDDL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	plan, err := planMigrations(ctx, conn, migrations, direction, steps)
	if err != nil {
		return err
	}
	logger := log.WithFields(log.Fields{"component": "migrator", "direction": string(direction)})
	for _, m := range plan {
		if err := runMigration(ctx, conn, m, direction); err != nil {
			return err
		}
		logger.WithFields(log.Fields{"version": m.Version, "name": m.Name}).Info("migration applied")
	}
	return nil
}

// planMigrations выбирает миграции для применения: по возрастанию для up,
// по убыванию применённых для down.
func planMigrations(ctx context.Context, conn *sql.Conn, migrations []migration, direction migrationDirection, steps int) ([]migration, error) {
	applied, err := loadAppliedVersions(ctx, conn)
	if err != nil {
		return nil, err
	}

	var plan []migration
	switch direction {
	case migrationUp:
		for _, m := range migrations {
			if !applied[m.Version] {
				plan = append(plan, m)
			}
		}
	case migrationDown:
		byVersion := make(map[int64]migration, len(migrations))
		for _, m := range migrations {
			byVersion[m.Version] = m
		}
		versions := make([]int64, 0, len(applied))
		for version := range applied {
			versions = append(versions, version)
		}
		sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
		for _, version := range versions {
			m, ok := byVersion[version]
			if !ok {
				return nil, fmt.Errorf("cannot rollback unknown migration version %d", version)
			}
			plan = append(plan, m)
		}
	}

	if steps > 0 && len(plan) > steps {
		plan = plan[:steps]
	}
	return plan, nil
}

func runMigration(ctx context.Context, conn *sql.Conn, m migration, direction migrationDirection) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx (%s %d): %w", direction, m.Version, err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, ignoreTxDone(tx.Rollback()))
		}
	}()

	body, record := m.UpSQL, `INSERT INTO `+migrationTable+` (version, name, applied_at) VALUES ($1, $2, NOW())`
	args := []any{m.Version, m.Name}
	if direction == migrationDown {
		body, record = m.DownSQL, `DELETE FROM `+migrationTable+` WHERE version = $1`
		args = args[:1]
	}

	if _, err = tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("execute %s migration %d_%s: %w", direction, m.Version, m.Name, err)
	}
	if _, err = tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("record %s migration %d_%s: %w", direction, m.Version, m.Name, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s migration %d_%s: %w", direction, m.Version, m.Name, err)
	}
	return nil
}

func ignoreTxDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func loadAppliedVersions(ctx context.Context, conn *sql.Conn) (map[int64]bool, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM `+migrationTable)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]bool)
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration version: %w", err)
		}
		result[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return result, nil
}

func loadMigrationsFromFS(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, migrationsGlob)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	byVersion := make(map[int64]*migration)
	for _, file := range files {
		base := path.Base(file)
		matches := migrationFilePattern.FindStringSubmatch(base)
		if len(matches) != 4 {
			return nil, fmt.Errorf("invalid migration file name: %s", base)
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", base, err)
		}
		name, direction := matches[2], migrationDirection(matches[3])

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", base)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == migrationDown {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = body
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %d_%s must have both up and down files", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
