package lookup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	// Register Postgres SQL driver.
	_ "github.com/lib/pq"
	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"

	"github.com/ferro-labs/faceslots/providers"
)

type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

// SQL persists slot bindings in SQLite or Postgres. A row with a NULL
// provider is a declared, unbound slot; no row means the slot is unknown.
type SQL struct {
	dsn     string
	dialect sqlDialect
	db      *sql.DB
}

// NewSQLite creates a SQLite-backed store. dsn can be a file path
// (e.g. /var/lib/faceslots/bindings.db) or SQLite DSN.
func NewSQLite(dsn string) *SQL {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "faceslots-bindings.db"
	}
	return &SQL{dsn: dsn, dialect: dialectSQLite}
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(dsn string) (*SQL, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	return &SQL{dsn: dsn, dialect: dialectPostgres}, nil
}

// Name implements Backend.
func (s *SQL) Name() string { return string(s.dialect) }

// Open implements Backend: connects, pings and creates the schema.
func (s *SQL) Open(ctx context.Context) error {
	db, err := sql.Open(string(s.dialect), s.dsn)
	if err != nil {
		return fmt.Errorf("open %s lookup store: %w", s.dialect, err)
	}
	if s.dialect == dialectSQLite {
		// Single writer; concurrent lookups queue on the one connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping %s lookup store: %w", s.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS slot_bindings (
	watch_face TEXT NOT NULL,
	slot_id INTEGER NOT NULL,
	provider_name TEXT NULL,
	component TEXT NULL,
	icon TEXT NULL,
	types TEXT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (watch_face, slot_id)
);`
	if s.dialect == dialectPostgres {
		ddl = `
CREATE TABLE IF NOT EXISTS slot_bindings (
	watch_face TEXT NOT NULL,
	slot_id INTEGER NOT NULL,
	provider_name TEXT NULL,
	component TEXT NULL,
	icon TEXT NULL,
	types TEXT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (watch_face, slot_id)
);`
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return fmt.Errorf("initialize %s lookup schema: %w", s.dialect, err)
	}
	s.db = db
	return nil
}

// Lookup implements Backend.
func (s *SQL) Lookup(ctx context.Context, watchFace string, slotID int) (*providers.Info, bool, error) {
	query := `SELECT provider_name, component, icon, types FROM slot_bindings WHERE watch_face = ? AND slot_id = ?`
	if s.dialect == dialectPostgres {
		query = `SELECT provider_name, component, icon, types FROM slot_bindings WHERE watch_face = $1 AND slot_id = $2`
	}

	var name, component, icon, types sql.NullString
	err := s.db.QueryRowContext(ctx, query, watchFace, slotID).Scan(&name, &component, &icon, &types)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup slot %d: %w", slotID, err)
	}
	if !name.Valid {
		return nil, true, nil
	}

	info := &providers.Info{
		Name:      name.String,
		Component: component.String,
		Icon:      icon.String,
	}
	if types.Valid && types.String != "" {
		if err := json.Unmarshal([]byte(types.String), &info.Types); err != nil {
			return nil, true, fmt.Errorf("decode types for slot %d: %w", slotID, err)
		}
	}
	return info, true, nil
}

// Bind implements Backend.
func (s *SQL) Bind(ctx context.Context, watchFace string, slotID int, info *providers.Info) error {
	var name, component, icon, types sql.NullString
	if info != nil {
		name = sql.NullString{String: info.Name, Valid: true}
		component = sql.NullString{String: info.Component, Valid: true}
		icon = sql.NullString{String: info.Icon, Valid: true}
		raw, err := json.Marshal(info.Types)
		if err != nil {
			return fmt.Errorf("encode types for slot %d: %w", slotID, err)
		}
		types = sql.NullString{String: string(raw), Valid: true}
	}

	query := `INSERT INTO slot_bindings(watch_face, slot_id, provider_name, component, icon, types, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(watch_face, slot_id) DO UPDATE SET
		provider_name = excluded.provider_name,
		component = excluded.component,
		icon = excluded.icon,
		types = excluded.types,
		updated_at = excluded.updated_at`
	if s.dialect == dialectPostgres {
		query = `INSERT INTO slot_bindings(watch_face, slot_id, provider_name, component, icon, types, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT(watch_face, slot_id) DO UPDATE SET
			provider_name = EXCLUDED.provider_name,
			component = EXCLUDED.component,
			icon = EXCLUDED.icon,
			types = EXCLUDED.types,
			updated_at = EXCLUDED.updated_at`
	}

	_, err := s.db.ExecContext(ctx, query, watchFace, slotID, name, component, icon, types, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bind slot %d: %w", slotID, err)
	}
	return nil
}

// Declare implements Backend. Existing rows are left untouched.
func (s *SQL) Declare(ctx context.Context, watchFace string, slotIDs ...int) error {
	query := `INSERT INTO slot_bindings(watch_face, slot_id, updated_at) VALUES(?, ?, ?)
	ON CONFLICT(watch_face, slot_id) DO NOTHING`
	if s.dialect == dialectPostgres {
		query = `INSERT INTO slot_bindings(watch_face, slot_id, updated_at) VALUES($1, $2, $3)
		ON CONFLICT(watch_face, slot_id) DO NOTHING`
	}
	now := time.Now().UTC()
	for _, id := range slotIDs {
		if _, err := s.db.ExecContext(ctx, query, watchFace, id, now); err != nil {
			return fmt.Errorf("declare slot %d: %w", id, err)
		}
	}
	return nil
}

// Close implements Backend.
func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
