package contributor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/index"
)

// Postgres contributes option rows stored in a table shaped like:
//
//	CREATE TABLE searchable_options (
//	    id              BIGSERIAL PRIMARY KEY,
//	    text            TEXT    NOT NULL,
//	    path            TEXT,
//	    hit             TEXT,
//	    configurable_id TEXT    NOT NULL,
//	    group_name      TEXT,
//	    apply_stemming  BOOLEAN NOT NULL DEFAULT TRUE
//	);
type Postgres struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

func NewPostgres(db *sql.DB, table string) *Postgres {
	return &Postgres{
		db:     db,
		table:  table,
		logger: slog.Default().With("component", "postgres-contributor", "table", table),
	}
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Contribute(ctx context.Context, proc index.Processor) error {
	query := fmt.Sprintf(
		`SELECT text, path, hit, configurable_id, group_name, apply_stemming FROM %s ORDER BY id`,
		pq.QuoteIdentifier(p.table),
	)
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("querying %s: %w", p.table, err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			text, configurableID string
			path, hit, group     sql.NullString
			stem                 bool
		)
		if err := rows.Scan(&text, &path, &hit, &configurableID, &group, &stem); err != nil {
			return fmt.Errorf("scanning %s row: %w", p.table, err)
		}
		if err := proc.AddOptions(text, path.String, hit.String, configurableID, group.String, stem); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s: %w", p.table, err)
	}
	p.logger.Debug("options contributed", "rows", count)
	return nil
}
