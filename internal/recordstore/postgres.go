package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rollcall/pkg/sentinel"
)

// Postgres keeps all collections in a single table with a JSONB values
// column. Although the database underneath could do much better, the adapter
// exposes only the weak Store contract: plain inserts, deletes by identity,
// and full scans, so the core's concurrency story stays identical across
// backends.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the backing table if it does not exist. Called once at
// startup, before serving traffic.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rollcall_records (
			seq        BIGSERIAL PRIMARY KEY,
			id         UUID NOT NULL UNIQUE,
			collection TEXT NOT NULL,
			row_values JSONB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS rollcall_records_collection_idx ON rollcall_records (collection, seq)`)
	if err != nil {
		return fmt.Errorf("ensure schema index: %w", err)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, collection, column, value string) (Row, error) {
	var (
		id      string
		payload []byte
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, row_values FROM rollcall_records
		WHERE collection = $1 AND row_values->>$2 = $3
		ORDER BY seq LIMIT 1`,
		collection, column, value,
	).Scan(&id, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("%s: no row with %s=%s: %w", collection, column, value, sentinel.ErrNotFound)
	}
	if err != nil {
		return Row{}, fmt.Errorf("find row: %v: %w", err, sentinel.ErrUnavailable)
	}
	return decodeRow(id, payload)
}

func (p *Postgres) Append(ctx context.Context, collection string, values map[string]string) (Row, error) {
	row := Row{ID: uuid.NewString(), Values: cloneValues(values)}
	payload, err := json.Marshal(row.Values)
	if err != nil {
		return Row{}, fmt.Errorf("marshal row: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO rollcall_records (id, collection, row_values) VALUES ($1, $2, $3)`,
		row.ID, collection, payload)
	if err != nil {
		return Row{}, fmt.Errorf("append row: %v: %w", err, sentinel.ErrUnavailable)
	}
	return row, nil
}

func (p *Postgres) Delete(ctx context.Context, collection, rowID string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM rollcall_records WHERE collection = $1 AND id = $2`,
		collection, rowID)
	if err != nil {
		return fmt.Errorf("delete row: %v: %w", err, sentinel.ErrUnavailable)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: row %s already removed: %w", collection, rowID, sentinel.ErrNotFound)
	}
	return nil
}

func (p *Postgres) Scan(ctx context.Context, collection string) ([]Row, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, row_values FROM rollcall_records
		WHERE collection = $1 ORDER BY seq`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("scan collection: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row, err := decodeRow(id, payload)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan collection: %v: %w", err, sentinel.ErrUnavailable)
	}
	if out == nil {
		out = []Row{}
	}
	return out, nil
}

func (p *Postgres) Health(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %v: %w", err, sentinel.ErrUnavailable)
	}
	return nil
}

func decodeRow(id string, payload []byte) (Row, error) {
	values := make(map[string]string)
	if err := json.Unmarshal(payload, &values); err != nil {
		return Row{}, fmt.Errorf("unmarshal row %s: %w", id, err)
	}
	return Row{ID: id, Values: values}, nil
}
