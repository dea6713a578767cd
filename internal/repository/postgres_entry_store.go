package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/repository"
	pkgpg "TriRecover/pkg/postgres"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations exposes the embedded schema for tools and tests.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return sub
}

const entryColumns = `to_char(date, 'YYYY-MM-DD'), m_ready, m_hrv, oura_rec, oura_rhr, oura_hrv, oura_hrv_status,
	whoop_rec, whoop_rhr, whoop_hrv, steps, fatigue, resistance, joint, notes, morning_entry`

const upsertEntry = `
	INSERT INTO daily_entries (
		date, m_ready, m_hrv, oura_rec, oura_rhr, oura_hrv, oura_hrv_status,
		whoop_rec, whoop_rhr, whoop_hrv, steps, fatigue, resistance, joint, notes, morning_entry, updated_at
	) VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
	ON CONFLICT (date) DO UPDATE SET
		m_ready = EXCLUDED.m_ready,
		m_hrv = EXCLUDED.m_hrv,
		oura_rec = EXCLUDED.oura_rec,
		oura_rhr = EXCLUDED.oura_rhr,
		oura_hrv = EXCLUDED.oura_hrv,
		oura_hrv_status = EXCLUDED.oura_hrv_status,
		whoop_rec = EXCLUDED.whoop_rec,
		whoop_rhr = EXCLUDED.whoop_rhr,
		whoop_hrv = EXCLUDED.whoop_hrv,
		steps = EXCLUDED.steps,
		fatigue = EXCLUDED.fatigue,
		resistance = EXCLUDED.resistance,
		joint = EXCLUDED.joint,
		notes = EXCLUDED.notes,
		morning_entry = EXCLUDED.morning_entry,
		updated_at = now()
`

// PostgresEntryStore implements EntryStore on the daily_entries table.
type PostgresEntryStore struct {
	client *pkgpg.Client
}

// NewPostgresEntryStore creates the store. Call Init before use.
func NewPostgresEntryStore(client *pkgpg.Client) *PostgresEntryStore {
	return &PostgresEntryStore{client: client}
}

var _ repository.EntryStore = (*PostgresEntryStore)(nil)

func (s *PostgresEntryStore) Init(ctx context.Context) error {
	return s.client.Migrate(ctx, Migrations())
}

func (s *PostgresEntryStore) Upsert(ctx context.Context, e models.DailyEntry) error {
	if _, err := s.client.Exec(ctx, upsertEntry, entryArgs(e)...); err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.Date, err)
	}
	return nil
}

// UpsertBatch writes all entries in one transaction.
func (s *PostgresEntryStore) UpsertBatch(ctx context.Context, entries []models.DailyEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.client.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(upsertEntry, entryArgs(e)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert entries in batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresEntryStore) Get(ctx context.Context, date string) (models.DailyEntry, error) {
	row := s.client.QueryRow(ctx, `SELECT `+entryColumns+` FROM daily_entries WHERE date = $1::date`, date)
	e, err := scanEntry(row)
	if err != nil {
		if pkgpg.IsNotFound(err) {
			return models.DailyEntry{}, repository.ErrNotFound
		}
		return models.DailyEntry{}, fmt.Errorf("get entry %s: %w", date, err)
	}
	return e, nil
}

func (s *PostgresEntryStore) List(ctx context.Context) ([]models.DailyEntry, error) {
	return s.query(ctx, `SELECT `+entryColumns+` FROM daily_entries ORDER BY date ASC`)
}

// Range returns entries with from <= date <= to. Empty bounds are open.
func (s *PostgresEntryStore) Range(ctx context.Context, from, to string) ([]models.DailyEntry, error) {
	return s.query(ctx, `
		SELECT `+entryColumns+` FROM daily_entries
		WHERE ($1::date IS NULL OR date >= $1::date) AND ($2::date IS NULL OR date <= $2::date)
		ORDER BY date ASC`, nullable(from), nullable(to))
}

func (s *PostgresEntryStore) Delete(ctx context.Context, date string) error {
	tag, err := s.client.Exec(ctx, `DELETE FROM daily_entries WHERE date = $1::date`, date)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", date, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *PostgresEntryStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *PostgresEntryStore) Close() error {
	return nil // pool owned by the caller
}

func (s *PostgresEntryStore) query(ctx context.Context, q string, args ...any) ([]models.DailyEntry, error) {
	rows, err := s.client.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyEntry, 0, 64)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func entryArgs(e models.DailyEntry) []any {
	return []any{
		e.Date, e.MReady, e.MHrv, e.OuraRec, e.OuraRhr, e.OuraHrv, string(e.OuraHrvStatus),
		e.WhoopRec, e.WhoopRhr, e.WhoopHrv, e.Steps, e.Fatigue, normalizeResistance(e.Resistance),
		e.Joint, e.Notes, e.MorningEntry,
	}
}

func scanEntry(row pgx.Row) (models.DailyEntry, error) {
	var (
		e      models.DailyEntry
		status string
	)
	err := row.Scan(
		&e.Date, &e.MReady, &e.MHrv, &e.OuraRec, &e.OuraRhr, &e.OuraHrv, &status,
		&e.WhoopRec, &e.WhoopRhr, &e.WhoopHrv, &e.Steps, &e.Fatigue, &e.Resistance,
		&e.Joint, &e.Notes, &e.MorningEntry,
	)
	e.OuraHrvStatus = models.HRVStatus(status)
	return e, err
}

func normalizeResistance(s string) string {
	if s == "Y" || s == "y" {
		return "Y"
	}
	return "N"
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
