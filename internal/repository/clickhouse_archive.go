package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/repository"
	pkgch "TriRecover/pkg/clickhouse"
)

// ClickHouseArchive implements AssessmentArchive. Rows are keyed by date in a
// ReplacingMergeTree so the newest computation for a day wins on merge.
type ClickHouseArchive struct {
	client *pkgch.Client
	table  string
}

// NewClickHouseArchive creates the archive over table.
func NewClickHouseArchive(client *pkgch.Client, table string) *ClickHouseArchive {
	return &ClickHouseArchive{client: client, table: table}
}

var _ repository.AssessmentArchive = (*ClickHouseArchive)(nil)

func (s *ClickHouseArchive) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		date Date,
		event_id String,
		mode LowCardinality(String),
		rec LowCardinality(String),
		label LowCardinality(String),
		confidence Float64,
		majority LowCardinality(String),
		crash_status LowCardinality(String),
		crash_score Float64,
		load_memory Float64,
		load_status LowCardinality(String),
		fragility LowCardinality(String),
		outliers UInt8,
		computed_at DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(computed_at)
	ORDER BY date`, s.table)
	return s.client.InitSchema(ctx, []string{ddl})
}

func (s *ClickHouseArchive) StoreBatch(ctx context.Context, evs []models.AssessmentEvent) error {
	if len(evs) == 0 {
		return nil
	}
	// Multi-row VALUES keeps round-trips down.
	const chunkSize = 1000
	for start := 0; start < len(evs); start += chunkSize {
		end := start + chunkSize
		if end > len(evs) {
			end = len(evs)
		}

		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*14)
		for _, ev := range evs[start:end] {
			day, err := time.Parse(models.DateLayout, ev.Date)
			if err != nil {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				day,
				ev.ID,
				string(ev.Mode),
				string(ev.Rec),
				ev.Label,
				ev.Confidence,
				string(ev.Majority),
				string(ev.CrashStatus),
				ev.CrashScore,
				ev.LoadMemory,
				string(ev.LoadStatus),
				string(ev.Fragility),
				uint8(ev.Outliers),
				ev.ComputedAt.UTC(),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf(`INSERT INTO %s (date, event_id, mode, rec, label, confidence, majority, crash_status,
			crash_score, load_memory, load_status, fragility, outliers, computed_at) VALUES %s`,
			s.table, strings.Join(values, ","))
		if _, err := s.client.DB().ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert assessments: %w", err)
		}
	}
	return nil
}

// Query returns the latest summary per date in [from, to], newest first.
func (s *ClickHouseArchive) Query(ctx context.Context, from, to string, limit int) ([]models.AssessmentEvent, error) {
	fromDay, toDay, err := archiveBounds(from, to)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT date, event_id, mode, rec, label, confidence, majority, crash_status,
		crash_score, load_memory, load_status, fragility, outliers, computed_at
		FROM %s FINAL
		WHERE date >= ? AND date <= ?
		ORDER BY date DESC
		LIMIT ?`, s.table)
	rows, err := s.client.DB().QueryContext(ctx, q, fromDay, toDay, limit)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	var out []models.AssessmentEvent
	for rows.Next() {
		var (
			ev                                                models.AssessmentEvent
			day                                               time.Time
			mode, rec, majority, crash, loadStatus, fragility string
			outliers                                          uint8
		)
		if err := rows.Scan(&day, &ev.ID, &mode, &rec, &ev.Label, &ev.Confidence, &majority, &crash,
			&ev.CrashScore, &ev.LoadMemory, &loadStatus, &fragility, &outliers, &ev.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		ev.Date = day.Format(models.DateLayout)
		ev.Mode = models.Mode(mode)
		ev.Rec = models.RecColor(rec)
		ev.Majority = models.Majority(majority)
		ev.CrashStatus = models.CrashStatus(crash)
		ev.LoadStatus = models.LoadStatus(loadStatus)
		ev.Fragility = models.FragilityType(fragility)
		ev.Outliers = int(outliers)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *ClickHouseArchive) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseArchive) Close() error {
	return nil // client owned by the caller
}

func archiveBounds(from, to string) (time.Time, time.Time, error) {
	lo := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2149, 6, 6, 0, 0, 0, 0, time.UTC) // ClickHouse Date upper bound
	var err error
	if from != "" {
		if lo, err = time.Parse(models.DateLayout, from); err != nil {
			return lo, hi, fmt.Errorf("invalid from date %q: %w", from, err)
		}
	}
	if to != "" {
		if hi, err = time.Parse(models.DateLayout, to); err != nil {
			return lo, hi, fmt.Errorf("invalid to date %q: %w", to, err)
		}
	}
	return lo, hi, nil
}
