// Package supabase syncs the journal with a hosted Postgres exposed through
// the PostgREST API (/rest/v1).
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/service"
	"TriRecover/internal/service/ratelimit"
	pkghttp "TriRecover/pkg/http"
)

// ErrDisabled is returned when no URL or key is configured.
var ErrDisabled = errors.New("cloud sync is not configured")

// Config configures the client.
type Config struct {
	URL       string
	Key       string
	Table     string
	Timeout   time.Duration
	RPS       float64
	FailAfter uint32
	OpenFor   time.Duration
}

// Client implements service.CloudSync.
type Client struct {
	cfg     Config
	http    *pkghttp.Client
	breaker *gobreaker.CircuitBreaker
	limiter *ratelimit.Limiter
	host    string
}

var _ service.CloudSync = (*Client)(nil)

// NewClient builds the client. A config without URL or key gives a client
// whose Enabled is false and whose calls return ErrDisabled.
func NewClient(cfg Config, opts ...pkghttp.ClientOption) *Client {
	if cfg.Table == "" {
		cfg.Table = "daily_entries"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	if cfg.FailAfter == 0 {
		cfg.FailAfter = 3
	}

	httpOpts := append([]pkghttp.ClientOption{
		pkghttp.WithBaseURL(cfg.URL),
		pkghttp.WithTimeout(cfg.Timeout),
		pkghttp.WithHeader("apikey", cfg.Key),
		pkghttp.WithHeader("Authorization", "Bearer "+cfg.Key),
		pkghttp.WithHeader("Accept", "application/json"),
	}, opts...)

	host := cfg.URL
	if u, err := url.Parse(cfg.URL); err == nil && u.Host != "" {
		host = u.Host
	}

	st := gobreaker.Settings{Name: "supabase"}
	failAfter := cfg.FailAfter
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= failAfter }
	st.Timeout = cfg.OpenFor
	// a 4xx means the request was wrong, not that the service is down
	st.IsSuccessful = func(err error) bool {
		var se *pkghttp.StatusError
		return err == nil || (errors.As(err, &se) && se.Code < 500)
	}

	return &Client{
		cfg:     cfg,
		http:    pkghttp.NewClient(httpOpts...),
		breaker: gobreaker.NewCircuitBreaker(st),
		limiter: ratelimit.New(cfg.RPS, 1),
		host:    host,
	}
}

func (c *Client) Enabled() bool { return c.cfg.URL != "" && c.cfg.Key != "" }

// Pull fetches every row, ascending by date.
func (c *Client) Pull(ctx context.Context) ([]models.DailyEntry, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	var rows []row
	err := c.call(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		Path:   "/rest/v1/" + c.cfg.Table,
		QueryParams: map[string][]string{
			"select": {"*"},
			"order":  {"date.asc"},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", c.cfg.Table, err)
	}

	out := make([]models.DailyEntry, 0, len(rows))
	for _, r := range rows {
		if r.Date == "" {
			continue
		}
		out = append(out, r.entry())
	}
	return models.SortEntries(out), nil
}

// Push upserts entries by date.
func (c *Client) Push(ctx context.Context, entries []models.DailyEntry) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if len(entries) == 0 {
		return nil
	}
	rows := make([]row, len(entries))
	for i, e := range entries {
		rows[i] = fromEntry(e)
	}
	err := c.call(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodPost,
		Path:        "/rest/v1/" + c.cfg.Table,
		QueryParams: map[string][]string{"on_conflict": {"date"}},
		Headers:     map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"},
		Body:        rows,
	}, nil)
	if err != nil {
		return fmt.Errorf("push %d entries: %w", len(entries), err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, opts *pkghttp.RequestOptions, dest any) error {
	if err := c.limiter.Wait(ctx, c.host); err != nil {
		return err
	}
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.http.SendAndParse(ctx, opts, dest)
	})
	return err
}

// row is the snake_case table shape.
type row struct {
	Date          string   `json:"date"`
	MReady        *float64 `json:"m_ready"`
	MHrv          *float64 `json:"m_hrv"`
	OuraRec       *float64 `json:"oura_rec"`
	OuraRhr       *float64 `json:"oura_rhr"`
	OuraHrv       *float64 `json:"oura_hrv"`
	OuraHrvStatus *string  `json:"oura_hrv_status"`
	WhoopRec      *float64 `json:"whoop_rec"`
	WhoopRhr      *float64 `json:"whoop_rhr"`
	WhoopHrv      *float64 `json:"whoop_hrv"`
	Steps         *float64 `json:"steps"`
	Fatigue       *float64 `json:"fatigue"`
	Resistance    *string  `json:"resistance"`
	Joint         *float64 `json:"joint"`
	Notes         *string  `json:"notes"`
	MorningEntry  *bool    `json:"morning_entry"`
}

func (r row) entry() models.DailyEntry {
	e := models.DailyEntry{
		Date:       r.Date,
		MReady:     r.MReady,
		MHrv:       r.MHrv,
		OuraRec:    r.OuraRec,
		OuraRhr:    r.OuraRhr,
		OuraHrv:    r.OuraHrv,
		WhoopRec:   r.WhoopRec,
		WhoopRhr:   r.WhoopRhr,
		WhoopHrv:   r.WhoopHrv,
		Steps:      r.Steps,
		Fatigue:    r.Fatigue,
		Joint:      r.Joint,
		Resistance: "N",
	}
	if r.Resistance != nil && (*r.Resistance == "Y" || *r.Resistance == "y") {
		e.Resistance = "Y"
	}
	if r.Notes != nil {
		e.Notes = *r.Notes
	}
	if r.OuraHrvStatus != nil && models.HRVStatus(*r.OuraHrvStatus).Valid() {
		e.OuraHrvStatus = models.HRVStatus(*r.OuraHrvStatus)
	}
	if r.MorningEntry != nil {
		e.MorningEntry = *r.MorningEntry
	}
	return e
}

func fromEntry(e models.DailyEntry) row {
	res := e.Resistance
	notes := e.Notes
	morning := e.MorningEntry
	r := row{
		Date:         e.Date,
		MReady:       e.MReady,
		MHrv:         e.MHrv,
		OuraRec:      e.OuraRec,
		OuraRhr:      e.OuraRhr,
		OuraHrv:      e.OuraHrv,
		WhoopRec:     e.WhoopRec,
		WhoopRhr:     e.WhoopRhr,
		WhoopHrv:     e.WhoopHrv,
		Steps:        e.Steps,
		Fatigue:      e.Fatigue,
		Resistance:   &res,
		Joint:        e.Joint,
		Notes:        &notes,
		MorningEntry: &morning,
	}
	if e.OuraHrvStatus != "" {
		s := string(e.OuraHrvStatus)
		r.OuraHrvStatus = &s
	}
	return r
}
