// Package exchange converts entries to and from the CSV and JSON export
// formats. Columns are matched by header name so older exports that lack
// the HRV columns still import.
package exchange

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"TriRecover/internal/domain/models"
)

// Format is an import/export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Header is the full CSV column order written on export.
var Header = []string{
	"Date", "MorpheusReady", "MorpheusHRV", "OuraRecovery", "WhoopRecovery",
	"WhoopRHR", "OuraRHR", "OuraHRV", "WhoopHRV", "OuraHRVStatus",
	"Steps", "Fatigue", "Resistance", "JointWarn", "Notes",
}

var (
	ErrNotArray      = errors.New("json import must be an array of entries")
	ErrMissingHeader = errors.New("csv header must contain a Date column")
	ErrUnknownFormat = errors.New("unknown format")
	ErrMalformed     = errors.New("malformed input")
)

// RowError is a skipped input row. Line is 1-based and counts the header.
type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

// Result is the outcome of a decode: valid entries plus the rows that were skipped.
type Result struct {
	Entries []models.DailyEntry `json:"entries"`
	Skipped []RowError          `json:"skipped,omitempty"`
}

// ParseFormat accepts "csv" or "json", defaulting to CSV when empty.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv", "text/csv":
		return FormatCSV, nil
	case "json", "application/json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Sniff guesses the format of body: a leading '[' means JSON.
func Sniff(body []byte) Format {
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		return FormatJSON
	}
	return FormatCSV
}

// Decode reads entries in the given format.
func Decode(format Format, r io.Reader) (Result, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatJSON:
		return ReadJSON(r)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Encode writes entries in the given format, sorted by date.
func Encode(format Format, w io.Writer, entries []models.DailyEntry) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatJSON:
		return WriteJSON(w, entries)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteCSV writes the header followed by one row per entry.
func WriteCSV(w io.Writer, entries []models.DailyEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range models.SortEntries(entries) {
		row := []string{
			e.Date,
			formatNum(e.MReady), formatNum(e.MHrv), formatNum(e.OuraRec), formatNum(e.WhoopRec),
			formatNum(e.WhoopRhr), formatNum(e.OuraRhr), formatNum(e.OuraHrv), formatNum(e.WhoopHrv),
			string(e.OuraHrvStatus),
			formatNum(e.Steps), formatNum(e.Fatigue), resistance(e.Resistance), formatNum(e.Joint),
			e.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows by header name. Rows with a bad date or number are
// skipped and reported; a later row for the same date replaces an earlier one.
func ReadCSV(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return Result{Entries: []models.DailyEntry{}}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: read csv header: %v", ErrMalformed, err)
	}
	cols := make(map[string]int, len(head))
	for i, h := range head {
		cols[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	if _, ok := cols["Date"]; !ok {
		return Result{}, ErrMissingHeader
	}

	var res Result
	parsed := make([]models.DailyEntry, 0, 64)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err.Error()})
			continue
		}
		if blank(rec) {
			continue
		}
		e, err := decodeRow(cols, rec)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: line, Err: err.Error()})
			continue
		}
		parsed = append(parsed, e)
	}
	res.Entries = models.MergeEntries(nil, parsed)
	return res, nil
}

func decodeRow(cols map[string]int, rec []string) (models.DailyEntry, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	e := models.DailyEntry{
		Date:       get("Date"),
		Resistance: resistance(get("Resistance")),
		Notes:      get("Notes"),
	}
	if _, err := time.Parse(models.DateLayout, e.Date); err != nil {
		return e, fmt.Errorf("invalid date %q", e.Date)
	}

	fields := []struct {
		col string
		dst **float64
	}{
		{"MorpheusReady", &e.MReady},
		{"MorpheusHRV", &e.MHrv},
		{"OuraRecovery", &e.OuraRec},
		{"WhoopRecovery", &e.WhoopRec},
		{"WhoopRHR", &e.WhoopRhr},
		{"OuraRHR", &e.OuraRhr},
		{"OuraHRV", &e.OuraHrv},
		{"WhoopHRV", &e.WhoopHrv},
		{"Steps", &e.Steps},
		{"Fatigue", &e.Fatigue},
		{"JointWarn", &e.Joint},
	}
	for _, f := range fields {
		v, err := parseNum(get(f.col))
		if err != nil {
			return e, fmt.Errorf("%s: %w", f.col, err)
		}
		*f.dst = v
	}

	if s := models.HRVStatus(get("OuraHRVStatus")); s != "" {
		if !s.Valid() {
			return e, fmt.Errorf("OuraHRVStatus: unknown label %q", s)
		}
		e.OuraHrvStatus = s
	}
	return e, nil
}

// WriteJSON writes an indented array.
func WriteJSON(w io.Writer, entries []models.DailyEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(models.SortEntries(entries)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ReadJSON decodes an array of entries. Entries without a valid date are skipped.
func ReadJSON(r io.Reader) (Result, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Result{}, ErrNotArray
		}
		return Result{}, fmt.Errorf("%w: decode json: %v", ErrMalformed, err)
	}

	var res Result
	parsed := make([]models.DailyEntry, 0, len(raw))
	for i, msg := range raw {
		var e models.DailyEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: i + 1, Err: err.Error()})
			continue
		}
		if _, err := time.Parse(models.DateLayout, e.Date); err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: i + 1, Err: fmt.Sprintf("invalid date %q", e.Date)})
			continue
		}
		e.Resistance = resistance(e.Resistance)
		parsed = append(parsed, e)
	}
	res.Entries = models.MergeEntries(nil, parsed)
	return res, nil
}

func parseNum(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return &v, nil
}

func formatNum(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// resistance normalizes to Y or N.
func resistance(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "Y") {
		return "Y"
	}
	return "N"
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
