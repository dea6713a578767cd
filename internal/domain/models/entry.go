package models

import (
	"sort"
	"time"
)

// DateLayout is the calendar key format used for every entry.
const DateLayout = "2006-01-02"

// DailyEntry is one calendar day of device readings and manual logs.
// Nil pointers mean "not recorded".
type DailyEntry struct {
	Date string `json:"date"`

	MReady *float64 `json:"mReady"`
	MHrv   *float64 `json:"mHrv"`

	OuraRec       *float64  `json:"ouraRec"`
	OuraRhr       *float64  `json:"ouraRhr"`
	OuraHrv       *float64  `json:"ouraHrv"`
	OuraHrvStatus HRVStatus `json:"ouraHrvStatus,omitempty"`

	WhoopRec *float64 `json:"whoopRec"`
	WhoopRhr *float64 `json:"whoopRhr"`
	WhoopHrv *float64 `json:"whoopHrv"`

	Steps        *float64 `json:"steps"`
	Fatigue      *float64 `json:"fatigue"`
	Resistance   string   `json:"resistance"`
	Joint        *float64 `json:"joint"`
	Notes        string   `json:"notes"`
	MorningEntry bool     `json:"morningEntry"`
}

// Trained reports whether resistance training was logged.
func (e *DailyEntry) Trained() bool { return e.Resistance == "Y" }

// StepsPending is true when steps are not yet known for the day.
func (e *DailyEntry) StepsPending() bool { return e.MorningEntry || e.Steps == nil }

// Day parses the entry date.
func (e *DailyEntry) Day() (time.Time, error) {
	return time.Parse(DateLayout, e.Date)
}

// Clone returns a deep copy so callers never share pointer fields.
func (e DailyEntry) Clone() DailyEntry {
	out := e
	out.MReady = cloneFloat(e.MReady)
	out.MHrv = cloneFloat(e.MHrv)
	out.OuraRec = cloneFloat(e.OuraRec)
	out.OuraRhr = cloneFloat(e.OuraRhr)
	out.OuraHrv = cloneFloat(e.OuraHrv)
	out.WhoopRec = cloneFloat(e.WhoopRec)
	out.WhoopRhr = cloneFloat(e.WhoopRhr)
	out.WhoopHrv = cloneFloat(e.WhoopHrv)
	out.Steps = cloneFloat(e.Steps)
	out.Fatigue = cloneFloat(e.Fatigue)
	out.Joint = cloneFloat(e.Joint)
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// SortEntries returns a copy of entries ordered ascending by date.
func SortEntries(entries []DailyEntry) []DailyEntry {
	out := make([]DailyEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// IndexOf returns the position of date in a sorted slice or -1.
func IndexOf(sorted []DailyEntry, date string) int {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Date >= date })
	if i < len(sorted) && sorted[i].Date == date {
		return i
	}
	return -1
}

// MergeEntries overlays incoming onto base by date; incoming wins on collision.
// The result is sorted ascending.
func MergeEntries(base, incoming []DailyEntry) []DailyEntry {
	byDate := make(map[string]DailyEntry, len(base)+len(incoming))
	for _, e := range base {
		byDate[e.Date] = e
	}
	for _, e := range incoming {
		byDate[e.Date] = e
	}
	out := make([]DailyEntry, 0, len(byDate))
	for _, e := range byDate {
		out = append(out, e)
	}
	return SortEntries(out)
}
