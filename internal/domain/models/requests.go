package models

// Requests for the HTTP and Kafka entry surfaces. Kept in domain so both
// transports validate the same ranges.

// EntryRequest is the write shape of a DailyEntry. MorningEntry is a pointer so
// the use case can tell "not supplied" from false.
type EntryRequest struct {
	Date string `param:"date" json:"date" validate:"required,datetime=2006-01-02"`

	MReady *float64 `json:"mReady" validate:"omitempty,gte=0,lte=100"`
	MHrv   *float64 `json:"mHrv" validate:"omitempty,gte=0,lte=400"`

	OuraRec       *float64 `json:"ouraRec" validate:"omitempty,gte=0,lte=100"`
	OuraRhr       *float64 `json:"ouraRhr" validate:"omitempty,gte=20,lte=200"`
	OuraHrv       *float64 `json:"ouraHrv" validate:"omitempty,gte=0,lte=400"`
	OuraHrvStatus string   `json:"ouraHrvStatus" validate:"omitempty,oneof=Optimal Good Fair 'Pay Attention'"`

	WhoopRec *float64 `json:"whoopRec" validate:"omitempty,gte=0,lte=100"`
	WhoopRhr *float64 `json:"whoopRhr" validate:"omitempty,gte=20,lte=200"`
	WhoopHrv *float64 `json:"whoopHrv" validate:"omitempty,gte=0,lte=400"`

	Steps        *float64 `json:"steps" validate:"omitempty,gte=0"`
	Fatigue      *float64 `json:"fatigue" validate:"omitempty,gte=1,lte=10"`
	Resistance   string   `json:"resistance" default:"N" validate:"oneof=Y N y n"`
	Joint        *float64 `json:"joint" validate:"omitempty,gte=0,lte=10"`
	Notes        string   `json:"notes" validate:"max=2000"`
	MorningEntry *bool    `json:"morningEntry"`
}

// ToEntry converts the request without applying reference-date defaults.
func (r *EntryRequest) ToEntry() DailyEntry {
	e := DailyEntry{
		Date:          r.Date,
		MReady:        r.MReady,
		MHrv:          r.MHrv,
		OuraRec:       r.OuraRec,
		OuraRhr:       r.OuraRhr,
		OuraHrv:       r.OuraHrv,
		OuraHrvStatus: HRVStatus(r.OuraHrvStatus),
		WhoopRec:      r.WhoopRec,
		WhoopRhr:      r.WhoopRhr,
		WhoopHrv:      r.WhoopHrv,
		Steps:         r.Steps,
		Fatigue:       r.Fatigue,
		Resistance:    r.Resistance,
		Joint:         r.Joint,
		Notes:         r.Notes,
	}
	if r.MorningEntry != nil {
		e.MorningEntry = *r.MorningEntry
	}
	return e.Clone()
}

type DateQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

type RangeQuery struct {
	From string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

type TimelineQuery struct {
	From string `query:"from" validate:"required,datetime=2006-01-02"`
	To   string `query:"to" validate:"required,datetime=2006-01-02"`
}

type ArchiveQuery struct {
	From  string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To    string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit int    `query:"limit" default:"90" validate:"gte=1,lte=1000"`
}

type SettingsRequest struct {
	BaselineDays int    `json:"baselineDays" default:"14" validate:"gte=7,lte=21"`
	Mode         string `json:"mode" default:"adt" validate:"oneof=standard adt"`
}
