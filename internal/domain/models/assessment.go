package models

import "time"

// BaselineStats summarizes one metric over the trailing window.
type BaselineStats struct {
	Mean *float64 `json:"mean"`
	SD   *float64 `json:"sd"`
	N    int      `json:"n"`
}

// Baselines maps each tracked metric to its window statistics.
type Baselines map[Metric]BaselineStats

// Mean returns the metric mean or nil.
func (b Baselines) Mean(m Metric) *float64 { return b[m].Mean }

// OutlierFlag marks a metric that left its baseline band.
type OutlierFlag struct {
	Field Metric   `json:"field"`
	Kind  FlagKind `json:"kind"`
	Z     *float64 `json:"z,omitempty"`
	Hint  string   `json:"hint"`
}

// Vote is one device's recovery state for the day.
type Vote struct {
	Device Device        `json:"device"`
	Signal string        `json:"signal"`
	Score  float64       `json:"score"`
	State  RecoveryState `json:"state"`
}

// LoadMemory is the decaying accumulator of recent high-step days.
type LoadMemory struct {
	Total         float64    `json:"total"`
	Heat          [3]float64 `json:"heat"` // day-2, day-1, day0
	Status        LoadStatus `json:"status"`
	Trend         LoadTrend  `json:"trend"`
	ClearanceRate float64    `json:"clearanceRate"`
	Threshold     float64    `json:"threshold"`
}

// DayAssessment is the full derived view of one day.
type DayAssessment struct {
	Date string `json:"date"`
	Mode Mode   `json:"mode"`

	Flags           []OutlierFlag `json:"flags"`
	Votes           []Vote        `json:"votes"`
	Majority        Majority      `json:"majority"`
	FatigueSignal   FatigueSignal `json:"fatigueSignal"`
	Disagreement    bool          `json:"disagreement"`
	FatigueMismatch bool          `json:"fatigueMismatch"`
	Confidence      float64       `json:"confidence"`

	OddOneOut *Device `json:"oddOneOut,omitempty"`
	OddWhy    string  `json:"oddWhy,omitempty"`

	Rec     RecColor `json:"rec"`
	RecText string   `json:"recText"`
	Plan    []string `json:"plan"`
	Why     []string `json:"why"`
	Insight string   `json:"insight,omitempty"`

	FragilityType FragilityType `json:"fragilityType"`
	SignalTension bool          `json:"signalTension"`
	Mantra        string        `json:"mantra"`
	ScoutCheck    string        `json:"scoutCheck"`

	CrashScore     float64     `json:"crashScore"`
	CrashScoreRaw  float64     `json:"crashScoreRaw"`
	CrashStatus    CrashStatus `json:"crashStatus"`
	Load           LoadMemory  `json:"load"`
	IntensityReady bool        `json:"intensityReady"`
	LoadStacking   bool        `json:"loadStacking"`

	OuraHrvStatus HRVStatus `json:"ouraHrvStatus"`
	CycleLabel    string    `json:"cycleLabel,omitempty"`
}

// VoteLabel is the headline state shown next to the recommendation.
func (a *DayAssessment) VoteLabel() string {
	if a.CycleLabel != "" {
		return "POST-REGULATION DIP"
	}
	switch a.Majority {
	case MajorityOK:
		return "REGULATED"
	case MajorityMixed:
		return "TRANSITIONAL"
	case MajorityStressed:
		return "DYSREGULATED"
	default:
		return ""
	}
}

// AssessmentEvent is the compact record published after an entry changes.
type AssessmentEvent struct {
	ID          string        `json:"id"`
	Date        string        `json:"date"`
	Mode        Mode          `json:"mode"`
	Rec         RecColor      `json:"rec"`
	Label       string        `json:"label"`
	Confidence  float64       `json:"confidence"`
	Majority    Majority      `json:"majority"`
	CrashStatus CrashStatus   `json:"crashStatus"`
	CrashScore  float64       `json:"crashScore"`
	LoadMemory  float64       `json:"loadMemory"`
	LoadStatus  LoadStatus    `json:"loadStatus"`
	Fragility   FragilityType `json:"fragility"`
	Outliers    int           `json:"outliers"`
	ComputedAt  time.Time     `json:"computedAt"`
}

// Summarize builds the event form of an assessment.
func (a *DayAssessment) Summarize(id string, at time.Time) AssessmentEvent {
	fields := make(map[Metric]struct{}, len(a.Flags))
	for _, f := range a.Flags {
		fields[f.Field] = struct{}{}
	}
	return AssessmentEvent{
		ID:          id,
		Date:        a.Date,
		Mode:        a.Mode,
		Rec:         a.Rec,
		Label:       a.VoteLabel(),
		Confidence:  a.Confidence,
		Majority:    a.Majority,
		CrashStatus: a.CrashStatus,
		CrashScore:  a.CrashScore,
		LoadMemory:  a.Load.Total,
		LoadStatus:  a.Load.Status,
		Fragility:   a.FragilityType,
		Outliers:    len(fields),
		ComputedAt:  at,
	}
}
