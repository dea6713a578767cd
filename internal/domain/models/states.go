package models

// RecoveryState is a single device vote.
type RecoveryState string

const (
	StateOK       RecoveryState = "ok"
	StateStressed RecoveryState = "stressed"
	StateNeutral  RecoveryState = "neutral"
)

func (r RecoveryState) String() string { return string(r) }

// Majority is the aggregated vote. It requires two agreeing devices.
type Majority string

const (
	MajorityOK       Majority = "ok"
	MajorityStressed Majority = "stressed"
	MajorityMixed    Majority = "mixed"
)

func (m Majority) String() string { return string(m) }

// Matches reports whether a device state equals a decisive majority.
func (m Majority) Matches(s RecoveryState) bool {
	switch m {
	case MajorityOK:
		return s == StateOK
	case MajorityStressed:
		return s == StateStressed
	default:
		return false
	}
}

// FatigueSignal is the subjective fatigue reading mapped onto vote states.
type FatigueSignal string

const (
	FatigueOK       FatigueSignal = "ok"
	FatigueStressed FatigueSignal = "stressed"
	FatigueNeutral  FatigueSignal = "neutral"
	FatigueUnknown  FatigueSignal = "unknown"
)

func (f FatigueSignal) String() string { return string(f) }

// Decisive is true for ok or stressed.
func (f FatigueSignal) Decisive() bool { return f == FatigueOK || f == FatigueStressed }

// State converts a decisive signal to a vote state.
func (f FatigueSignal) State() RecoveryState {
	switch f {
	case FatigueOK:
		return StateOK
	case FatigueStressed:
		return StateStressed
	default:
		return StateNeutral
	}
}

// RecColor is the traffic light.
type RecColor string

const (
	Green  RecColor = "Green"
	Yellow RecColor = "Yellow"
	Red    RecColor = "Red"
)

func (r RecColor) String() string { return string(r) }

// CrashStatus is the five-rung crash ladder, ordered by severity.
type CrashStatus string

const (
	CrashStable     CrashStatus = "Stable"
	CrashVulnerable CrashStatus = "Vulnerable"
	CrashPreCrash   CrashStatus = "Pre-Crash"
	CrashOnset      CrashStatus = "Crash-Onset"
	CrashState      CrashStatus = "Crash-State"
)

func (c CrashStatus) String() string { return string(c) }

// Severity orders the ladder from 0 (Stable) to 4 (Crash-State).
func (c CrashStatus) Severity() int {
	switch c {
	case CrashStable:
		return 0
	case CrashVulnerable:
		return 1
	case CrashPreCrash:
		return 2
	case CrashOnset:
		return 3
	case CrashState:
		return 4
	default:
		return -1
	}
}

// FragilityType explains why the system is vulnerable.
type FragilityType string

const (
	FragilityNone          FragilityType = "None"
	FragilityConsolidation FragilityType = "Consolidation"
	FragilityGlobal        FragilityType = "Global"
	FragilityRecovering    FragilityType = "Recovering"
)

func (f FragilityType) String() string { return string(f) }

// LoadStatus bands the load-memory total.
type LoadStatus string

const (
	LoadCool LoadStatus = "COOL"
	LoadWarm LoadStatus = "WARM"
	LoadHot  LoadStatus = "HOT"
	LoadPeak LoadStatus = "PEAK"
)

func (l LoadStatus) String() string { return string(l) }

// LoadTrend compares load memory with the previous entry.
type LoadTrend string

const (
	LoadRising LoadTrend = "Rising"
	LoadEasing LoadTrend = "Easing"
	LoadSteady LoadTrend = "Steady"
)

func (l LoadTrend) String() string { return string(l) }

// HRVStatus is the Oura nightly HRV label.
type HRVStatus string

const (
	HRVOptimal      HRVStatus = "Optimal"
	HRVGood         HRVStatus = "Good"
	HRVFair         HRVStatus = "Fair"
	HRVPayAttention HRVStatus = "Pay Attention"
	HRVUnknown      HRVStatus = "Unknown"
)

func (h HRVStatus) String() string { return string(h) }

// Valid is true for the four labels a device can report.
func (h HRVStatus) Valid() bool {
	switch h {
	case HRVOptimal, HRVGood, HRVFair, HRVPayAttention:
		return true
	default:
		return false
	}
}

// FlagKind names the rule that raised an outlier flag.
type FlagKind string

const (
	FlagZ   FlagKind = "z"
	FlagAbs FlagKind = "abs"
	FlagPct FlagKind = "pct"
)

func (f FlagKind) String() string { return string(f) }

// Device is a wearable source.
type Device string

const (
	Morpheus Device = "Morpheus"
	Oura     Device = "Oura"
	Whoop    Device = "Whoop"
)

func (d Device) String() string { return string(d) }

// Metric names a tracked numeric field of DailyEntry.
type Metric string

const (
	MetricMReady   Metric = "mReady"
	MetricMHrv     Metric = "mHrv"
	MetricOuraRec  Metric = "ouraRec"
	MetricWhoopRec Metric = "whoopRec"
	MetricWhoopRhr Metric = "whoopRhr"
	MetricOuraRhr  Metric = "ouraRhr"
	MetricOuraHrv  Metric = "ouraHrv"
	MetricWhoopHrv Metric = "whoopHrv"
	MetricSteps    Metric = "steps"
	MetricFatigue  Metric = "fatigue"
	MetricJoint    Metric = "joint"
)

func (m Metric) String() string { return string(m) }

// TrackedMetrics lists the metrics that get a baseline.
var TrackedMetrics = []Metric{
	MetricMReady, MetricMHrv, MetricOuraRec, MetricWhoopRec, MetricWhoopRhr,
	MetricOuraRhr, MetricOuraHrv, MetricWhoopHrv, MetricSteps, MetricFatigue, MetricJoint,
}

// Value reads the metric from an entry.
func (m Metric) Value(e *DailyEntry) *float64 {
	switch m {
	case MetricMReady:
		return e.MReady
	case MetricMHrv:
		return e.MHrv
	case MetricOuraRec:
		return e.OuraRec
	case MetricWhoopRec:
		return e.WhoopRec
	case MetricWhoopRhr:
		return e.WhoopRhr
	case MetricOuraRhr:
		return e.OuraRhr
	case MetricOuraHrv:
		return e.OuraHrv
	case MetricWhoopHrv:
		return e.WhoopHrv
	case MetricSteps:
		return e.Steps
	case MetricFatigue:
		return e.Fatigue
	case MetricJoint:
		return e.Joint
	default:
		return nil
	}
}
