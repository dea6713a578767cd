package assessment

import "TriRecover/internal/domain/models"

// Thresholds is the full cutoff and penalty table for one scoring mode.
type Thresholds struct {
	ZOutlier   float64
	RHRAbs     float64
	HRVDropPct float64
	RecDropAbs float64

	FatigueHigh float64
	FatigueLow  float64
	JointWarn   float64

	DisagreementPenalty    float64
	OutlierPenalty         float64
	FatigueMismatchPenalty float64
	TrainingPenalty        float64
	StepsSwingPenalty      float64
}

var (
	adtThresholds = Thresholds{
		ZOutlier:               1.6,
		RHRAbs:                 6,
		HRVDropPct:             0.18,
		RecDropAbs:             10,
		FatigueHigh:            6,
		FatigueLow:             4,
		JointWarn:              4,
		DisagreementPenalty:    25,
		OutlierPenalty:         25,
		FatigueMismatchPenalty: 25,
		TrainingPenalty:        10,
		StepsSwingPenalty:      10,
	}

	standardThresholds = Thresholds{
		ZOutlier:               2.0,
		RHRAbs:                 8,
		HRVDropPct:             0.22,
		RecDropAbs:             12,
		FatigueHigh:            7,
		FatigueLow:             4,
		JointWarn:              5,
		DisagreementPenalty:    20,
		OutlierPenalty:         20,
		FatigueMismatchPenalty: 20,
		TrainingPenalty:        8,
		StepsSwingPenalty:      8,
	}
)

// ThresholdsFor returns the table for mode. Anything but adt scores as standard.
func ThresholdsFor(mode models.Mode) Thresholds {
	if mode == models.ModeADT {
		return adtThresholds
	}
	return standardThresholds
}

// Fixed constants shared by both modes.
const (
	voteDelta        = 2.0
	voteAbsOK        = 70.0
	voteAbsStressed  = 45.0
	whoopProxyOffset = 120.0

	stepsSwingRatio = 0.30

	redBelow    = 55.0
	yellowBelow = 80.0

	highStepsFloor      = 9500.0
	stepsThresholdRatio = 1.2
	loadCap             = 1.5

	globalFatigue = 8.0
)
