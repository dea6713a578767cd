package assessment

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TriRecover/internal/domain/models"
)

func day(i int) string {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format(models.DateLayout)
}

// steadyHistory alternates every metric around a fixed mean so that means are
// exact and standard deviations are wide enough to keep small moves unflagged.
// Means: mReady 70, ouraRec 75, whoopRec 70, mHrv 60, RHR 55, steps 8000.
func steadyHistory(n int) []models.DailyEntry {
	out := make([]models.DailyEntry, 0, n)
	for i := 0; i < n; i++ {
		s := -1.0
		if i%2 == 1 {
			s = 1
		}
		out = append(out, models.DailyEntry{
			Date:       day(i),
			MReady:     models.Float(70 + 5*s),
			MHrv:       models.Float(60 + 5*s),
			OuraRec:    models.Float(75 + 5*s),
			OuraRhr:    models.Float(55 + 2*s),
			WhoopRec:   models.Float(70 + 5*s),
			WhoopRhr:   models.Float(55 + 2*s),
			Steps:      models.Float(8000 + 1000*s),
			Fatigue:    models.Float(3.5 + 0.5*s),
			Joint:      models.Float(1),
			Resistance: "N",
		})
	}
	return out
}

func goodEntry(date string) models.DailyEntry {
	return models.DailyEntry{
		Date:       date,
		MReady:     models.Float(75),
		MHrv:       models.Float(60),
		OuraRec:    models.Float(80),
		OuraRhr:    models.Float(55),
		WhoopRec:   models.Float(75),
		WhoopRhr:   models.Float(55),
		Steps:      models.Float(8000),
		Fatigue:    models.Float(3),
		Joint:      models.Float(1),
		Resistance: "N",
	}
}

func assessWith(entry models.DailyEntry, history []models.DailyEntry, mode models.Mode) models.DayAssessment {
	return Assess(Input{
		Entry:    entry,
		History:  append(history, entry),
		Settings: models.AppSettings{BaselineDays: 14, Mode: mode},
		RefDate:  "2030-01-01",
	})
}

func TestComputeBaselines_ExcludesTargetAndHonorsWindow(t *testing.T) {
	history := make([]models.DailyEntry, 0, 20)
	for i := 0; i < 20; i++ {
		history = append(history, models.DailyEntry{Date: day(i), MReady: models.Float(float64(i))})
	}
	history[19].MReady = models.Float(1000)

	base := ComputeBaselines(history, 7, day(19))
	stats := base[models.MetricMReady]

	require.NotNil(t, stats.Mean)
	assert.Equal(t, 7, stats.N)
	assert.InDelta(t, 15.0, *stats.Mean, 1e-9) // mean of 12..18
}

func TestComputeBaselines_AbsentDateUsesWholeHistory(t *testing.T) {
	history := steadyHistory(4)
	base := ComputeBaselines(history, 14, "2099-01-01")

	assert.Equal(t, 4, base[models.MetricMReady].N)
	assert.Nil(t, base[models.MetricOuraHrv].Mean)
	assert.Nil(t, base[models.MetricOuraHrv].SD)
}

func TestComputeBaselines_SDNeedsTwoSamples(t *testing.T) {
	history := []models.DailyEntry{
		{Date: day(0), MReady: models.Float(70)},
		{Date: day(1), MReady: models.Float(80)},
	}
	base := ComputeBaselines(history, 14, day(1))

	require.NotNil(t, base[models.MetricMReady].Mean)
	assert.Nil(t, base[models.MetricMReady].SD)
}

func TestAssess_Idempotent(t *testing.T) {
	history := steadyHistory(14)
	in := Input{
		Entry:    goodEntry(day(14)),
		History:  append(history, goodEntry(day(14))),
		Settings: models.DefaultSettings(),
		RefDate:  day(14),
	}
	first := Assess(in)
	second := Assess(in)

	assert.Equal(t, first, second)
}

func TestAssess_DoesNotMutateHistory(t *testing.T) {
	history := []models.DailyEntry{goodEntry(day(3)), goodEntry(day(1)), goodEntry(day(2))}
	Assess(Input{Entry: goodEntry(day(3)), History: history, Settings: models.DefaultSettings(), RefDate: day(3)})

	assert.Equal(t, day(3), history[0].Date)
	assert.Equal(t, day(1), history[1].Date)
}

func TestMajorityOf_RequiresTwoVotes(t *testing.T) {
	tests := []struct {
		name   string
		states []models.RecoveryState
		want   models.Majority
	}{
		{"split", []models.RecoveryState{models.StateOK, models.StateStressed}, models.MajorityMixed},
		{"split with neutral", []models.RecoveryState{models.StateOK, models.StateStressed, models.StateNeutral}, models.MajorityMixed},
		{"single ok", []models.RecoveryState{models.StateOK}, models.MajorityMixed},
		{"two ok", []models.RecoveryState{models.StateOK, models.StateOK, models.StateStressed}, models.MajorityOK},
		{"two stressed", []models.RecoveryState{models.StateStressed, models.StateNeutral, models.StateStressed}, models.MajorityStressed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			votes := make([]models.Vote, 0, len(tt.states))
			for _, s := range tt.states {
				votes = append(votes, models.Vote{State: s})
			}
			assert.Equal(t, tt.want, MajorityOf(votes))
		})
	}
}

func TestClassify_BaselineThenAbsolute(t *testing.T) {
	mean := 70.0
	assert.Equal(t, models.StateOK, classify(72, &mean))
	assert.Equal(t, models.StateStressed, classify(68, &mean))
	assert.Equal(t, models.StateNeutral, classify(71, &mean))

	assert.Equal(t, models.StateOK, classify(70, nil))
	assert.Equal(t, models.StateStressed, classify(45, nil))
	assert.Equal(t, models.StateNeutral, classify(60, nil))
}

func TestCastVotes_WhoopProxyOnlyWithoutRecovery(t *testing.T) {
	e := models.DailyEntry{Date: day(0), WhoopRhr: models.Float(50)}
	votes := CastVotes(&e, models.Baselines{})
	require.Len(t, votes, 1)
	assert.Equal(t, "whoopRhrProxy", votes[0].Signal)
	assert.Equal(t, 70.0, votes[0].Score)

	e.WhoopRec = models.Float(40)
	votes = CastVotes(&e, models.Baselines{})
	require.Len(t, votes, 1)
	assert.Equal(t, string(models.MetricWhoopRec), votes[0].Signal)
}

func TestConfidence_MonotonicInOutliers(t *testing.T) {
	e := goodEntry(day(14))
	base := ComputeBaselines(steadyHistory(14), 14, e.Date)
	for _, mode := range []models.Mode{models.ModeADT, models.ModeStandard} {
		th := ThresholdsFor(mode)
		for n := 0; n < 5; n++ {
			assert.LessOrEqual(t,
				Confidence(&e, base, th, n+1, false, false),
				Confidence(&e, base, th, n, false, false))
		}
	}
}

func TestConfidence_TrainingPenaltyIsExact(t *testing.T) {
	history := steadyHistory(14)
	for _, mode := range []models.Mode{models.ModeADT, models.ModeStandard} {
		rest := assessWith(goodEntry(day(14)), history, mode)

		trained := goodEntry(day(14))
		trained.Resistance = "Y"
		train := assessWith(trained, history, mode)

		assert.Equal(t, 100.0, rest.Confidence, mode)
		assert.InDelta(t, ThresholdsFor(mode).TrainingPenalty, rest.Confidence-train.Confidence, 1e-9, mode)
	}
}

func TestAssess_HarmonizedDay(t *testing.T) {
	a := assessWith(goodEntry(day(14)), steadyHistory(14), models.ModeADT)

	assert.Empty(t, a.Flags)
	assert.Equal(t, models.MajorityOK, a.Majority)
	assert.False(t, a.Disagreement)
	assert.Equal(t, models.Green, a.Rec)
	assert.Equal(t, "Maintain Rhythm — Go Wolf", a.RecText)
	assert.Equal(t, models.CrashStable, a.CrashStatus)
	assert.Equal(t, models.FragilityNone, a.FragilityType)
	assert.Contains(t, a.Mantra, "Build Durability")
	assert.True(t, a.IntensityReady)
	assert.Equal(t, models.LoadCool, a.Load.Status)
	assert.Equal(t, "REGULATED", a.VoteLabel())
}

func TestCrashScore_HysteresisFloor(t *testing.T) {
	sore := func(i int) models.DailyEntry {
		return models.DailyEntry{Date: day(i), Fatigue: models.Float(8), OuraRec: models.Float(40), Joint: models.Float(5)}
	}
	sorted := []models.DailyEntry{
		sore(0), sore(1), sore(2),
		{Date: day(3), Fatigue: models.Float(2), OuraRec: models.Float(80), Joint: models.Float(0)},
	}
	th := ThresholdsFor(models.ModeADT)

	prevRaw, _ := CrashScore(sorted, 2, models.Baselines{}, 0, th)
	raw, effective := CrashScore(sorted, 3, models.Baselines{}, 0, th)

	assert.Equal(t, 4.0, prevRaw)
	assert.Equal(t, 3.0, raw)
	assert.Equal(t, 3.5, effective)
	assert.GreaterOrEqual(t, effective, prevRaw-0.5)
}

func TestCrashScore_NeedsTwoEntries(t *testing.T) {
	sorted := []models.DailyEntry{{Date: day(0), Fatigue: models.Float(9), OuraRec: models.Float(10)}}
	raw, effective := CrashScore(sorted, 0, models.Baselines{}, 1.5, ThresholdsFor(models.ModeADT))
	assert.Zero(t, raw)
	assert.Zero(t, effective)
}

func TestCrashScore_MissingRecoveryIsNotLow(t *testing.T) {
	sorted := []models.DailyEntry{{Date: day(0)}, {Date: day(1)}, {Date: day(2)}}
	raw, _ := CrashScore(sorted, 2, models.Baselines{}, 0, ThresholdsFor(models.ModeADT))
	assert.Zero(t, raw)
}

func TestCrashStatusOf_Ladder(t *testing.T) {
	assert.Equal(t, models.CrashState, CrashStatusOf(5, models.MajorityOK, models.FatigueOK))
	assert.Equal(t, models.CrashState, CrashStatusOf(0, models.MajorityStressed, models.FatigueStressed))
	assert.Equal(t, models.CrashOnset, CrashStatusOf(4, models.MajorityOK, models.FatigueOK))
	assert.Equal(t, models.CrashPreCrash, CrashStatusOf(2.5, models.MajorityOK, models.FatigueOK))
	assert.Equal(t, models.CrashVulnerable, CrashStatusOf(1, models.MajorityOK, models.FatigueOK))
	assert.Equal(t, models.CrashStable, CrashStatusOf(0.5, models.MajorityStressed, models.FatigueNeutral))
}

func TestLoadMemory_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	history := make([]models.DailyEntry, 0, 60)
	for i := 0; i < 60; i++ {
		history = append(history, models.DailyEntry{Date: day(i), Steps: models.Float(float64(rng.Intn(20000)))})
	}
	for i := range history {
		base := baselinesSorted(history, 14, history[i].Date)
		lm := LoadMemoryAt(history, i, base)
		assert.GreaterOrEqual(t, lm.Total, 0.0)
		assert.LessOrEqual(t, lm.Total, loadCap)
		assert.GreaterOrEqual(t, lm.ClearanceRate, 0.0)
	}

	high := []models.DailyEntry{
		{Date: day(0), Steps: models.Float(20000)},
		{Date: day(1), Steps: models.Float(20000)},
		{Date: day(2), Steps: models.Float(20000)},
	}
	lm := LoadMemoryAt(high, 2, models.Baselines{})
	assert.Equal(t, loadCap, lm.Total)
	assert.Equal(t, models.LoadPeak, lm.Status)
	assert.Equal(t, [3]float64{0.25, 0.5, 1.0}, lm.Heat)
}

func TestLoadMemory_TrendAndPendingSteps(t *testing.T) {
	sorted := []models.DailyEntry{
		{Date: day(0), Steps: models.Float(12000)},
		{Date: day(1), Steps: models.Float(3000)},
		{Date: day(2), Steps: models.Float(12000), MorningEntry: true},
	}
	lm := LoadMemoryAt(sorted, 2, models.Baselines{})
	assert.Equal(t, 0.25, lm.Total)
	assert.Equal(t, models.LoadWarm, lm.Status)
	assert.Equal(t, models.LoadEasing, lm.Trend)

	empty := LoadMemoryAt(sorted, -1, models.Baselines{})
	assert.Zero(t, empty.Total)
	assert.Equal(t, models.LoadCool, empty.Status)
}

func TestAssess_SignalTensionScenario(t *testing.T) {
	entry := models.DailyEntry{
		Date:     day(14),
		MReady:   models.Float(90),
		OuraRec:  models.Float(40),
		WhoopRec: models.Float(45),
	}
	a := assessWith(entry, steadyHistory(14), models.ModeStandard)

	assert.Equal(t, models.MajorityStressed, a.Majority)
	assert.True(t, a.Disagreement)
	assert.True(t, a.SignalTension)
	assert.NotEmpty(t, a.Insight)
	th := ThresholdsFor(models.ModeStandard)
	assert.LessOrEqual(t, a.Confidence, 100-th.DisagreementPenalty-th.OutlierPenalty)
	assert.NotEqual(t, models.Green, a.Rec)
	assert.Equal(t, models.FragilityConsolidation, a.FragilityType)
	assert.False(t, a.IntensityReady)
}

func TestAssess_FirstEverEntry(t *testing.T) {
	entry := models.DailyEntry{Date: day(0), MReady: models.Float(80)}
	a := Assess(Input{
		Entry:    entry,
		History:  []models.DailyEntry{entry},
		Settings: models.DefaultSettings(),
		RefDate:  day(0),
	})

	assert.Empty(t, a.Flags)
	require.Len(t, a.Votes, 1)
	assert.Equal(t, models.StateOK, a.Votes[0].State)
	assert.Equal(t, models.MajorityMixed, a.Majority)
	assert.Zero(t, a.CrashScore)
	assert.Equal(t, models.CrashStable, a.CrashStatus)
	assert.Equal(t, 100-ThresholdsFor(models.ModeADT).DisagreementPenalty, a.Confidence)
	assert.Nil(t, a.OddOneOut)
	assert.Equal(t, models.HRVUnknown, a.OuraHrvStatus)
}

func TestAssess_LoadStackingScenario(t *testing.T) {
	history := steadyHistory(14)
	history[12].Steps = models.Float(10000)
	history[13].Steps = models.Float(10000)

	a := assessWith(goodEntry(day(14)), history, models.ModeADT)

	assert.True(t, a.LoadStacking)
	assert.Equal(t, models.Green, a.Rec)
	assert.Equal(t, "REGULATED — Scout Day", a.RecText)
	assert.Equal(t, []string{"Scout day: move to maintain trust, but de-stack load."}, a.Plan)
	assert.Contains(t, a.Why, "Load sequencing: two consecutive high-step days detected → Scout day.")
	assert.Equal(t, 0.75, a.Load.Total)
	assert.Equal(t, models.LoadHot, a.Load.Status)
	assert.Equal(t, models.CrashVulnerable, a.CrashStatus)
	assert.Equal(t, models.FragilityRecovering, a.FragilityType)

	standard := assessWith(goodEntry(day(14)), history, models.ModeStandard)
	assert.False(t, standard.LoadStacking)
}

func TestAssess_LoadStackingNeedsConsecutiveDays(t *testing.T) {
	history := steadyHistory(14)
	history[11].Steps = models.Float(10000)
	history[12].Steps = models.Float(10000)
	history = history[:13] // drop day 13 so the stack is not adjacent

	a := assessWith(goodEntry(day(14)), history, models.ModeADT)
	assert.False(t, a.LoadStacking)
}

func TestAssess_PostRegulationDip(t *testing.T) {
	dip := models.DailyEntry{
		Date:       day(14),
		MReady:     models.Float(60),
		OuraRec:    models.Float(65),
		WhoopRec:   models.Float(60),
		Fatigue:    models.Float(7),
		Resistance: "N",
	}

	a := assessWith(dip, steadyHistory(14), models.ModeADT)
	assert.Equal(t, models.MajorityStressed, a.Majority)
	assert.Equal(t, "Post-regulation dip", a.CycleLabel)
	assert.Equal(t, "POST-REGULATION DIP", a.VoteLabel())
	assert.Equal(t, models.Red, a.Rec)
	assert.Equal(t, "Morning Protection — Scout", a.RecText)

	standard := assessWith(dip, steadyHistory(14), models.ModeStandard)
	assert.Empty(t, standard.CycleLabel)
	assert.Equal(t, "DYSREGULATED", standard.VoteLabel())

	dip.Resistance = "Y"
	trained := assessWith(dip, steadyHistory(14), models.ModeADT)
	assert.Empty(t, trained.CycleLabel)
}

func TestAssess_MorningEntryStepsAreNotOutliers(t *testing.T) {
	entry := goodEntry(day(14))
	entry.Steps = nil
	entry.MorningEntry = true

	a := Assess(Input{
		Entry:    entry,
		History:  append(steadyHistory(14), entry),
		Settings: models.DefaultSettings(),
		RefDate:  day(14),
	})

	for _, f := range a.Flags {
		assert.NotEqual(t, models.MetricSteps, f.Field)
	}
	assert.Contains(t, a.Why, "Steps not yet entered (morning entry) → excluded from outliers.")
	assert.Equal(t, 100.0, a.Confidence)
}

func TestOddOneOut_SingleFlaggedDissenter(t *testing.T) {
	entry := goodEntry(day(14))
	entry.OuraRec = models.Float(50)
	entry.Fatigue = nil

	a := assessWith(entry, steadyHistory(14), models.ModeADT)

	assert.Equal(t, models.MajorityOK, a.Majority)
	require.NotNil(t, a.OddOneOut)
	assert.Equal(t, models.Oura, *a.OddOneOut)
	assert.Contains(t, a.OddWhy, "ouraRec")
}

func TestOuraHRVStatus_Derived(t *testing.T) {
	history := make([]models.DailyEntry, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, models.DailyEntry{Date: day(i), OuraHrv: models.Float(50)})
	}
	history[9].OuraHrv = models.Float(40)
	history[8].OuraHrv = models.Float(40)
	history[7].OuraHrv = models.Float(40)

	base := baselinesSorted(history, 14, day(9))
	e := history[9]
	assert.Equal(t, models.HRVPayAttention, OuraHRVStatus(&e, history, 9, base))

	e.OuraHrvStatus = models.HRVGood
	assert.Equal(t, models.HRVGood, OuraHRVStatus(&e, history, 9, base))
}

func hasFlag(flags []models.OutlierFlag, field models.Metric, kind models.FlagKind) bool {
	for _, f := range flags {
		if f.Field == field && f.Kind == kind {
			return true
		}
	}
	return false
}

func TestDetectOutliers_RuleFlags(t *testing.T) {
	base := ComputeBaselines(steadyHistory(14), 14, day(14))

	tests := []struct {
		name   string
		mode   models.Mode
		mutate func(e *models.DailyEntry)
		field  models.Metric
		kind   models.FlagKind
		want   bool
	}{
		{"oura rhr rise", models.ModeADT, func(e *models.DailyEntry) { e.OuraRhr = models.Float(61) }, models.MetricOuraRhr, models.FlagAbs, true},
		{"whoop rhr rise", models.ModeADT, func(e *models.DailyEntry) { e.WhoopRhr = models.Float(61) }, models.MetricWhoopRhr, models.FlagAbs, true},
		{"rhr rise under standard cut", models.ModeStandard, func(e *models.DailyEntry) { e.OuraRhr = models.Float(61) }, models.MetricOuraRhr, models.FlagAbs, false},
		{"hrv drop", models.ModeADT, func(e *models.DailyEntry) { e.MHrv = models.Float(49) }, models.MetricMHrv, models.FlagPct, true},
		{"hrv drop under cut", models.ModeADT, func(e *models.DailyEntry) { e.MHrv = models.Float(50) }, models.MetricMHrv, models.FlagPct, false},
		{"readiness drop", models.ModeADT, func(e *models.DailyEntry) { e.MReady = models.Float(60) }, models.MetricMReady, models.FlagAbs, true},
		{"oura recovery drop", models.ModeADT, func(e *models.DailyEntry) { e.OuraRec = models.Float(65) }, models.MetricOuraRec, models.FlagAbs, true},
		{"whoop recovery drop", models.ModeADT, func(e *models.DailyEntry) { e.WhoopRec = models.Float(60) }, models.MetricWhoopRec, models.FlagAbs, true},
		{"recovery drop under standard cut", models.ModeStandard, func(e *models.DailyEntry) { e.WhoopRec = models.Float(60) }, models.MetricWhoopRec, models.FlagAbs, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := goodEntry(day(14))
			tt.mutate(&e)
			flags := DetectOutliers(&e, base, ThresholdsFor(tt.mode), day(14))
			assert.Equal(t, tt.want, hasFlag(flags, tt.field, tt.kind))
		})
	}
}

func TestDetectOutliers_RuleFlagHints(t *testing.T) {
	base := ComputeBaselines(steadyHistory(14), 14, day(14))
	e := goodEntry(day(14))
	e.OuraRhr = models.Float(61)
	e.MHrv = models.Float(45)

	var hints []string
	for _, f := range DetectOutliers(&e, base, ThresholdsFor(models.ModeADT), day(14)) {
		if f.Kind != models.FlagZ {
			hints = append(hints, f.Hint)
		}
	}
	assert.Equal(t, []string{"Oura RHR +6 bpm vs baseline", "HRV drop ≥18% vs baseline"}, hints)
}

func TestDetectOutliers_ZeroStepsOnRefDateArePending(t *testing.T) {
	base := ComputeBaselines(steadyHistory(14), 14, day(14))
	th := ThresholdsFor(models.ModeADT)
	e := goodEntry(day(14))
	e.Steps = models.Float(0)

	assert.False(t, hasFlag(DetectOutliers(&e, base, th, day(14)), models.MetricSteps, models.FlagZ))
	assert.True(t, hasFlag(DetectOutliers(&e, base, th, day(20)), models.MetricSteps, models.FlagZ))

	e.Steps = nil
	assert.Empty(t, DetectOutliers(&e, base, th, day(20)))
}

func TestAssess_MorningEntryStepsIgnoredOnAnyDate(t *testing.T) {
	entry := goodEntry(day(14))
	entry.Steps = models.Float(30000)
	entry.MorningEntry = true

	a := assessWith(entry, steadyHistory(14), models.ModeADT)

	for _, f := range a.Flags {
		assert.NotEqual(t, models.MetricSteps, f.Field)
	}
	assert.Equal(t, 100.0, a.Confidence)
	assert.Equal(t, models.LoadCool, a.Load.Status)
}

func TestComputeBaselines_SkipsMorningSteps(t *testing.T) {
	history := steadyHistory(14)
	history[13].Steps = models.Float(60000)
	history[13].MorningEntry = true

	base := ComputeBaselines(history, 14, day(14))
	stats := base[models.MetricSteps]

	assert.Equal(t, 13, stats.N)
	require.NotNil(t, stats.Mean)
	assert.InDelta(t, 103000.0/13, *stats.Mean, 1e-9)
	assert.Equal(t, 14, base[models.MetricMReady].N)
}

func TestAssess_NonFiniteReadingsAreIgnored(t *testing.T) {
	entry := goodEntry(day(14))
	entry.MReady = models.Float(math.NaN())
	entry.OuraRhr = models.Float(math.Inf(1))

	a := assessWith(entry, steadyHistory(14), models.ModeADT)

	for _, f := range a.Flags {
		assert.NotEqual(t, models.MetricMReady, f.Field)
		assert.NotEqual(t, models.MetricOuraRhr, f.Field)
	}
	require.Len(t, a.Votes, 2)
	assert.Equal(t, models.MajorityOK, a.Majority)

	_, err := json.Marshal(a)
	assert.NoError(t, err)
}

func TestAssess_JointWarningForcesYellow(t *testing.T) {
	tests := []struct {
		name  string
		mode  models.Mode
		joint float64
		want  models.RecColor
	}{
		{"adt at cut", models.ModeADT, 4, models.Yellow},
		{"standard below cut", models.ModeStandard, 4, models.Green},
		{"standard at cut", models.ModeStandard, 5, models.Yellow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := goodEntry(day(14))
			entry.Joint = models.Float(tt.joint)

			a := assessWith(entry, steadyHistory(14), tt.mode)
			assert.Equal(t, 100.0, a.Confidence)
			assert.Equal(t, tt.want, a.Rec)
			if tt.want == models.Yellow {
				assert.Contains(t, a.Why, fmt.Sprintf("Joint warning %g/10 → joint-protective bias.", tt.joint))
			}
		})
	}
}

func TestAssess_StressedFatigue(t *testing.T) {
	t.Run("high confidence caps at yellow", func(t *testing.T) {
		history := steadyHistory(14)
		for i := range history {
			history[i].Fatigue = nil
		}
		entry := models.DailyEntry{
			Date:       day(14),
			MReady:     models.Float(60),
			OuraRec:    models.Float(65),
			WhoopRec:   models.Float(60),
			Fatigue:    models.Float(7),
			Resistance: "N",
		}

		a := assessWith(entry, history, models.ModeStandard)
		assert.Equal(t, models.FatigueStressed, a.FatigueSignal)
		assert.Equal(t, 100.0, a.Confidence)
		assert.Equal(t, models.Yellow, a.Rec)
		assert.Contains(t, a.Why, "Fatigue 7/10 indicates strain.")
	})

	t.Run("low confidence is red", func(t *testing.T) {
		entry := goodEntry(day(14))
		entry.Fatigue = models.Float(7)

		a := assessWith(entry, steadyHistory(14), models.ModeADT)
		assert.Equal(t, models.FatigueStressed, a.FatigueSignal)
		assert.True(t, a.FatigueMismatch)
		assert.Equal(t, 50.0, a.Confidence)
		assert.Equal(t, models.Red, a.Rec)
		assert.Contains(t, a.Why, "Fatigue 7/10 indicates strain.")
	})
}

func TestConfidence_StepsSwing(t *testing.T) {
	base := ComputeBaselines(steadyHistory(14), 14, day(14))
	th := ThresholdsFor(models.ModeADT)

	tests := []struct {
		name    string
		steps   *float64
		morning bool
		want    float64
	}{
		{"within swing", models.Float(10000), false, 100},
		{"above swing", models.Float(11000), false, 100 - th.StepsSwingPenalty},
		{"below swing", models.Float(5000), false, 100 - th.StepsSwingPenalty},
		{"morning entry", models.Float(11000), true, 100},
		{"missing", nil, false, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := goodEntry(day(14))
			e.Steps = tt.steps
			e.MorningEntry = tt.morning
			assert.Equal(t, tt.want, Confidence(&e, base, th, 0, false, false))
		})
	}
}

func TestAssess_GlobalFragility(t *testing.T) {
	stressed := func() models.DailyEntry {
		return models.DailyEntry{
			Date:       day(14),
			MReady:     models.Float(60),
			OuraRec:    models.Float(65),
			WhoopRec:   models.Float(60),
			Resistance: "N",
		}
	}
	tests := []struct {
		name   string
		mutate func(e *models.DailyEntry)
		global bool
	}{
		{"hrv drop", func(e *models.DailyEntry) { e.MHrv = models.Float(45) }, true},
		{"rhr rise", func(e *models.DailyEntry) { e.WhoopRhr = models.Float(62) }, true},
		{"severe fatigue", func(e *models.DailyEntry) { e.Fatigue = models.Float(8) }, true},
		{"stressed only", func(*models.DailyEntry) {}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := stressed()
			tt.mutate(&entry)

			a := assessWith(entry, steadyHistory(14), models.ModeADT)
			require.Equal(t, models.MajorityStressed, a.Majority)
			if tt.global {
				assert.Equal(t, models.FragilityGlobal, a.FragilityType)
				assert.Contains(t, a.Mantra, "Autonomic Reset")
				assert.Contains(t, a.ScoutCheck, "dizziness")
			} else {
				assert.NotEqual(t, models.FragilityGlobal, a.FragilityType)
			}
		})
	}
}

func TestAssess_PostRegulationDipAfterYellowDay(t *testing.T) {
	sparse := func(i int) models.DailyEntry {
		return models.DailyEntry{Date: day(i), MReady: models.Float(75), Resistance: "N"}
	}
	dip := models.DailyEntry{
		Date:       day(16),
		MReady:     models.Float(60),
		OuraRec:    models.Float(65),
		WhoopRec:   models.Float(60),
		Fatigue:    models.Float(7),
		Resistance: "N",
	}
	history := append(steadyHistory(14), sparse(14), sparse(15))

	sorted := models.SortEntries(append(history, dip))
	priors := priorSummaries(sorted, models.IndexOf(sorted, dip.Date), 14, ThresholdsFor(models.ModeADT), "2030-01-01")
	require.Len(t, priors, 2)
	for _, p := range priors {
		assert.Equal(t, models.MajorityMixed, p.majority)
		assert.Equal(t, models.Yellow, p.rec)
	}

	a := assessWith(dip, history, models.ModeADT)
	assert.Equal(t, models.MajorityStressed, a.Majority)
	assert.False(t, a.Disagreement)
	assert.Equal(t, "Post-regulation dip", a.CycleLabel)
	assert.Equal(t, models.Red, a.Rec)
	assert.Equal(t, "Morning Protection — Scout", a.RecText)
}
