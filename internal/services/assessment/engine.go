// Package assessment scores one day of wearable readings against the
// user's rolling baseline and turns the signals into a recommendation.
package assessment

import (
	"fmt"

	"TriRecover/internal/domain/models"
)

const (
	cycleLabelDip = "Post-regulation dip"

	tensionInsight = "Engine vs. Battery Mismatch: Performance capacity is high, but internal recovery is lagging behind."
)

// Input is one assessment request. RefDate is "today" for the caller; it only
// changes how pending steps on that date are treated.
type Input struct {
	Entry    models.DailyEntry
	History  []models.DailyEntry
	Settings models.AppSettings
	RefDate  string
}

// Engine implements service.Assessor.
type Engine struct{}

// NewEngine returns the stateless engine.
func NewEngine() *Engine { return &Engine{} }

// Assess adapts the positional form used by the service layer.
func (Engine) Assess(entry models.DailyEntry, history []models.DailyEntry, settings models.AppSettings, refDate string) models.DayAssessment {
	return Assess(Input{Entry: entry, History: history, Settings: settings, RefDate: refDate})
}

// Assess computes the full assessment for in.Entry. It is deterministic and
// never fails; missing data degrades to weaker conclusions.
func Assess(in Input) models.DayAssessment {
	sorted := models.SortEntries(in.History)
	idx := models.IndexOf(sorted, in.Entry.Date)
	t := ThresholdsFor(in.Settings.Mode)
	window := in.Settings.BaselineDays
	e := &in.Entry
	adt := in.Settings.Mode == models.ModeADT

	c := computeCore(e, sorted, window, t, in.RefDate)

	dip := false
	if adt {
		dip = postRegulationDip(e, t, c, priorSummaries(sorted, idx, window, t, in.RefDate))
	}

	out := models.DayAssessment{
		Date:            e.Date,
		Mode:            in.Settings.Mode,
		Flags:           c.flags,
		Votes:           c.votes,
		Majority:        c.majority,
		FatigueSignal:   c.fatigue,
		Disagreement:    c.disagreement,
		FatigueMismatch: c.fatigueMismatch,
		Confidence:      c.confidence,
		Rec:             c.rec,
		OuraHrvStatus:   OuraHRVStatus(e, sorted, idx, c.base),
	}
	out.OddOneOut, out.OddWhy = OddOneOut(c.votes, c.majority, c.fatigue, c.flags)

	why := append([]string(nil), c.why...)
	if dip {
		out.CycleLabel = cycleLabelDip
		why = append(why, "Pattern suggests a post‑regulation dip: protect the morning and reassess later.")
	}
	if e.MorningEntry {
		why = append(why, "Steps not yet entered (morning entry) → excluded from outliers.")
	}

	out.RecText, out.Plan = planFor(out.Rec, dip)
	if adt && out.Rec != models.Red && loadStacking(sorted, idx) {
		out.LoadStacking = true
		why = append(why, "Load sequencing: two consecutive high-step days detected → Scout day.")
		if out.Rec == models.Green {
			out.RecText = "REGULATED — Scout Day"
		} else {
			out.RecText = "Modulate & Observe — Scout Day"
		}
		out.Plan = []string{"Scout day: move to maintain trust, but de-stack load."}
	}
	out.Why = why

	morphHigh, recLow := SignalTension(e, c.base)
	out.SignalTension = morphHigh && recLow
	if out.SignalTension {
		out.Insight = tensionInsight
	}
	frag := classifyFragility(e, t, c, out.SignalTension, morphHigh, recLow)
	out.FragilityType, out.Mantra, out.ScoutCheck = frag.kind, frag.mantra, frag.scoutCheck

	out.Load = LoadMemoryAt(sorted, idx, c.base)
	out.CrashScoreRaw, out.CrashScore = CrashScore(sorted, idx, c.base, out.Load.Total, t)
	out.CrashStatus = CrashStatusOf(out.CrashScore, c.majority, c.fatigue)
	if out.CrashStatus != models.CrashStable && out.FragilityType == models.FragilityNone {
		out.FragilityType = models.FragilityRecovering
	}

	out.IntensityReady = out.Load.Total < 0.5 &&
		out.CrashStatus == models.CrashStable &&
		!out.SignalTension &&
		c.majority == models.MajorityOK

	return out
}

// Summary is the one-line form used by logs and the CLI.
func Summary(a models.DayAssessment) string {
	return fmt.Sprintf("%s %s conf=%.0f %s crash=%s(%.1f) load=%s(%.2f)",
		a.Date, a.Rec, a.Confidence, a.VoteLabel(), a.CrashStatus, a.CrashScore, a.Load.Status, a.Load.Total)
}
