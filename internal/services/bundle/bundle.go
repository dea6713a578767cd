// Package bundle renders the plain-text analysis bundle: one day's assessment
// plus the trailing raw inputs, formatted for copy and paste.
package bundle

import (
	"fmt"
	"strings"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/services/assessment"
)

const (
	header         = "ANALYSIS BUNDLE — 3-Device Cross-Check"
	emptyBundle    = "No entries yet."
	contextEntries = 14
)

// Render assesses targetDate (the latest entry when empty or unknown) and
// formats the result. refDate is passed through to the engine.
func Render(entries []models.DailyEntry, settings models.AppSettings, targetDate, refDate string) string {
	if len(entries) == 0 {
		return emptyBundle
	}
	sorted := models.SortEntries(entries)
	idx := len(sorted) - 1
	if targetDate != "" {
		if i := models.IndexOf(sorted, targetDate); i != -1 {
			idx = i
		}
	}
	target := sorted[idx]
	a := assessment.Assess(assessment.Input{
		Entry:    target,
		History:  sorted,
		Settings: settings,
		RefDate:  refDate,
	})

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(header)
	line("Mode=%s Baseline=%dd Entries=%d", strings.ToUpper(settings.Mode.String()), settings.BaselineDays, len(entries))
	line("ViewDate=%s", target.Date)
	line("Inputs: %s", inputs(&target))
	line("")
	line("Majority=%s FatigueSignal=%s Disagree=%s Conf=%.0f/100",
		a.VoteLabel(), upper(a.FatigueSignal), yesNo(a.Disagreement), a.Confidence)
	line("Fragility=%s SignalTension=%s CrashStatus=%s OuraHRV=%s LoadMem=%.2f",
		upper(a.FragilityType), yesNo(a.SignalTension), upper(a.CrashStatus), upper(a.OuraHrvStatus), a.Load.Total)
	line("Mantra=%q", a.Mantra)
	line("Recommendation=%s", a.RecText)
	line("Plan:")
	for _, p := range a.Plan {
		line("- %s", p)
	}
	if a.OddOneOut != nil {
		line("OddOneOut=%s — %s", *a.OddOneOut, a.OddWhy)
	} else {
		line("OddOneOut=None")
	}
	line("")
	line("Why:")
	for _, w := range a.Why {
		line("- %s", w)
	}
	line("")
	line("Outliers:")
	if len(a.Flags) == 0 {
		line("- none")
	}
	for _, f := range a.Flags {
		kind := string(f.Kind)
		if f.Kind == models.FlagZ {
			kind = "z=" + num(f.Z, 2)
		}
		line("- %s: %s (%s)", f.Field, kind, f.Hint)
	}
	line("")

	line("Recent Context (ending %s):", target.Date)
	start := idx - contextEntries + 1
	if start < 0 {
		start = 0
	}
	for i := idx; i >= start; i-- {
		line("- %s: %s", sorted[i].Date, inputs(&sorted[i]))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func inputs(e *models.DailyEntry) string {
	return fmt.Sprintf(`mReady=%s mHRV=%s ouraRec=%s whoopRec=%s whoopRHR=%s ouraRHR=%s steps=%s fatigue=%s res=%s joint=%s notes="%s"`,
		num(e.MReady, 0), num(e.MHrv, 0), num(e.OuraRec, 0), num(e.WhoopRec, 0),
		num(e.WhoopRhr, 0), num(e.OuraRhr, 0), num(e.Steps, 0), num(e.Fatigue, 0),
		e.Resistance, num(e.Joint, 0), e.Notes)
}

// num prints nil as empty.
func num(p *float64, decimals int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.*f", decimals, *p)
}

func upper[T ~string](s T) string { return strings.ToUpper(string(s)) }

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
