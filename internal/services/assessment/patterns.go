package assessment

import (
	"time"

	"TriRecover/internal/domain/models"
)

// priorSummary is the first-pass view of a preceding day.
type priorSummary struct {
	majority models.Majority
	rec      models.RecColor
}

// priorSummaries runs the lightweight pass over the two entries before idx.
// It never runs pattern detection, so nothing can recurse.
func priorSummaries(sorted []models.DailyEntry, idx, window int, t Thresholds, refDate string) []priorSummary {
	out := make([]priorSummary, 0, 2)
	for back := 1; back <= 2; back++ {
		i := idx - back
		if idx < 0 || i < 0 {
			break
		}
		c := computeCore(&sorted[i], sorted, window, t, refDate)
		out = append(out, priorSummary{majority: c.majority, rec: c.rec})
	}
	return out
}

// postRegulationDip reads as stressed today after an ok or Yellow day within the
// last two entries, with high fatigue, no training and no device disagreement.
func postRegulationDip(e *models.DailyEntry, t Thresholds, c core, priors []priorSummary) bool {
	stressedNow := c.majority == models.MajorityStressed || c.fatigue == models.FatigueStressed
	if !stressedNow || e.Trained() || c.disagreement {
		return false
	}
	if e.Fatigue == nil || *e.Fatigue < t.FatigueHigh {
		return false
	}
	for _, p := range priors {
		if p.majority == models.MajorityOK || p.rec == models.Yellow {
			return true
		}
	}
	return false
}

// loadStacking needs the two entries before idx to sit on the two calendar days
// immediately preceding the target, both at or above the high-step floor.
func loadStacking(sorted []models.DailyEntry, idx int) bool {
	if idx < 2 {
		return false
	}
	d0, d1, d2 := sorted[idx], sorted[idx-1], sorted[idx-2]
	if !consecutive(d2.Date, d1.Date) || !consecutive(d1.Date, d0.Date) {
		return false
	}
	return d1.Steps != nil && d2.Steps != nil && *d1.Steps >= highStepsFloor && *d2.Steps >= highStepsFloor
}

func consecutive(a, b string) bool {
	ta, err := time.Parse(models.DateLayout, a)
	if err != nil {
		return false
	}
	tb, err := time.Parse(models.DateLayout, b)
	if err != nil {
		return false
	}
	return tb.Sub(ta) == 24*time.Hour
}
