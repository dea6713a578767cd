package assessment

import (
	"math"

	"TriRecover/internal/domain/models"
)

var loadWeights = [3]float64{1.0, 0.5, 0.25} // day0, day-1, day-2

// LoadMemoryAt computes the decaying high-step accumulator for sorted[idx].
// idx -1 yields an empty, COOL memory.
func LoadMemoryAt(sorted []models.DailyEntry, idx int, base models.Baselines) models.LoadMemory {
	if idx < 0 || idx >= len(sorted) {
		return models.LoadMemory{Status: models.LoadCool, Trend: models.LoadSteady}
	}

	threshold := math.Max(highStepsFloor, orZero(base.Mean(models.MetricSteps))*stepsThresholdRatio)
	high := func(i int) bool {
		return i >= 0 && !sorted[i].StepsPending() && *sorted[i].Steps >= threshold
	}

	var heat [3]float64
	for back := 0; back < 3; back++ {
		if high(idx - back) {
			heat[2-back] = loadWeights[back]
		}
	}
	total := math.Min(heat[0]+heat[1]+heat[2], loadCap)

	prev := 0.0
	for back := 0; back < 3; back++ {
		if high(idx - 1 - back) {
			prev += loadWeights[back]
		}
	}
	prev = math.Min(prev, loadCap)

	residual := 0.0
	if high(idx) {
		residual += loadWeights[1]
	}
	if high(idx - 1) {
		residual += loadWeights[2]
	}

	return models.LoadMemory{
		Total:         total,
		Heat:          heat,
		Status:        loadStatus(total),
		Trend:         loadTrend(total, prev),
		ClearanceRate: math.Max(0, total-math.Min(residual, loadCap)),
		Threshold:     threshold,
	}
}

func loadStatus(total float64) models.LoadStatus {
	switch {
	case total >= 1.25:
		return models.LoadPeak
	case total >= 0.75:
		return models.LoadHot
	case total > 0:
		return models.LoadWarm
	default:
		return models.LoadCool
	}
}

func loadTrend(cur, prev float64) models.LoadTrend {
	switch {
	case cur > prev:
		return models.LoadRising
	case cur < prev:
		return models.LoadEasing
	default:
		return models.LoadSteady
	}
}

// crashScoreAt scores the three-entry window ending at sorted[idx] against the
// target day's baselines and load memory.
func crashScoreAt(sorted []models.DailyEntry, idx int, base models.Baselines, load float64, t Thresholds) float64 {
	if idx < 0 {
		return 0
	}
	window := trailing(sorted, idx, 3)
	if len(window) < 2 {
		return 0
	}

	score := 0.0

	hrvs := make([]*float64, 0, len(window))
	rhrs := make([]*float64, 0, len(window))
	fatigue := make([]*float64, 0, len(window))
	lowRec, sorePain := 0, 0
	for i := range window {
		e := &window[i]
		hrvs = append(hrvs, e.MHrv)
		rhrs = append(rhrs, dayRHR(e))
		fatigue = append(fatigue, e.Fatigue)
		if below(e.OuraRec, 50) || below(e.WhoopRec, 50) {
			lowRec++
		}
		if e.Joint != nil && *e.Joint >= t.JointWarn {
			sorePain++
		}
	}

	if mean := base.Mean(models.MetricMHrv); positive(mean) {
		if avg := Mean(hrvs); avg != nil && *avg < *mean*0.9 {
			score++
		}
	}
	if avg := Mean(rhrs); avg != nil {
		oura, whoop := base.Mean(models.MetricOuraRhr), base.Mean(models.MetricWhoopRhr)
		if (positive(oura) && *avg > *oura+3) || (positive(whoop) && *avg > *whoop+3) {
			score++
		}
	}
	if avg := Mean(fatigue); avg != nil && *avg >= 6.5 {
		score++
	}
	if load >= 0.75 {
		score++
	}
	if lowRec >= 2 {
		score += 2
	}
	if sorePain >= 2 {
		score++
	}

	if mean := base.Mean(models.MetricOuraHrv); positive(mean) {
		vals := ouraHRVs(window)
		if len(vals) >= 2 {
			avg := sum(vals) / float64(len(vals))
			switch {
			case avg < *mean*0.85:
				score += 1.0
			case avg < *mean*0.95:
				score += 0.5
			}
		}
	}
	return score
}

// CrashScore returns the raw score for the target and the effective score after
// one-step hysteresis: a falling score floors at yesterday minus 0.5.
func CrashScore(sorted []models.DailyEntry, idx int, base models.Baselines, load float64, t Thresholds) (raw, effective float64) {
	raw = crashScoreAt(sorted, idx, base, load, t)
	effective = raw
	if idx > 0 {
		prev := crashScoreAt(sorted, idx-1, base, load, t)
		if raw < prev {
			effective = math.Max(raw, prev-0.5)
		}
	}
	return raw, effective
}

// CrashStatusOf maps an effective score onto the ladder.
func CrashStatusOf(score float64, m models.Majority, f models.FatigueSignal) models.CrashStatus {
	switch {
	case score >= 5 || (m == models.MajorityStressed && f == models.FatigueStressed):
		return models.CrashState
	case score >= 4:
		return models.CrashOnset
	case score >= 2.5:
		return models.CrashPreCrash
	case score >= 1:
		return models.CrashVulnerable
	default:
		return models.CrashStable
	}
}

// OuraHRVStatus prefers the device label, else derives one from the
// three-entry Oura HRV average against its baseline.
func OuraHRVStatus(e *models.DailyEntry, sorted []models.DailyEntry, idx int, base models.Baselines) models.HRVStatus {
	if e.OuraHrvStatus != "" {
		return e.OuraHrvStatus
	}
	mean := base.Mean(models.MetricOuraHrv)
	if idx < 0 || !positive(mean) {
		return models.HRVUnknown
	}
	vals := ouraHRVs(trailing(sorted, idx, 3))
	if len(vals) == 0 {
		return models.HRVUnknown
	}
	avg := sum(vals) / float64(len(vals))
	switch {
	case avg >= *mean:
		return models.HRVOptimal
	case avg >= *mean*0.95:
		return models.HRVGood
	case avg >= *mean*0.85:
		return models.HRVFair
	default:
		return models.HRVPayAttention
	}
}

func trailing(sorted []models.DailyEntry, idx, n int) []models.DailyEntry {
	start := idx - n + 1
	if start < 0 {
		start = 0
	}
	return sorted[start : idx+1]
}

func ouraHRVs(window []models.DailyEntry) []float64 {
	out := make([]float64, 0, len(window))
	for _, e := range window {
		if e.OuraHrv != nil && *e.OuraHrv > 0 {
			out = append(out, *e.OuraHrv)
		}
	}
	return out
}

// dayRHR prefers Oura and falls back to Whoop.
func dayRHR(e *models.DailyEntry) *float64 {
	if e.OuraRhr != nil && *e.OuraRhr != 0 {
		return e.OuraRhr
	}
	if e.WhoopRhr != nil && *e.WhoopRhr != 0 {
		return e.WhoopRhr
	}
	return nil
}

func below(p *float64, cut float64) bool { return p != nil && *p < cut }
